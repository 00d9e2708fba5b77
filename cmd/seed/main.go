// Command seed fills a development database with a sample sales team, rule
// catalog, clients and sales. Sales go through the intake batch so the
// installments and the batch history look like real uploads.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	batchapp "github.com/consorcio/backend/internal/application/batch"
	ledgerapp "github.com/consorcio/backend/internal/application/ledger"
	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/infrastructure/cache"
	"github.com/consorcio/backend/internal/infrastructure/config"
	"github.com/consorcio/backend/internal/infrastructure/logger"
	"github.com/consorcio/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	var (
		seed  uint64
		sizes Sizes
	)
	flag.Uint64Var(&seed, "seed", 42, "Random seed; the same seed produces the same data")
	flag.IntVar(&sizes.Supervisors, "supervisors", 2, "Number of supervisors under the generated manager")
	flag.IntVar(&sizes.SellersPerSupervisor, "sellers", 3, "Salespeople per supervisor")
	flag.IntVar(&sizes.Clients, "clients", 40, "Number of clients")
	flag.IntVar(&sizes.Sales, "sales", 60, "Number of sales sent through intake")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if cfg.App.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	scope := persistence.NewGormTransactionScope(db.DB)
	runner := batchapp.NewRunner(scope, batchapp.WithLogger(log))
	ledgerService := ledgerapp.NewService(runner, scope.Repositories(), cache.NewInMemoryCache(), ledgerapp.Config{
		ReconcileTolerance: cfg.Ledger.ReconcileTolerance,
	}, log)

	ds, err := NewGenerator(seed, time.Now()).Generate(sizes)
	if err != nil {
		log.Fatal("Failed to generate dataset", zap.Error(err))
	}

	ctx := context.Background()
	if err := persist(ctx, scope, ds, log); err != nil {
		log.Fatal("Failed to write reference data", zap.Error(err))
	}

	master := identity.Actor{UserID: identity.MasterUserID, Role: identity.RoleMaster}
	result, err := ledgerService.Intake(ctx, master, ledgerapp.BatchInput[ledger.SaleInput]{Rows: ds.Sales})
	if err != nil {
		log.Fatal("Intake failed", zap.Error(err))
	}
	log.Info("Seed completed",
		zap.Int("users", len(ds.Users)),
		zap.Int("rules", len(ds.Rules)),
		zap.Int("clients", len(ds.Clients)),
		zap.Int("sales", result.Report.Processed),
		zap.Int("sales_succeeded", result.Report.Succeeded),
		zap.String("batch_status", string(result.Run.Status)),
	)
}

// persist writes rules, users and clients in one transaction. Users and
// clients that already exist are left untouched so the command can be rerun.
func persist(ctx context.Context, scope transaction.Scope, ds *Dataset, log *zap.Logger) error {
	return scope.Execute(ctx, func(repos transaction.Repositories) error {
		for i := range ds.Rules {
			if err := repos.Rules().Upsert(ctx, &ds.Rules[i]); err != nil {
				return fmt.Errorf("rule %s: %w", ds.Rules[i].ProductType, err)
			}
		}

		for _, u := range ds.Users {
			exists, err := repos.Users().ExistsByIDOrUsername(ctx, u.ID, u.Username)
			if err != nil {
				return err
			}
			if exists {
				log.Debug("User already present", zap.String("user_id", u.ID))
				continue
			}
			if err := repos.Users().Create(ctx, u); err != nil {
				return fmt.Errorf("user %s: %w", u.ID, err)
			}
		}

		ids, err := repos.Clients().FindIDs(ctx)
		if err != nil {
			return err
		}
		known := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			known[id] = struct{}{}
		}
		fresh := make([]*client.Client, 0, len(ds.Clients))
		for _, c := range ds.Clients {
			if _, ok := known[c.ID]; !ok {
				fresh = append(fresh, c)
			}
		}
		if len(fresh) == 0 {
			return nil
		}
		if err := repos.Clients().CreateBatch(ctx, fresh); err != nil {
			return fmt.Errorf("clients: %w", err)
		}
		return nil
	})
}
