package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BatchInput is the parsed content of one upload. Rejected holds the log lines of
// rows that could not be parsed; they count as processed and failed.
type BatchInput[T any] struct {
	Upload   *batch.Upload
	Rows     []T
	Rejected []ledger.LogEntry
}

func (in BatchInput[T]) processed() int {
	return len(in.Rows) + len(in.Rejected)
}

// Config holds the business knobs of the ledger services
type Config struct {
	ReconcileTolerance decimal.Decimal
	// CacheTTL is the lifetime of the cached dashboard summary
	CacheTTL time.Duration
}

// Service runs the ledger batches and answers installment queries
type Service struct {
	runner    *batch.Runner
	repos     transaction.Repositories
	cache     shared.Cache
	generator *ledger.Generator
	matcher   *ledger.Matcher
	canceller *ledger.Canceller
	editor    *ledger.Editor
	deleter   *ledger.Deleter
	cacheTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates the ledger service. repos serves reads outside batches.
func NewService(runner *batch.Runner, repos transaction.Repositories, c shared.Cache, cfg Config, logger *zap.Logger) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Service{
		runner:    runner,
		repos:     repos,
		cache:     c,
		generator: ledger.NewGenerator(),
		matcher:   ledger.NewMatcher(cfg.ReconcileTolerance),
		canceller: ledger.NewCanceller(),
		editor:    ledger.NewEditor(),
		deleter:   ledger.NewDeleter(),
		cacheTTL:  cfg.CacheTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// today returns the current date at midnight
func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// requireStaff rejects field roles from batch operations
func requireStaff(actor identity.Actor, permission string) error {
	if !actor.Can(permission) {
		return shared.NewDomainError("FORBIDDEN", fmt.Sprintf("role %s cannot run %s", actor.Role, permission))
	}
	return nil
}

func (s *Service) run(ctx context.Context, actor identity.Actor, op bulk.Operation, upload *batch.Upload, rows int,
	fn func(ctx context.Context, repos transaction.Repositories) (ledger.BatchReport, error), invalidate ...string,
) (*batch.Result, error) {
	return s.runner.Execute(ctx, batch.Job{
		Operation:  op,
		RunBy:      actor.UserID,
		Role:       string(actor.Role),
		Upload:     upload,
		Rows:       rows,
		Invalidate: append([]string{shared.CacheKeyLedgerStat}, invalidate...),
		Run:        fn,
	})
}

// snapshot loads the catalog and directories inside the batch transaction
type snapshot struct {
	catalog *catalog.Catalog
	users   *identity.Directory
	clients *client.Directory
}

func loadSnapshot(ctx context.Context, repos transaction.Repositories) (*snapshot, error) {
	rules, err := repos.Rules().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	users, err := repos.Users().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	clients, err := repos.Clients().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}
	return &snapshot{
		catalog: catalog.NewCatalog(rules),
		users:   identity.NewDirectory(users),
		clients: client.NewDirectory(clients),
	}, nil
}

// withRejected prepends the parse failures to a report
func withRejected(report ledger.BatchReport, rejected []ledger.LogEntry) ledger.BatchReport {
	if len(rejected) == 0 {
		return report
	}
	report.Processed += len(rejected)
	report.Log = append(append([]ledger.LogEntry{}, rejected...), report.Log...)
	return report
}
