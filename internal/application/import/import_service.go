// Package importapp turns uploaded spreadsheets into ledger and catalog batches.
package importapp

import (
	"bytes"
	"context"
	"errors"

	"github.com/consorcio/backend/internal/application/batch"
	ledgerapp "github.com/consorcio/backend/internal/application/ledger"
	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/spreadsheet"
	"go.uber.org/zap"
)

// LedgerBatches runs the installment batches
type LedgerBatches interface {
	Intake(ctx context.Context, actor identity.Actor, in ledgerapp.BatchInput[ledger.SaleInput]) (*batch.Result, error)
	Reconcile(ctx context.Context, actor identity.Actor, in ledgerapp.BatchInput[ledger.StatementRow]) (*batch.Result, error)
	Cancel(ctx context.Context, actor identity.Actor, in ledgerapp.BatchInput[ledger.CancelRequest]) (*batch.Result, error)
	Edit(ctx context.Context, actor identity.Actor, in ledgerapp.BatchInput[ledger.EditRow]) (*batch.Result, error)
	Delete(ctx context.Context, actor identity.Actor, in ledgerapp.BatchInput[string]) (*batch.Result, error)
}

// RuleImporter saves an uploaded rules catalog
type RuleImporter interface {
	Import(ctx context.Context, actor identity.Actor, upload *batch.Upload, rules []catalog.RuleSet, rejected []ledger.LogEntry) (*batch.Result, error)
}

// Config holds the import knobs
type Config struct {
	// DefaultDueDay applies to sales rows without dia_vencimento
	DefaultDueDay int
	// MaxRows bounds the data rows of one upload; zero means unbounded
	MaxRows int
}

// Service reads uploads and hands the parsed rows to the batch services
type Service struct {
	ledger LedgerBatches
	rules  RuleImporter
	cfg    Config
	logger *zap.Logger
}

// NewService creates an import service
func NewService(ledger LedgerBatches, rules RuleImporter, cfg Config, logger *zap.Logger) *Service {
	if cfg.DefaultDueDay <= 0 {
		cfg.DefaultDueDay = 15
	}
	return &Service{ledger: ledger, rules: rules, cfg: cfg, logger: logger}
}

// Sales generates the installments of a sales sheet
func (s *Service) Sales(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error) {
	sheet, err := s.read(upload)
	if err != nil {
		return nil, err
	}
	in, err := ParseSales(sheet, s.cfg.DefaultDueDay)
	if err != nil {
		return nil, err
	}
	in.Upload = upload
	s.logParsed("sales", upload, len(in.Rows), len(in.Rejected))
	return s.ledger.Intake(ctx, actor, in)
}

// Statement reconciles an administrator payment statement
func (s *Service) Statement(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error) {
	sheet, err := s.read(upload)
	if err != nil {
		return nil, err
	}
	in, err := ParseStatement(sheet)
	if err != nil {
		return nil, err
	}
	in.Upload = upload
	s.logParsed("statement", upload, len(in.Rows), len(in.Rejected))
	return s.ledger.Reconcile(ctx, actor, in)
}

// Cancellations cancels the sales listed in the sheet
func (s *Service) Cancellations(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error) {
	sheet, err := s.read(upload)
	if err != nil {
		return nil, err
	}
	in, err := ParseCancellations(sheet)
	if err != nil {
		return nil, err
	}
	in.Upload = upload
	s.logParsed("cancellations", upload, len(in.Rows), len(in.Rejected))
	return s.ledger.Cancel(ctx, actor, in)
}

// Edits applies a batch edit sheet
func (s *Service) Edits(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error) {
	sheet, err := s.read(upload)
	if err != nil {
		return nil, err
	}
	in, err := ParseEdits(sheet)
	if err != nil {
		return nil, err
	}
	in.Upload = upload
	s.logParsed("edits", upload, len(in.Rows), len(in.Rejected))
	return s.ledger.Edit(ctx, actor, in)
}

// Deletes removes the installments listed in the sheet
func (s *Service) Deletes(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error) {
	sheet, err := s.read(upload)
	if err != nil {
		return nil, err
	}
	in, err := ParseDeletes(sheet)
	if err != nil {
		return nil, err
	}
	in.Upload = upload
	s.logParsed("deletes", upload, len(in.Rows), 0)
	return s.ledger.Delete(ctx, actor, in)
}

// Rules upserts the rule sets of a catalog sheet
func (s *Service) Rules(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error) {
	sheet, err := s.read(upload)
	if err != nil {
		return nil, err
	}
	rules, rejected, err := ParseRules(sheet)
	if err != nil {
		return nil, err
	}
	s.logParsed("rules", upload, len(rules), len(rejected))
	return s.rules.Import(ctx, actor, upload, rules, rejected)
}

func (s *Service) read(upload *batch.Upload) (*spreadsheet.Sheet, error) {
	if upload == nil || len(upload.Data) == 0 {
		return nil, shared.NewDomainError("INVALID_FILE", spreadsheet.ErrEmptyFile.Error())
	}
	format, err := spreadsheet.ParseFormat(upload.FileName)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_FILE", err.Error())
	}
	var opts []spreadsheet.ReadOption
	if s.cfg.MaxRows > 0 {
		opts = append(opts, spreadsheet.WithMaxRows(s.cfg.MaxRows))
	}
	sheet, err := spreadsheet.Read(bytes.NewReader(upload.Data), format, opts...)
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, shared.NewDomainError("INVALID_FILE", err.Error())
	}
	return sheet, nil
}

func (s *Service) logParsed(kind string, upload *batch.Upload, rows, rejected int) {
	s.logger.Info("Upload parsed",
		zap.String("kind", kind),
		zap.String("file", upload.FileName),
		zap.Int("rows", rows),
		zap.Int("rejected", rejected))
}
