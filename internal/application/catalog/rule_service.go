// Package catalog manages the product rule sets that drive installment generation.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RuleService handles rule set management
type RuleService struct {
	scope    transaction.Scope
	repos    transaction.Repositories
	runner   *batch.Runner
	cache    shared.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewRuleService creates a new RuleService
func NewRuleService(
	scope transaction.Scope,
	repos transaction.Repositories,
	runner *batch.Runner,
	c shared.Cache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *RuleService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &RuleService{
		scope:    scope,
		repos:    repos,
		runner:   runner,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// List returns every rule set ordered by product type
func (s *RuleService) List(ctx context.Context) ([]RuleSetResponse, error) {
	rules, err := shared.ReadThrough(ctx, s.cache, shared.CacheKeyRules, s.cacheTTL, s.repos.Rules().FindAll)
	if err != nil {
		return nil, err
	}
	return ToRuleSetResponses(rules), nil
}

// Get returns one rule set by product type
func (s *RuleService) Get(ctx context.Context, productType string) (*RuleSetResponse, error) {
	rule, err := s.repos.Rules().FindByProductType(ctx, strings.TrimSpace(productType))
	if err != nil {
		return nil, err
	}
	resp := ToRuleSetResponse(rule)
	return &resp, nil
}

// Upsert creates a rule set or replaces the one stored under the same product type
func (s *RuleService) Upsert(ctx context.Context, actor identity.Actor, req UpsertRuleRequest) (*RuleSetResponse, error) {
	if !actor.Can(identity.PermRules) {
		return nil, shared.ErrForbidden
	}
	rule, err := req.ToDomain()
	if err != nil {
		return nil, shared.NewDomainError("INVALID_RULE", err.Error())
	}
	rule.Normalize()
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Rules().Upsert(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save rule %s: %w", rule.ProductType, err)
	}
	s.invalidate(ctx)

	s.logger.Info("rule set saved",
		zap.String("product_type", rule.ProductType),
		zap.String("user_id", actor.UserID),
	)
	return s.Get(ctx, rule.ProductType)
}

// Delete removes a rule set. Product types still referenced by installments are kept.
func (s *RuleService) Delete(ctx context.Context, actor identity.Actor, productType string) error {
	if !actor.Can(identity.PermRules) {
		return shared.ErrForbidden
	}
	productType = strings.TrimSpace(productType)
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		if _, err := repos.Rules().FindByProductType(ctx, productType); err != nil {
			return err
		}
		count, err := repos.Installments().CountByProductType(ctx, productType)
		if err != nil {
			return fmt.Errorf("failed to count installments: %w", err)
		}
		if count > 0 {
			return shared.NewDomainError("CONFLICT",
				fmt.Sprintf("Product type %s is used by %d installments", productType, count))
		}
		return repos.Rules().Delete(ctx, productType)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Import upserts the rule sets of an uploaded catalog sheet. Invalid rules are
// logged and skipped; the valid ones are saved in one transaction.
func (s *RuleService) Import(ctx context.Context, actor identity.Actor, upload *batch.Upload, rules []catalog.RuleSet, rejected []ledger.LogEntry) (*batch.Result, error) {
	if !actor.Can(identity.PermRules) {
		return nil, shared.ErrForbidden
	}
	return s.runner.Execute(ctx, batch.Job{
		Operation:  bulk.OperationRules,
		RunBy:      actor.UserID,
		Role:       string(actor.Role),
		Upload:     upload,
		Rows:       len(rules) + len(rejected),
		Invalidate: []string{shared.CacheKeyRules},
		Run: func(ctx context.Context, repos transaction.Repositories) (ledger.BatchReport, error) {
			report := ledger.BatchReport{
				Operation: string(bulk.OperationRules),
				Processed: len(rules) + len(rejected),
				Log:       append([]ledger.LogEntry{}, rejected...),
			}
			for i := range rules {
				rule := rules[i]
				rule.Normalize()
				if err := rule.Validate(); err != nil {
					report.Log = append(report.Log, ledger.LogEntry{Ref: rule.ProductType, Status: ledger.LogError, Detail: err.Error()})
					continue
				}
				if err := repos.Rules().Upsert(ctx, &rule); err != nil {
					return ledger.BatchReport{}, fmt.Errorf("failed to save rule %s: %w", rule.ProductType, err)
				}
				report.Succeeded++
				report.Log = append(report.Log, ledger.LogEntry{Ref: rule.ProductType, Status: ledger.LogSuccess, Detail: "Rule saved"})
			}
			return report, nil
		},
	})
}

func (s *RuleService) invalidate(ctx context.Context) {
	if err := shared.Invalidate(ctx, s.cache, shared.CacheKeyRules); err != nil {
		s.logger.Warn("failed to invalidate rules cache", zap.Error(err))
	}
}
