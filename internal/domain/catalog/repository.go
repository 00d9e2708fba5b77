package catalog

import "context"

// RuleSetRepository persists rule sets keyed by product type
type RuleSetRepository interface {
	FindAll(ctx context.Context) ([]RuleSet, error)
	FindByProductType(ctx context.Context, productType string) (*RuleSet, error)
	// Upsert replaces the rule set stored under the same product type
	Upsert(ctx context.Context, rule *RuleSet) error
	Delete(ctx context.Context, productType string) error
}
