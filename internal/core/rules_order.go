package core

import (
	"context"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// OrderRule is a read-only pre-write check executed against a store snapshot.
// Rules accumulate violations rather than failing fast so that callers see
// every problem with an order in one response.
type OrderRule interface {
	Name() string
	Evaluate(ctx context.Context, view domain.TransactionView, order *orderapi.Order) []domain.Violation
}

// runOrderRules evaluates every rule and aggregates the violations.
func runOrderRules(ctx context.Context, view domain.TransactionView, order *orderapi.Order, rules []OrderRule) domain.Result {
	var res domain.Result
	for _, rule := range rules {
		res.Violations = append(res.Violations, rule.Evaluate(ctx, view, order)...)
	}
	return res
}

// NewDefaultRulesEngine builds the store-level rules engine with the built-in
// integrity policy. These rules run at commit time inside every transaction,
// behind the order-level validation.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(PedigreeIntegrityRule())
	return engine
}
