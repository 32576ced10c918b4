package core

import (
	"context"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// CustomerKnownRule rejects orders from customers missing in the store.
func CustomerKnownRule() OrderRule {
	return customerKnownRule{}
}

type customerKnownRule struct{}

func (customerKnownRule) Name() string { return "customer_known" }

func (customerKnownRule) Evaluate(_ context.Context, view domain.TransactionView, order *orderapi.Order) []domain.Violation {
	if _, ok := view.FindCustomer(order.Customer); !ok {
		return []domain.Violation{orderErrorf("customer_known", domain.EntityCustomer, order.Customer,
			"unknown customer %q", order.Customer)}
	}
	return nil
}
