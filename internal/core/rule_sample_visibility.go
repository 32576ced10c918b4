package core

import (
	"context"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// SampleVisibilityRule checks that every referenced existing sample is owned
// by the submitting customer or by one of its collaborators.
func SampleVisibilityRule() OrderRule {
	return sampleVisibilityRule{}
}

type sampleVisibilityRule struct{}

func (sampleVisibilityRule) Name() string { return "sample_visibility" }

func (sampleVisibilityRule) Evaluate(_ context.Context, view domain.TransactionView, order *orderapi.Order) []domain.Violation {
	submitter, ok := view.FindCustomer(order.Customer)
	if !ok {
		// customer_known reports the missing customer.
		return nil
	}
	var out []domain.Violation
	for _, s := range order.Samples {
		if s.IsNew() {
			continue
		}
		stored, ok := view.FindSample(s.InternalID)
		if !ok {
			out = append(out, orderErrorf("sample_visibility", domain.EntitySample, s.InternalID,
				"sample %q (%s) not found", s.Name, s.InternalID))
			continue
		}
		if stored.CustomerID == submitter.InternalID {
			continue
		}
		owner, haveOwner := view.FindCustomer(stored.CustomerID)
		if submitter.Collaborates(stored.CustomerID) || (haveOwner && owner.Collaborates(submitter.InternalID)) {
			continue
		}
		out = append(out, orderErrorf("sample_visibility", domain.EntitySample, s.InternalID,
			"sample %q (%s) not available to customer %q", s.Name, s.InternalID, submitter.InternalID))
	}
	return out
}
