package core

import (
	"context"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// SexConsistencyRule rejects orders that contradict the sex recorded for a
// subject by earlier orders, or within the submission itself. Unknown sex
// never conflicts with anything.
func SexConsistencyRule() OrderRule {
	return sexConsistencyRule{}
}

type sexConsistencyRule struct{}

func (sexConsistencyRule) Name() string { return "sex_consistency" }

func (sexConsistencyRule) Evaluate(_ context.Context, view domain.TransactionView, order *orderapi.Order) []domain.Violation {
	var out []domain.Violation
	// subject -> first known sex seen in this submission
	submitted := make(map[string]domain.Sex)
	for _, s := range order.Samples {
		if s.SubjectID == "" || s.Sex == domain.SexUnknown {
			continue
		}
		if prev, ok := submitted[s.SubjectID]; ok && prev != s.Sex {
			out = append(out, orderErrorf("sex_consistency", domain.EntitySample, s.Name,
				"subject %q submitted with conflicting sexes %q and %q", s.SubjectID, prev, s.Sex))
			continue
		}
		submitted[s.SubjectID] = s.Sex

		for _, stored := range view.SamplesBySubject(order.Customer, s.SubjectID) {
			if stored.InternalID == s.InternalID {
				continue
			}
			if stored.Sex != domain.SexUnknown && stored.Sex != s.Sex {
				out = append(out, orderErrorf("sex_consistency", domain.EntitySample, s.Name,
					"sample %q subject %q has sex %q but %q is stored", s.Name, s.SubjectID, s.Sex, stored.Sex))
				break
			}
		}
	}
	return out
}
