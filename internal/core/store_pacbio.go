package core

import (
	"context"
	"fmt"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// storePacBioOrder persists a pacbio order: one case per sample, named after
// the sample, created on first sight and reused afterwards. Long-read orders
// never spawn quality-control cases.
func (s *Service) storePacBioOrder(ctx context.Context, order *orderapi.Order, ids map[string]string, res *SubmissionResult) error {
	var committed []string
	for _, group := range caseGroups(order) {
		os := group.Samples[0]
		var kase domain.Case
		var created []domain.Sample
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			view := tx.Snapshot()
			var err error
			kase, err = s.ensureCase(tx, view, order.Customer, group.Name, caseShape{
				Workflow:     order.Type.Workflow(),
				DataDelivery: order.DataDelivery,
				Priority:     caseGroupPriority(group.Samples),
				Ticket:       order.Ticket,
			})
			if err != nil {
				return err
			}
			nameToID, samples, err := s.materializeSamples(tx, view, order, group.Samples, ids)
			if err != nil {
				return err
			}
			created = samples
			return upsertLink(tx, view, domain.CaseSample{
				CaseID:   kase.InternalID,
				SampleID: nameToID[os.Name],
				Status:   os.Status,
			})
		})
		if err != nil {
			if recErr := s.recordOrder(ctx, order, committed); recErr != nil {
				return fmt.Errorf("store pacbio sample %q: %v (and %w)", os.Name, err, recErr)
			}
			return fmt.Errorf("store pacbio sample %q: %w", os.Name, err)
		}
		committed = append(committed, kase.InternalID)
		res.Cases = append(res.Cases, kase)
		res.Samples = append(res.Samples, created...)
	}
	return s.recordOrder(ctx, order, committed)
}
