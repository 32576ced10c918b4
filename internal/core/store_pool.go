package core

import (
	"context"
	"fmt"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// storePoolOrder persists a pool-family order. Each pool becomes one Pool
// row plus one derived case named "<ticket>-<pool>"; member samples carry
// no_invoice because billing happens at the pool level.
func (s *Service) storePoolOrder(ctx context.Context, order *orderapi.Order, ids map[string]string, res *SubmissionResult) error {
	var committed []string
	for _, group := range caseGroups(order) {
		var (
			kase    domain.Case
			pool    domain.Pool
			created []domain.Sample
		)
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			view := tx.Snapshot()
			first := group.Samples[0]
			ver, ok := view.CurrentApplicationVersion(first.Application)
			if !ok {
				return fmt.Errorf("application %q has no active version", first.Application)
			}
			var err error
			pool, err = tx.CreatePool(domain.Pool{
				Name:                 first.Pool,
				CustomerID:           order.Customer,
				ApplicationVersionID: ver.ID,
				Ticket:               order.Ticket,
				OrderedAt:            s.now(),
			})
			if err != nil {
				return err
			}
			kase, err = tx.CreateCase(domain.Case{
				InternalID:   newInternalID(internalIDTaken(view)),
				Name:         group.Name,
				CustomerID:   order.Customer,
				Workflow:     order.Type.Workflow(),
				DataDelivery: order.DataDelivery,
				Priority:     caseGroupPriority(group.Samples),
				Tickets:      order.Ticket,
				Action:       domain.ActionAnalyze,
			})
			if err != nil {
				return err
			}
			for _, os := range group.Samples {
				internalID := os.InternalID
				if internalID == "" {
					internalID = ids[os.Name]
					if internalID == "" {
						internalID = newInternalID(internalIDTaken(view))
					}
					sample, err := s.buildSample(view, order, os, internalID)
					if err != nil {
						return err
					}
					sample.NoInvoice = true
					sample.PoolID = &pool.ID
					stored, err := tx.CreateSample(sample)
					if err != nil {
						return err
					}
					created = append(created, stored)
				} else if _, ok := view.FindSample(internalID); !ok {
					return fmt.Errorf("sample %q not found", internalID)
				}
				if err := upsertLink(tx, view, domain.CaseSample{
					CaseID:   kase.InternalID,
					SampleID: internalID,
					Status:   os.Status,
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			if recErr := s.recordOrder(ctx, order, committed); recErr != nil {
				return fmt.Errorf("store pool %q: %v (and %w)", group.Name, err, recErr)
			}
			return fmt.Errorf("store pool %q: %w", group.Name, err)
		}
		committed = append(committed, kase.InternalID)
		res.Cases = append(res.Cases, kase)
		res.Pools = append(res.Pools, pool)
		res.Samples = append(res.Samples, created...)
	}
	return s.recordOrder(ctx, order, committed)
}
