package core

import (
	"context"
	"fmt"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// mafCustomerID owns the synthetic quality-control cases auto-created for
// non-tumour whole-genome fastq samples.
const mafCustomerID = "cust000"

// mafPanel is the gene panel applied to auto-created quality-control cases.
const mafPanel = "OMIM-AUTO"

// storeFastqOrder persists a fastq order: one case per sample, named after
// the sample, created on first sight and reused afterwards. Non-tumour
// whole-genome samples additionally get a synthetic quality-control case.
func (s *Service) storeFastqOrder(ctx context.Context, order *orderapi.Order, ids map[string]string, res *SubmissionResult) error {
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
			sampleID := nameToID[os.Name]
			if err := upsertLink(tx, view, domain.CaseSample{
				CaseID:   kase.InternalID,
				SampleID: sampleID,
				Status:   os.Status,
			}); err != nil {
				return err
			}
			if s.wantsMAFCase(view, os) {
				if err := s.ensureMAFCase(tx, view, order, os, sampleID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			if recErr := s.recordOrder(ctx, order, committed); recErr != nil {
				return fmt.Errorf("store fastq sample %q: %v (and %w)", os.Name, err, recErr)
			}
			return fmt.Errorf("store fastq sample %q: %w", os.Name, err)
		}
		committed = append(committed, kase.InternalID)
		res.Cases = append(res.Cases, kase)
		res.Samples = append(res.Samples, created...)
	}
	return s.recordOrder(ctx, order, committed)
}

// caseShape carries the case attributes applied when a derived-name case is
// first created.
type caseShape struct {
	Workflow     domain.Workflow
	DataDelivery domain.DataDelivery
	Priority     domain.Priority
	Panels       []string
	Ticket       string
}

// ensureCase finds the customer's case by name or creates it. Existing cases
// get the new ticket appended and their action reset to analyze; their other
// attributes are left alone.
func (s *Service) ensureCase(tx domain.Transaction, view domain.TransactionView, customerID, name string, shape caseShape) (domain.Case, error) {
	if existing, ok := view.FindCaseByName(customerID, name); ok {
		return tx.UpdateCase(existing.InternalID, func(c *domain.Case) error {
			c.AppendTicket(shape.Ticket)
			c.Action = domain.ActionAnalyze
			return nil
		})
	}
	return tx.CreateCase(domain.Case{
		InternalID:   newInternalID(internalIDTaken(view)),
		Name:         name,
		CustomerID:   customerID,
		Workflow:     shape.Workflow,
		DataDelivery: shape.DataDelivery,
		Priority:     shape.Priority,
		Panels:       shape.Panels,
		Tickets:      shape.Ticket,
		Action:       domain.ActionAnalyze,
	})
}

// wantsMAFCase reports whether a sample qualifies for the synthetic
// quality-control case: new, non-tumour, whole-genome prep.
func (s *Service) wantsMAFCase(view domain.TransactionView, os orderapi.Sample) bool {
	if !os.IsNew() || os.Tumour {
		return false
	}
	app, ok := view.FindApplicationByTag(os.Application)
	return ok && app.PrepCategory == domain.PrepWholeGenome
}

// ensureMAFCase creates (or reuses) the synthetic "<name>_MAF" case owned by
// the internal production customer and links the sample into it. The internal
// customer itself is created on demand so fresh databases work unattended.
func (s *Service) ensureMAFCase(tx domain.Transaction, view domain.TransactionView, order *orderapi.Order, os orderapi.Sample, sampleID string) error {
	if _, ok := view.FindCustomer(mafCustomerID); !ok {
		if _, err := tx.CreateCustomer(domain.Customer{
			InternalID: mafCustomerID,
			Name:       "internal production",
			IsTrusted:  true,
		}); err != nil {
			return err
		}
	}
	mafCase, err := s.ensureCase(tx, view, mafCustomerID, os.Name+"_MAF", caseShape{
		Workflow:     domain.WorkflowMIPDNA,
		DataDelivery: domain.DeliveryNoDelivery,
		Priority:     domain.PriorityResearch,
		Panels:       []string{mafPanel},
		Ticket:       order.Ticket,
	})
	if err != nil {
		return err
	}
	return upsertLink(tx, view, domain.CaseSample{
		CaseID:   mafCase.InternalID,
		SampleID: sampleID,
		Status:   domain.StatusUnknown,
	})
}
