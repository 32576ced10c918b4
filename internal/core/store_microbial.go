package core

import (
	"context"
	"fmt"
	"strings"

	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// storeMicrobialOrder persists a microbial order: one case per ticket holding
// every sample, with reference organisms created on first use.
func (s *Service) storeMicrobialOrder(ctx context.Context, order *orderapi.Order, ids map[string]string, res *SubmissionResult) error {
	var committed []string
	for _, group := range caseGroups(order) {
		var (
			kase    domain.Case
			created []domain.Sample
		)
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
			organisms := make(map[string]string)
			for _, os := range group.Samples {
				if os.Organism == "" {
					continue
				}
				if _, ok := organisms[os.Organism]; ok {
					continue
				}
				id, err := ensureOrganism(tx, view, os.Organism, os.ReferenceGenome)
				if err != nil {
					return err
				}
				organisms[os.Organism] = id
			}
			nameToID := make(map[string]string, len(group.Samples))
			for _, os := range group.Samples {
				if !os.IsNew() {
					if _, ok := view.FindSample(os.InternalID); !ok {
						return fmt.Errorf("sample %q not found", os.InternalID)
					}
					nameToID[os.Name] = os.InternalID
				} else {
					internalID := ids[os.Name]
					if internalID == "" {
						internalID = newInternalID(internalIDTaken(view))
					}
					sample, err := s.buildSample(view, order, os, internalID)
					if err != nil {
						return err
					}
					if organismID, ok := organisms[os.Organism]; ok {
						id := organismID
						sample.OrganismID = &id
					}
					stored, err := tx.CreateSample(sample)
					if err != nil {
						return err
					}
					created = append(created, stored)
					nameToID[os.Name] = internalID
				}
				if err := upsertLink(tx, view, domain.CaseSample{
					CaseID:   kase.InternalID,
					SampleID: nameToID[os.Name],
					Status:   os.Status,
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			if recErr := s.recordOrder(ctx, order, committed); recErr != nil {
				return fmt.Errorf("store microbial case %q: %v (and %w)", group.Name, err, recErr)
			}
			return fmt.Errorf("store microbial case %q: %w", group.Name, err)
		}
		committed = append(committed, kase.InternalID)
		res.Cases = append(res.Cases, kase)
		res.Samples = append(res.Samples, created...)
	}
	return s.recordOrder(ctx, order, committed)
}

// ensureOrganism finds the organism by its slug or creates an unverified
// record; new organisms await curator verification.
func ensureOrganism(tx domain.Transaction, view domain.TransactionView, name, referenceGenome string) (string, error) {
	slug := organismSlug(name)
	if existing, ok := view.FindOrganism(slug); ok {
		return existing.InternalID, nil
	}
	created, err := tx.CreateOrganism(domain.Organism{
		InternalID:      slug,
		Name:            name,
		ReferenceGenome: referenceGenome,
		Verified:        false,
	})
	if err != nil {
		return "", err
	}
	return created.InternalID, nil
}

func organismSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}
