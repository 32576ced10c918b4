package core

import (
	"cg/pkg/orderapi"
)

// caseGroup is the unit of storage isolation: each group is committed in its
// own transaction, and grouping is deterministic (identical name, identical
// case). Groups preserve the first-occurrence order of the payload.
type caseGroup struct {
	// Name is the case name the group resolves to (possibly derived).
	Name string
	// RerunID is the referenced case internal id when the group is a rerun.
	RerunID string
	// Samples are the order samples belonging to this group, in payload order.
	Samples []orderapi.Sample
}

// caseGroups partitions an order's samples into case groups according to the
// order's workflow family.
func caseGroups(order *orderapi.Order) []caseGroup {
	switch order.Type.Family() {
	case orderapi.FamilyCase:
		return groupByCaseName(order)
	case orderapi.FamilyPool:
		return groupByPool(order)
	case orderapi.FamilyFastq, orderapi.FamilyPacBio:
		return groupBySampleName(order)
	case orderapi.FamilyMicrobial:
		return groupByTicket(order)
	}
	return nil
}

// groupByCaseName groups by the case name: identical name, identical case.
// A sample naming only the case internal id keys on the id instead. Any
// member carrying a case internal id marks the whole group a rerun.
func groupByCaseName(order *orderapi.Order) []caseGroup {
	index := make(map[string]int)
	var groups []caseGroup
	for _, s := range order.Samples {
		key := s.CaseName
		if key == "" {
			key = s.CaseInternalID
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, caseGroup{Name: s.CaseName})
		}
		if groups[i].RerunID == "" && s.CaseInternalID != "" {
			groups[i].RerunID = s.CaseInternalID
		}
		if groups[i].Name == "" && s.CaseName != "" {
			groups[i].Name = s.CaseName
		}
		groups[i].Samples = append(groups[i].Samples, s)
	}
	return groups
}

// groupByPool derives one case per pool, named "<ticket>-<pool>".
func groupByPool(order *orderapi.Order) []caseGroup {
	index := make(map[string]int)
	var groups []caseGroup
	for _, s := range order.Samples {
		i, ok := index[s.Pool]
		if !ok {
			i = len(groups)
			index[s.Pool] = i
			groups = append(groups, caseGroup{Name: order.Ticket + "-" + s.Pool})
		}
		groups[i].Samples = append(groups[i].Samples, s)
	}
	return groups
}

// groupBySampleName derives one case per sample, named after the sample.
func groupBySampleName(order *orderapi.Order) []caseGroup {
	groups := make([]caseGroup, 0, len(order.Samples))
	for _, s := range order.Samples {
		groups = append(groups, caseGroup{
			Name:    s.Name,
			RerunID: s.CaseInternalID,
			Samples: []orderapi.Sample{s},
		})
	}
	return groups
}

// groupByTicket collects the whole order into one case named by its ticket.
func groupByTicket(order *orderapi.Order) []caseGroup {
	name := order.Name
	if name == "" {
		name = order.Ticket
	}
	return []caseGroup{{Name: name, Samples: order.Samples}}
}
