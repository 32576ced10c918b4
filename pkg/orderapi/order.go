// Package orderapi defines the typed order payloads accepted by the intake
// surface and the parsing that turns raw customer submissions into them.
// Parsing is a pure transformation: no store access, no side effects.
package orderapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"cg/pkg/domain"
)

// OrderType tags a submitted payload with the workflow it orders.
type OrderType string

// Order types routed by the submission registry.
const (
	OrderMIPDNA    OrderType = "mip-dna"
	OrderBalsamic  OrderType = "balsamic"
	OrderRNAFusion OrderType = "rnafusion"
	OrderTomte     OrderType = "tomte"
	OrderFastq     OrderType = "fastq"
	OrderRML       OrderType = "rml"
	OrderFluffy    OrderType = "fluffy"
	OrderMutant    OrderType = "mutant"
	OrderMicrosalt OrderType = "microsalt"
	OrderPacBio    OrderType = "pacbio"
)

// Family groups order types that share parsing, validation and storage logic.
type Family string

// Workflow families recognised by the intake pipeline.
const (
	FamilyCase      Family = "case"
	FamilyPool      Family = "pool"
	FamilyFastq     Family = "fastq"
	FamilyMicrobial Family = "microbial"
	FamilyPacBio    Family = "pacbio"
)

// AllOrderTypes lists every order type the registry must cover.
func AllOrderTypes() []OrderType {
	return []OrderType{
		OrderMIPDNA, OrderBalsamic, OrderRNAFusion, OrderTomte,
		OrderFastq, OrderRML, OrderFluffy, OrderMutant, OrderMicrosalt,
		OrderPacBio,
	}
}

// Family resolves the workflow family an order type belongs to.
func (t OrderType) Family() Family {
	switch t {
	case OrderMIPDNA, OrderBalsamic, OrderRNAFusion, OrderTomte:
		return FamilyCase
	case OrderRML, OrderFluffy:
		return FamilyPool
	case OrderFastq:
		return FamilyFastq
	case OrderMutant, OrderMicrosalt:
		return FamilyMicrobial
	case OrderPacBio:
		return FamilyPacBio
	}
	return ""
}

// Workflow maps an order type to the pipeline recorded on stored cases.
func (t OrderType) Workflow() domain.Workflow {
	switch t {
	case OrderMIPDNA:
		return domain.WorkflowMIPDNA
	case OrderBalsamic:
		return domain.WorkflowBalsamic
	case OrderRNAFusion:
		return domain.WorkflowRNAFusion
	case OrderTomte:
		return domain.WorkflowTomte
	case OrderFastq:
		return domain.WorkflowRaw
	case OrderRML:
		return domain.WorkflowRML
	case OrderFluffy:
		return domain.WorkflowFluffy
	case OrderMutant:
		return domain.WorkflowMutant
	case OrderMicrosalt:
		return domain.WorkflowMicrosalt
	case OrderPacBio:
		return domain.WorkflowPacBio
	}
	return ""
}

// MalformedOrderError reports a payload that cannot be turned into a typed
// order. It is raised before any store interaction occurs.
type MalformedOrderError struct {
	Field  string
	Sample string
	Reason string
}

func (e MalformedOrderError) Error() string {
	if e.Sample != "" {
		return fmt.Sprintf("malformed order: sample %q: %s (%s)", e.Sample, e.Reason, e.Field)
	}
	return fmt.Sprintf("malformed order: %s (%s)", e.Reason, e.Field)
}

// Order is a parsed, normalized order submission.
type Order struct {
	Type         OrderType           `json:"order_type"`
	Customer     string              `json:"customer"`
	Name         string              `json:"name"`
	Ticket       string              `json:"ticket"`
	Comment      string              `json:"comment,omitempty"`
	DataDelivery domain.DataDelivery `json:"data_delivery"`
	Samples      []Sample            `json:"samples"`
}

// rawOrder mirrors the wire shape before normalization.
type rawOrder struct {
	Customer     string      `json:"customer"`
	Name         string      `json:"name"`
	Ticket       string      `json:"ticket"`
	Comment      string      `json:"comment"`
	DataDelivery string      `json:"data_delivery"`
	Samples      []rawSample `json:"samples"`
}

// Parse deserializes a raw payload tagged with an order type into a typed,
// normalized Order. Required-for-new-sample fields are enforced here; fields
// are only required when the sample does not reference an existing internal id.
func Parse(raw []byte, typ OrderType) (*Order, error) {
	if typ.Family() == "" {
		return nil, MalformedOrderError{Field: "order_type", Reason: fmt.Sprintf("unknown order type %q", typ)}
	}
	var ro rawOrder
	if err := json.Unmarshal(raw, &ro); err != nil {
		return nil, MalformedOrderError{Field: "payload", Reason: err.Error()}
	}
	ro.Customer = strings.TrimSpace(ro.Customer)
	if ro.Customer == "" {
		return nil, MalformedOrderError{Field: "customer", Reason: "customer is required"}
	}
	ro.Ticket = strings.TrimSpace(ro.Ticket)
	if ro.Ticket == "" {
		return nil, MalformedOrderError{Field: "ticket", Reason: "ticket is required"}
	}
	if len(ro.Samples) == 0 {
		return nil, MalformedOrderError{Field: "samples", Reason: "order contains no samples"}
	}

	order := &Order{
		Type:     typ,
		Customer: ro.Customer,
		Name:     strings.TrimSpace(ro.Name),
		Ticket:   ro.Ticket,
		Comment:  strings.TrimSpace(ro.Comment),
	}
	delivery, err := parseDelivery(ro.DataDelivery)
	if err != nil {
		return nil, err
	}
	order.DataDelivery = delivery

	for i := range ro.Samples {
		sample, err := normalizeSample(ro.Samples[i], typ)
		if err != nil {
			return nil, err
		}
		order.Samples = append(order.Samples, sample)
	}
	return order, nil
}

func parseDelivery(raw string) (domain.DataDelivery, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "":
		return domain.DeliveryNoDelivery, nil
	case string(domain.DeliveryAnalysis):
		return domain.DeliveryAnalysis, nil
	case string(domain.DeliveryFastq):
		return domain.DeliveryFastq, nil
	case string(domain.DeliveryScout):
		return domain.DeliveryScout, nil
	case string(domain.DeliveryNoDelivery):
		return domain.DeliveryNoDelivery, nil
	}
	return "", MalformedOrderError{Field: "data_delivery", Reason: fmt.Sprintf("unknown delivery type %q", raw)}
}
