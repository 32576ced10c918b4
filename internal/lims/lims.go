// Package lims adapts the external Laboratory Information Management System
// behind a narrow gateway interface. The LIMS is the source of truth for
// physical lab identifiers; this package only translates and transports.
package lims

import (
	"context"

	"cg/pkg/orderapi"
)

// ProjectSample is the LIMS-shaped projection of one new sample.
type ProjectSample struct {
	Name          string            `json:"name"`
	Container     string            `json:"container,omitempty"`
	ContainerName string            `json:"container_name,omitempty"`
	WellPosition  string            `json:"well_position,omitempty"`
	UDFs          map[string]string `json:"udfs,omitempty"`
}

// ProjectInfo describes a submitted LIMS project.
type ProjectInfo struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

// Gateway is the minimal LIMS contract consumed by the order-intake pipeline.
// Process submits one project containing every new sample of an order and
// returns the name to LIMS-id mapping for those samples.
type Gateway interface {
	Process(ctx context.Context, samples []orderapi.Sample, customer, ticket string) (ProjectInfo, map[string]string, error)
	UpdateSample(ctx context.Context, internalID string, targetReads int64) error
}

// Project builds the LIMS projection for the new samples of an order.
// Samples that already carry an internal id are excluded: the LIMS project
// only allocates identifiers for brand-new samples.
func Project(samples []orderapi.Sample) []ProjectSample {
	var out []ProjectSample
	for _, s := range samples {
		if !s.IsNew() {
			continue
		}
		ps := ProjectSample{
			Name:          s.Name,
			Container:     s.Container,
			ContainerName: s.ContainerName,
			WellPosition:  s.WellPosition,
			UDFs:          map[string]string{},
		}
		if s.Application != "" {
			ps.UDFs["application"] = s.Application
		}
		if s.Source != "" {
			ps.UDFs["source"] = s.Source
		}
		if s.Organism != "" {
			ps.UDFs["organism"] = s.Organism
		}
		if s.ReferenceGenome != "" {
			ps.UDFs["reference_genome"] = s.ReferenceGenome
		}
		if s.Pool != "" {
			ps.UDFs["pool"] = s.Pool
		}
		out = append(out, ps)
	}
	return out
}
