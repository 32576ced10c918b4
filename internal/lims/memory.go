package lims

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cg/pkg/orderapi"
)

// MemoryGateway is an in-process LIMS double for tests and the memory storage
// driver. Allocated ids are deterministic per gateway instance.
type MemoryGateway struct {
	mu       sync.Mutex
	seq      int
	Projects []ProjectInfo
	Updates  map[string]int64
	// FailNext forces the next Process call to fail, for drift-path tests.
	FailNext error
}

// NewMemoryGateway constructs an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{Updates: make(map[string]int64)}
}

var _ Gateway = (*MemoryGateway)(nil)

// Process allocates sequential ids for the new samples of the order.
func (g *MemoryGateway) Process(_ context.Context, samples []orderapi.Sample, customer, ticket string) (ProjectInfo, map[string]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.FailNext; err != nil {
		g.FailNext = nil
		return ProjectInfo{}, nil, err
	}
	projectSamples := Project(samples)
	if len(projectSamples) == 0 {
		return ProjectInfo{}, nil, nil
	}
	g.seq++
	info := ProjectInfo{ID: fmt.Sprintf("LIMS-%s-%d", customer, g.seq), Date: time.Now().UTC().Format("2006-01-02")}
	ids := make(map[string]string, len(projectSamples))
	for _, s := range projectSamples {
		g.seq++
		ids[s.Name] = fmt.Sprintf("LIM%06d", g.seq)
	}
	g.Projects = append(g.Projects, info)
	return info, ids, nil
}

// UpdateSample records the requested target read count.
func (g *MemoryGateway) UpdateSample(_ context.Context, internalID string, targetReads int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Updates[internalID] = targetReads
	return nil
}
