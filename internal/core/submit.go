// Package core implements order intake: parsing dispatch, business
// validation, LIMS coordination and transactional storage of accepted
// orders. The submission pipeline is validate-then-write; validation is
// read-only and collects every violation before anything is persisted.
package core

import (
	"context"
	"fmt"
	"time"

	"cg/internal/lims"
	"cg/pkg/domain"
	"cg/pkg/orderapi"
)

// Archiver persists raw order payloads before any external side effect, so a
// failed or drifted submission can always be replayed from the archived bytes.
type Archiver interface {
	Archive(ctx context.Context, key string, payload []byte) error
}

// storeFunc persists an accepted order. The ids map carries LIMS-allocated
// internal ids for new samples keyed by sample name; samples the caller
// submitted with an internal id are never reassigned.
type storeFunc func(ctx context.Context, order *orderapi.Order, ids map[string]string, res *SubmissionResult) error

// handler couples the validation rules and the storage routine for one
// order type.
type handler struct {
	rules []OrderRule
	store storeFunc
}

// SubmissionResult reports what a successful submission produced.
type SubmissionResult struct {
	Project  *lims.ProjectInfo  `json:"project,omitempty"`
	Cases    []domain.Case      `json:"cases,omitempty"`
	Samples  []domain.Sample    `json:"samples,omitempty"`
	Pools    []domain.Pool      `json:"pools,omitempty"`
	Warnings []domain.Violation `json:"warnings,omitempty"`
}

// Service is the order-intake facade. It owns the order-type registry and
// drives every submission through the same pipeline: parse, validate,
// archive, allocate ids in LIMS, store.
type Service struct {
	store    domain.PersistentStore
	lims     lims.Gateway
	archive  Archiver
	metrics  MetricsRecorder
	registry map[orderapi.OrderType]handler
	now      func() time.Time
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithArchive enables raw payload archival.
func WithArchive(a Archiver) Option {
	return func(s *Service) { s.archive = a }
}

// WithMetrics enables submission metrics.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNowFunc overrides the time provider; used by tests to pin timestamps.
func WithNowFunc(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

// NewService constructs the intake facade over a store and a LIMS gateway
// with the default order-type registry.
func NewService(store domain.PersistentStore, gateway lims.Gateway, opts ...Option) *Service {
	s := &Service{
		store: store,
		lims:  gateway,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = s.defaultRegistry()
	return s
}

// defaultRegistry wires validation and storage per order type. Every order
// type shares the customer, application, visibility and sex checks; case and
// pool families additionally reject case name collisions because their case
// names are caller-chosen. Derived-name families reuse cases instead.
func (s *Service) defaultRegistry() map[orderapi.OrderType]handler {
	shared := []OrderRule{
		CustomerKnownRule(),
		ApplicationValidRule(),
		SampleVisibilityRule(),
		SexConsistencyRule(),
	}
	caseRules := append(append([]OrderRule{}, shared...), CaseNameCollisionRule())
	rnafusionRules := append(append([]OrderRule{}, caseRules...), SingleSamplePerCaseRule())
	poolRules := append(append([]OrderRule{}, shared...), CaseNameCollisionRule(), PoolConsistencyRule())
	mutantRules := append(append([]OrderRule{}, shared...), SampleNameUniqueRule(true))
	pacbioRules := append(append([]OrderRule{}, shared...), SampleNameUniqueRule(false))

	return map[orderapi.OrderType]handler{
		orderapi.OrderMIPDNA:    {rules: caseRules, store: s.storeCaseOrder},
		orderapi.OrderBalsamic:  {rules: caseRules, store: s.storeCaseOrder},
		orderapi.OrderTomte:     {rules: caseRules, store: s.storeCaseOrder},
		orderapi.OrderRNAFusion: {rules: rnafusionRules, store: s.storeCaseOrder},
		orderapi.OrderRML:       {rules: poolRules, store: s.storePoolOrder},
		orderapi.OrderFluffy:    {rules: poolRules, store: s.storePoolOrder},
		orderapi.OrderFastq:     {rules: shared, store: s.storeFastqOrder},
		orderapi.OrderMutant:    {rules: mutantRules, store: s.storeMicrobialOrder},
		orderapi.OrderMicrosalt: {rules: shared, store: s.storeMicrobialOrder},
		orderapi.OrderPacBio:    {rules: pacbioRules, store: s.storePacBioOrder},
	}
}

// OrderTypes lists the order types the service accepts.
func (s *Service) OrderTypes() []orderapi.OrderType {
	return orderapi.AllOrderTypes()
}

// Submit runs one raw payload through the full intake pipeline and returns
// what was stored. Errors are typed: orderapi.MalformedOrderError for
// unparseable payloads, OrderError for business rejections.
func (s *Service) Submit(ctx context.Context, raw []byte, typ orderapi.OrderType) (*SubmissionResult, error) {
	started := time.Now()
	res, err := s.submit(ctx, raw, typ)
	if s.metrics != nil {
		s.metrics.ObserveSubmission(string(typ), submissionOutcome(err), time.Since(started))
	}
	return res, err
}

func submissionOutcome(err error) string {
	switch err.(type) {
	case nil:
		return "accepted"
	case orderapi.MalformedOrderError:
		return "malformed"
	case OrderError:
		return "rejected"
	default:
		return "error"
	}
}

func (s *Service) submit(ctx context.Context, raw []byte, typ orderapi.OrderType) (*SubmissionResult, error) {
	order, err := orderapi.Parse(raw, typ)
	if err != nil {
		return nil, err
	}
	h, ok := s.registry[typ]
	if !ok {
		return nil, fmt.Errorf("no submitter registered for order type %q", typ)
	}

	var checked domain.Result
	if err := s.store.View(ctx, func(view domain.TransactionView) error {
		checked = runOrderRules(ctx, view, order, h.rules)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("validate order: %w", err)
	}
	if checked.HasBlocking() {
		return nil, OrderError{Violations: checked.Violations}
	}

	res := &SubmissionResult{Warnings: checked.Violations}

	if s.archive != nil {
		key := fmt.Sprintf("orders/%s/%s-%d.json", order.Ticket, typ, s.now().UnixNano())
		if err := s.archive.Archive(ctx, key, raw); err != nil {
			return nil, fmt.Errorf("archive order payload: %w", err)
		}
	}

	info, ids, err := s.lims.Process(ctx, order.Samples, order.Customer, order.Ticket)
	if err != nil {
		return nil, fmt.Errorf("lims project submission: %w", err)
	}
	if info.ID != "" {
		res.Project = &info
	}
	if ids == nil {
		ids = map[string]string{}
	}

	if err := h.store(ctx, order, ids, res); err != nil {
		return res, err
	}
	return res, nil
}

// recordOrder writes the audit row linking a ticket to the cases it touched.
// It is written even when later case groups failed, so partially committed
// submissions stay discoverable by ticket.
func (s *Service) recordOrder(ctx context.Context, order *orderapi.Order, caseIDs []string) error {
	if len(caseIDs) == 0 {
		return nil
	}
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateOrder(domain.Order{
			CustomerID: order.Customer,
			Ticket:     order.Ticket,
			OrderedAt:  s.now(),
			CaseIDs:    caseIDs,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("record order audit row: %w", err)
	}
	return nil
}

// caseGroupPriority derives the case priority from its samples: the most
// urgent sample wins.
func caseGroupPriority(samples []orderapi.Sample) domain.Priority {
	rank := map[domain.Priority]int{
		domain.PriorityResearch: 0,
		domain.PriorityStandard: 1,
		domain.PriorityPriority: 2,
		domain.PriorityExpress:  3,
	}
	best := domain.PriorityStandard
	bestRank := -1
	for _, s := range samples {
		if r, ok := rank[s.Priority]; ok && r > bestRank {
			best = s.Priority
			bestRank = r
		}
	}
	return best
}

// collectStrings unions string slices preserving first-occurrence order.
func collectStrings(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, v := range list {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
