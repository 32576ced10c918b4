// Package memory provides an in-memory implementation of the status-database
// persistence contracts used for tests and ephemeral environments. It is also
// the canonical transactional engine wrapped by the durable backends.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cg/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.Transaction     = (*transaction)(nil)
	_ domain.TransactionView = (transactionView{})
)

type memoryState struct {
	customers    map[string]domain.Customer           // keyed by customer internal id
	applications map[string]domain.Application        // keyed by application tag
	versions     map[string]domain.ApplicationVersion // keyed by record id
	samples      map[string]domain.Sample             // keyed by sample internal id
	cases        map[string]domain.Case               // keyed by case internal id
	links        map[string]domain.CaseSample         // keyed by caseID+\x00+sampleID
	pools        map[string]domain.Pool
	orders       map[string]domain.Order
	organisms    map[string]domain.Organism // keyed by organism internal id
	analyses     map[string]domain.Analysis
}

func newMemoryState() memoryState {
	return memoryState{
		customers:    make(map[string]domain.Customer),
		applications: make(map[string]domain.Application),
		versions:     make(map[string]domain.ApplicationVersion),
		samples:      make(map[string]domain.Sample),
		cases:        make(map[string]domain.Case),
		links:        make(map[string]domain.CaseSample),
		pools:        make(map[string]domain.Pool),
		orders:       make(map[string]domain.Order),
		organisms:    make(map[string]domain.Organism),
		analyses:     make(map[string]domain.Analysis),
	}
}

// Snapshot captures a point-in-time clone of the store state for durable backends.
type Snapshot struct {
	Customers    []domain.Customer           `json:"customers"`
	Applications []domain.Application        `json:"applications"`
	Versions     []domain.ApplicationVersion `json:"application_versions"`
	Samples      []domain.Sample             `json:"samples"`
	Cases        []domain.Case               `json:"cases"`
	Links        []domain.CaseSample         `json:"case_samples"`
	Pools        []domain.Pool               `json:"pools"`
	Orders       []domain.Order              `json:"orders"`
	Organisms    []domain.Organism           `json:"organisms"`
	Analyses     []domain.Analysis           `json:"analyses"`
}

func linkKey(caseID, sampleID string) string {
	return caseID + "\x00" + sampleID
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	var snap Snapshot
	for _, c := range state.customers {
		snap.Customers = append(snap.Customers, cloneCustomer(c))
	}
	for _, a := range state.applications {
		snap.Applications = append(snap.Applications, a)
	}
	for _, v := range state.versions {
		snap.Versions = append(snap.Versions, cloneVersion(v))
	}
	for _, s := range state.samples {
		snap.Samples = append(snap.Samples, s)
	}
	for _, c := range state.cases {
		snap.Cases = append(snap.Cases, cloneCase(c))
	}
	for _, l := range state.links {
		snap.Links = append(snap.Links, l)
	}
	for _, p := range state.pools {
		snap.Pools = append(snap.Pools, p)
	}
	for _, o := range state.orders {
		snap.Orders = append(snap.Orders, cloneOrder(o))
	}
	for _, o := range state.organisms {
		snap.Organisms = append(snap.Organisms, o)
	}
	for _, a := range state.analyses {
		snap.Analyses = append(snap.Analyses, a)
	}
	sort.Slice(snap.Customers, func(i, j int) bool { return snap.Customers[i].InternalID < snap.Customers[j].InternalID })
	sort.Slice(snap.Applications, func(i, j int) bool { return snap.Applications[i].Tag < snap.Applications[j].Tag })
	sort.Slice(snap.Versions, func(i, j int) bool { return snap.Versions[i].ID < snap.Versions[j].ID })
	sort.Slice(snap.Samples, func(i, j int) bool { return snap.Samples[i].InternalID < snap.Samples[j].InternalID })
	sort.Slice(snap.Cases, func(i, j int) bool { return snap.Cases[i].InternalID < snap.Cases[j].InternalID })
	sort.Slice(snap.Links, func(i, j int) bool {
		if snap.Links[i].CaseID != snap.Links[j].CaseID {
			return snap.Links[i].CaseID < snap.Links[j].CaseID
		}
		return snap.Links[i].SampleID < snap.Links[j].SampleID
	})
	sort.Slice(snap.Pools, func(i, j int) bool { return snap.Pools[i].ID < snap.Pools[j].ID })
	sort.Slice(snap.Orders, func(i, j int) bool { return snap.Orders[i].ID < snap.Orders[j].ID })
	sort.Slice(snap.Organisms, func(i, j int) bool { return snap.Organisms[i].InternalID < snap.Organisms[j].InternalID })
	sort.Slice(snap.Analyses, func(i, j int) bool { return snap.Analyses[i].ID < snap.Analyses[j].ID })
	return snap
}

func memoryStateFromSnapshot(snap Snapshot) memoryState {
	state := newMemoryState()
	for _, c := range snap.Customers {
		state.customers[c.InternalID] = cloneCustomer(c)
	}
	for _, a := range snap.Applications {
		state.applications[a.Tag] = a
	}
	for _, v := range snap.Versions {
		state.versions[v.ID] = cloneVersion(v)
	}
	for _, s := range snap.Samples {
		state.samples[s.InternalID] = s
	}
	for _, c := range snap.Cases {
		state.cases[c.InternalID] = cloneCase(c)
	}
	for _, l := range snap.Links {
		state.links[linkKey(l.CaseID, l.SampleID)] = l
	}
	for _, p := range snap.Pools {
		state.pools[p.ID] = p
	}
	for _, o := range snap.Orders {
		state.orders[o.ID] = cloneOrder(o)
	}
	for _, o := range snap.Organisms {
		state.organisms[o.InternalID] = o
	}
	for _, a := range snap.Analyses {
		state.analyses[a.ID] = a
	}
	return state
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.customers {
		cloned.customers[k] = cloneCustomer(v)
	}
	for k, v := range s.applications {
		cloned.applications[k] = v
	}
	for k, v := range s.versions {
		cloned.versions[k] = cloneVersion(v)
	}
	for k, v := range s.samples {
		cloned.samples[k] = v
	}
	for k, v := range s.cases {
		cloned.cases[k] = cloneCase(v)
	}
	for k, v := range s.links {
		cloned.links[k] = v
	}
	for k, v := range s.pools {
		cloned.pools[k] = v
	}
	for k, v := range s.orders {
		cloned.orders[k] = cloneOrder(v)
	}
	for k, v := range s.organisms {
		cloned.organisms[k] = v
	}
	for k, v := range s.analyses {
		cloned.analyses[k] = v
	}
	return cloned
}

func cloneCustomer(c domain.Customer) domain.Customer {
	cp := c
	cp.CollaboratorIDs = append([]string(nil), c.CollaboratorIDs...)
	return cp
}

func cloneVersion(v domain.ApplicationVersion) domain.ApplicationVersion {
	cp := v
	if v.Prices != nil {
		cp.Prices = make(map[domain.Priority]int64, len(v.Prices))
		for k, p := range v.Prices {
			cp.Prices[k] = p
		}
	}
	return cp
}

func cloneCase(c domain.Case) domain.Case {
	cp := c
	cp.Panels = append([]string(nil), c.Panels...)
	cp.Cohorts = append([]string(nil), c.Cohorts...)
	return cp
}

func cloneOrder(o domain.Order) domain.Order {
	cp := o
	cp.CaseIDs = append([]string(nil), o.CaseIDs...)
	return cp
}

// Store provides an in-memory transactional store for the status database.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snap)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *domain.RulesEngine {
	return s.engine
}

// SetNowFunc overrides the time provider; used by tests to pin timestamps.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []domain.Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the transactional state.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) domain.TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListCustomers() []domain.Customer {
	out := make([]domain.Customer, 0, len(v.state.customers))
	for _, c := range v.state.customers {
		out = append(out, cloneCustomer(c))
	}
	return out
}

func (v transactionView) ListSamples() []domain.Sample {
	out := make([]domain.Sample, 0, len(v.state.samples))
	for _, s := range v.state.samples {
		out = append(out, s)
	}
	return out
}

func (v transactionView) ListCases() []domain.Case {
	out := make([]domain.Case, 0, len(v.state.cases))
	for _, c := range v.state.cases {
		out = append(out, cloneCase(c))
	}
	return out
}

func (v transactionView) ListCaseSamples() []domain.CaseSample {
	out := make([]domain.CaseSample, 0, len(v.state.links))
	for _, l := range v.state.links {
		out = append(out, l)
	}
	return out
}

func (v transactionView) ListPools() []domain.Pool {
	out := make([]domain.Pool, 0, len(v.state.pools))
	for _, p := range v.state.pools {
		out = append(out, p)
	}
	return out
}

func (v transactionView) FindCustomer(internalID string) (domain.Customer, bool) {
	c, ok := v.state.customers[internalID]
	if !ok {
		return domain.Customer{}, false
	}
	return cloneCustomer(c), true
}

func (v transactionView) FindSample(internalID string) (domain.Sample, bool) {
	s, ok := v.state.samples[internalID]
	return s, ok
}

func (v transactionView) FindCase(internalID string) (domain.Case, bool) {
	c, ok := v.state.cases[internalID]
	if !ok {
		return domain.Case{}, false
	}
	return cloneCase(c), true
}

func (v transactionView) FindCaseByName(customerID, name string) (domain.Case, bool) {
	for _, c := range v.state.cases {
		if c.CustomerID == customerID && c.Name == name {
			return cloneCase(c), true
		}
	}
	return domain.Case{}, false
}

func (v transactionView) FindApplicationByTag(tag string) (domain.Application, bool) {
	a, ok := v.state.applications[tag]
	return a, ok
}

func (v transactionView) FindOrganism(internalID string) (domain.Organism, bool) {
	o, ok := v.state.organisms[internalID]
	return o, ok
}

// CurrentApplicationVersion resolves the version with the latest valid_from
// that is not in the future for the given application tag.
func (v transactionView) CurrentApplicationVersion(tag string) (domain.ApplicationVersion, bool) {
	app, ok := v.state.applications[tag]
	if !ok {
		return domain.ApplicationVersion{}, false
	}
	now := time.Now().UTC()
	var best domain.ApplicationVersion
	found := false
	for _, ver := range v.state.versions {
		if ver.ApplicationID != app.ID || ver.ValidFrom.After(now) {
			continue
		}
		if !found || ver.ValidFrom.After(best.ValidFrom) {
			best = ver
			found = true
		}
	}
	if !found {
		return domain.ApplicationVersion{}, false
	}
	return cloneVersion(best), true
}

func (v transactionView) SamplesBySubject(customerID, subjectID string) []domain.Sample {
	if subjectID == "" {
		return nil
	}
	var out []domain.Sample
	for _, s := range v.state.samples {
		if s.CustomerID == customerID && s.SubjectID == subjectID {
			out = append(out, s)
		}
	}
	return out
}

func (v transactionView) SamplesByCustomerName(customerID, name string) []domain.Sample {
	var out []domain.Sample
	for _, s := range v.state.samples {
		if s.CustomerID == customerID && s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

func (v transactionView) CaseSamplesForCase(caseID string) []domain.CaseSample {
	var out []domain.CaseSample
	for _, l := range v.state.links {
		if l.CaseID == caseID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SampleID < out[j].SampleID })
	return out
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Rules are evaluated against the post-mutation snapshot; blocking violations
// abort the commit.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the transactional state for pre-write reads.
func (tx *transaction) Snapshot() domain.TransactionView {
	return newTransactionView(&tx.state)
}

// CreateCustomer stores a new customer within the transaction.
func (tx *transaction) CreateCustomer(c domain.Customer) (domain.Customer, error) {
	if c.InternalID == "" {
		return domain.Customer{}, fmt.Errorf("customer internal id required")
	}
	if _, exists := tx.state.customers[c.InternalID]; exists {
		return domain.Customer{}, fmt.Errorf("customer %q already exists", c.InternalID)
	}
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.customers[c.InternalID] = cloneCustomer(c)
	tx.recordChange(domain.Change{Entity: domain.EntityCustomer, Action: domain.ActionCreate, After: cloneCustomer(c)})
	return cloneCustomer(c), nil
}

// UpdateCustomer mutates a customer using the provided mutator.
func (tx *transaction) UpdateCustomer(internalID string, mutator func(*domain.Customer) error) (domain.Customer, error) {
	current, ok := tx.state.customers[internalID]
	if !ok {
		return domain.Customer{}, fmt.Errorf("customer %q not found", internalID)
	}
	before := cloneCustomer(current)
	if err := mutator(&current); err != nil {
		return domain.Customer{}, err
	}
	current.InternalID = internalID
	current.UpdatedAt = tx.now
	tx.state.customers[internalID] = cloneCustomer(current)
	tx.recordChange(domain.Change{Entity: domain.EntityCustomer, Action: domain.ActionUpdate, Before: before, After: cloneCustomer(current)})
	return cloneCustomer(current), nil
}

// CreateApplication stores an application keyed by its unique tag.
func (tx *transaction) CreateApplication(a domain.Application) (domain.Application, error) {
	if a.Tag == "" {
		return domain.Application{}, fmt.Errorf("application tag required")
	}
	if _, exists := tx.state.applications[a.Tag]; exists {
		return domain.Application{}, fmt.Errorf("application %q already exists", a.Tag)
	}
	if a.ID == "" {
		a.ID = tx.store.newID()
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.applications[a.Tag] = a
	tx.recordChange(domain.Change{Entity: domain.EntityApplication, Action: domain.ActionCreate, After: a})
	return a, nil
}

// CreateApplicationVersion stores a time-sliced application snapshot.
func (tx *transaction) CreateApplicationVersion(v domain.ApplicationVersion) (domain.ApplicationVersion, error) {
	if v.ApplicationID == "" {
		return domain.ApplicationVersion{}, fmt.Errorf("application id required")
	}
	if v.ID == "" {
		v.ID = tx.store.newID()
	}
	if _, exists := tx.state.versions[v.ID]; exists {
		return domain.ApplicationVersion{}, fmt.Errorf("application version %q already exists", v.ID)
	}
	v.CreatedAt = tx.now
	v.UpdatedAt = tx.now
	tx.state.versions[v.ID] = cloneVersion(v)
	tx.recordChange(domain.Change{Entity: domain.EntityApplicationVersion, Action: domain.ActionCreate, After: cloneVersion(v)})
	return cloneVersion(v), nil
}

// CreateSample stores a new sample keyed by its immutable internal id.
func (tx *transaction) CreateSample(s domain.Sample) (domain.Sample, error) {
	if s.InternalID == "" {
		return domain.Sample{}, fmt.Errorf("sample internal id required")
	}
	if _, exists := tx.state.samples[s.InternalID]; exists {
		return domain.Sample{}, fmt.Errorf("sample %q already exists", s.InternalID)
	}
	if s.ID == "" {
		s.ID = tx.store.newID()
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.samples[s.InternalID] = s
	tx.recordChange(domain.Change{Entity: domain.EntitySample, Action: domain.ActionCreate, After: s})
	return s, nil
}

// UpdateSample mutates a sample. The internal id cannot be changed.
func (tx *transaction) UpdateSample(internalID string, mutator func(*domain.Sample) error) (domain.Sample, error) {
	current, ok := tx.state.samples[internalID]
	if !ok {
		return domain.Sample{}, fmt.Errorf("sample %q not found", internalID)
	}
	before := current
	if err := mutator(&current); err != nil {
		return domain.Sample{}, err
	}
	current.InternalID = internalID
	current.UpdatedAt = tx.now
	tx.state.samples[internalID] = current
	tx.recordChange(domain.Change{Entity: domain.EntitySample, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateCase stores a new case. (customer, name) uniqueness is enforced here
// as a last line of defence behind order validation.
func (tx *transaction) CreateCase(c domain.Case) (domain.Case, error) {
	if c.InternalID == "" {
		return domain.Case{}, fmt.Errorf("case internal id required")
	}
	if _, exists := tx.state.cases[c.InternalID]; exists {
		return domain.Case{}, fmt.Errorf("case %q already exists", c.InternalID)
	}
	for _, existing := range tx.state.cases {
		if existing.CustomerID == c.CustomerID && existing.Name == c.Name {
			return domain.Case{}, fmt.Errorf("case name %q already used by customer %q", c.Name, c.CustomerID)
		}
	}
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.cases[c.InternalID] = cloneCase(c)
	tx.recordChange(domain.Change{Entity: domain.EntityCase, Action: domain.ActionCreate, After: cloneCase(c)})
	return cloneCase(c), nil
}

// UpdateCase mutates a case using the provided mutator.
func (tx *transaction) UpdateCase(internalID string, mutator func(*domain.Case) error) (domain.Case, error) {
	current, ok := tx.state.cases[internalID]
	if !ok {
		return domain.Case{}, fmt.Errorf("case %q not found", internalID)
	}
	before := cloneCase(current)
	if err := mutator(&current); err != nil {
		return domain.Case{}, err
	}
	current.InternalID = internalID
	current.UpdatedAt = tx.now
	tx.state.cases[internalID] = cloneCase(current)
	tx.recordChange(domain.Change{Entity: domain.EntityCase, Action: domain.ActionUpdate, Before: before, After: cloneCase(current)})
	return cloneCase(current), nil
}

// CreateCaseSample links a sample into a case. The (case, sample) pair is unique.
func (tx *transaction) CreateCaseSample(l domain.CaseSample) (domain.CaseSample, error) {
	if l.CaseID == "" || l.SampleID == "" {
		return domain.CaseSample{}, fmt.Errorf("case and sample ids required")
	}
	if _, ok := tx.state.cases[l.CaseID]; !ok {
		return domain.CaseSample{}, fmt.Errorf("case %q not found", l.CaseID)
	}
	if _, ok := tx.state.samples[l.SampleID]; !ok {
		return domain.CaseSample{}, fmt.Errorf("sample %q not found", l.SampleID)
	}
	key := linkKey(l.CaseID, l.SampleID)
	if _, exists := tx.state.links[key]; exists {
		return domain.CaseSample{}, fmt.Errorf("sample %q already linked to case %q", l.SampleID, l.CaseID)
	}
	if l.ID == "" {
		l.ID = tx.store.newID()
	}
	if l.Status == "" {
		l.Status = domain.StatusUnknown
	}
	l.CreatedAt = tx.now
	l.UpdatedAt = tx.now
	tx.state.links[key] = l
	tx.recordChange(domain.Change{Entity: domain.EntityCaseSample, Action: domain.ActionCreate, After: l})
	return l, nil
}

// UpdateCaseSample mutates an existing case/sample link in place.
func (tx *transaction) UpdateCaseSample(caseID, sampleID string, mutator func(*domain.CaseSample) error) (domain.CaseSample, error) {
	key := linkKey(caseID, sampleID)
	current, ok := tx.state.links[key]
	if !ok {
		return domain.CaseSample{}, fmt.Errorf("sample %q not linked to case %q", sampleID, caseID)
	}
	before := current
	if err := mutator(&current); err != nil {
		return domain.CaseSample{}, err
	}
	current.CaseID = caseID
	current.SampleID = sampleID
	current.UpdatedAt = tx.now
	tx.state.links[key] = current
	tx.recordChange(domain.Change{Entity: domain.EntityCaseSample, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreatePool stores a pooled-library record.
func (tx *transaction) CreatePool(p domain.Pool) (domain.Pool, error) {
	if p.Name == "" {
		return domain.Pool{}, fmt.Errorf("pool name required")
	}
	for _, existing := range tx.state.pools {
		if existing.CustomerID == p.CustomerID && existing.Name == p.Name && existing.Ticket == p.Ticket {
			return domain.Pool{}, fmt.Errorf("pool %q already exists for ticket %q", p.Name, p.Ticket)
		}
	}
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.pools[p.ID] = p
	tx.recordChange(domain.Change{Entity: domain.EntityPool, Action: domain.ActionCreate, After: p})
	return p, nil
}

// CreateOrder stores an order audit record.
func (tx *transaction) CreateOrder(o domain.Order) (domain.Order, error) {
	if o.ID == "" {
		o.ID = tx.store.newID()
	}
	if _, exists := tx.state.orders[o.ID]; exists {
		return domain.Order{}, fmt.Errorf("order %q already exists", o.ID)
	}
	o.CreatedAt = tx.now
	o.UpdatedAt = tx.now
	tx.state.orders[o.ID] = cloneOrder(o)
	tx.recordChange(domain.Change{Entity: domain.EntityOrder, Action: domain.ActionCreate, After: cloneOrder(o)})
	return cloneOrder(o), nil
}

// UpdateOrder mutates an order audit record.
func (tx *transaction) UpdateOrder(id string, mutator func(*domain.Order) error) (domain.Order, error) {
	current, ok := tx.state.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("order %q not found", id)
	}
	before := cloneOrder(current)
	if err := mutator(&current); err != nil {
		return domain.Order{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.orders[id] = cloneOrder(current)
	tx.recordChange(domain.Change{Entity: domain.EntityOrder, Action: domain.ActionUpdate, Before: before, After: cloneOrder(current)})
	return cloneOrder(current), nil
}

// CreateOrganism stores a microbial organism record.
func (tx *transaction) CreateOrganism(o domain.Organism) (domain.Organism, error) {
	if o.InternalID == "" {
		return domain.Organism{}, fmt.Errorf("organism internal id required")
	}
	if _, exists := tx.state.organisms[o.InternalID]; exists {
		return domain.Organism{}, fmt.Errorf("organism %q already exists", o.InternalID)
	}
	if o.ID == "" {
		o.ID = tx.store.newID()
	}
	o.CreatedAt = tx.now
	o.UpdatedAt = tx.now
	tx.state.organisms[o.InternalID] = o
	tx.recordChange(domain.Change{Entity: domain.EntityOrganism, Action: domain.ActionCreate, After: o})
	return o, nil
}

// UpdateOrganism mutates an organism record.
func (tx *transaction) UpdateOrganism(internalID string, mutator func(*domain.Organism) error) (domain.Organism, error) {
	current, ok := tx.state.organisms[internalID]
	if !ok {
		return domain.Organism{}, fmt.Errorf("organism %q not found", internalID)
	}
	before := current
	if err := mutator(&current); err != nil {
		return domain.Organism{}, err
	}
	current.InternalID = internalID
	current.UpdatedAt = tx.now
	tx.state.organisms[internalID] = current
	tx.recordChange(domain.Change{Entity: domain.EntityOrganism, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateAnalysis stores a pipeline analysis record.
func (tx *transaction) CreateAnalysis(a domain.Analysis) (domain.Analysis, error) {
	if a.CaseID == "" {
		return domain.Analysis{}, fmt.Errorf("analysis case id required")
	}
	if _, ok := tx.state.cases[a.CaseID]; !ok {
		return domain.Analysis{}, fmt.Errorf("case %q not found", a.CaseID)
	}
	if a.ID == "" {
		a.ID = tx.store.newID()
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.analyses[a.ID] = a
	tx.recordChange(domain.Change{Entity: domain.EntityAnalysis, Action: domain.ActionCreate, After: a})
	return a, nil
}

// Read helpers ---------------------------------------------------------------

// GetCustomer retrieves a customer by internal id from committed state.
func (s *Store) GetCustomer(internalID string) (domain.Customer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.customers[internalID]
	if !ok {
		return domain.Customer{}, false
	}
	return cloneCustomer(c), true
}

// GetSample retrieves a sample by internal id from committed state.
func (s *Store) GetSample(internalID string) (domain.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sm, ok := s.state.samples[internalID]
	return sm, ok
}

// GetCase retrieves a case by internal id from committed state.
func (s *Store) GetCase(internalID string) (domain.Case, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.cases[internalID]
	if !ok {
		return domain.Case{}, false
	}
	return cloneCase(c), true
}

// GetCaseByName retrieves a case by its customer-scoped name.
func (s *Store) GetCaseByName(customerID, name string) (domain.Case, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.state.cases {
		if c.CustomerID == customerID && c.Name == name {
			return cloneCase(c), true
		}
	}
	return domain.Case{}, false
}

// GetOrganism retrieves an organism by internal id.
func (s *Store) GetOrganism(internalID string) (domain.Organism, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.state.organisms[internalID]
	return o, ok
}

// ListCustomers returns all customers from committed state.
func (s *Store) ListCustomers() []domain.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Customer, 0, len(s.state.customers))
	for _, c := range s.state.customers {
		out = append(out, cloneCustomer(c))
	}
	return out
}

// ListSamples returns all samples.
func (s *Store) ListSamples() []domain.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sample, 0, len(s.state.samples))
	for _, sm := range s.state.samples {
		out = append(out, sm)
	}
	return out
}

// ListCases returns all cases.
func (s *Store) ListCases() []domain.Case {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Case, 0, len(s.state.cases))
	for _, c := range s.state.cases {
		out = append(out, cloneCase(c))
	}
	return out
}

// ListCaseSamples returns all case/sample links.
func (s *Store) ListCaseSamples() []domain.CaseSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CaseSample, 0, len(s.state.links))
	for _, l := range s.state.links {
		out = append(out, l)
	}
	return out
}

// ListPools returns all pools.
func (s *Store) ListPools() []domain.Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Pool, 0, len(s.state.pools))
	for _, p := range s.state.pools {
		out = append(out, p)
	}
	return out
}

// ListOrders returns all order audit records.
func (s *Store) ListOrders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0, len(s.state.orders))
	for _, o := range s.state.orders {
		out = append(out, cloneOrder(o))
	}
	return out
}

// ListOrganisms returns all organisms.
func (s *Store) ListOrganisms() []domain.Organism {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Organism, 0, len(s.state.organisms))
	for _, o := range s.state.organisms {
		out = append(out, o)
	}
	return out
}

// ListAnalyses returns all analysis records.
func (s *Store) ListAnalyses() []domain.Analysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Analysis, 0, len(s.state.analyses))
	for _, a := range s.state.analyses {
		out = append(out, a)
	}
	return out
}

// HasInternalID reports whether any sample, case or organism already uses the
// given internal id. Used by the id generator's collision retry.
func (s *Store) HasInternalID(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.state.samples[id]; ok {
		return true
	}
	if _, ok := s.state.cases[id]; ok {
		return true
	}
	_, ok := s.state.organisms[id]
	return ok
}

// TicketCases returns the cases whose ticket history mentions the ticket id.
func (s *Store) TicketCases(ticket string) []domain.Case {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Case
	for _, c := range s.state.cases {
		for _, t := range strings.Split(c.Tickets, ",") {
			if t == ticket {
				out = append(out, cloneCase(c))
				break
			}
		}
	}
	return out
}
