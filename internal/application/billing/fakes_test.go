package billing_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/internal/domain/repository"
)

// ─── Contador en memoria ─────────────────────────────────────────────────────

type memoryCounters struct {
	mu          sync.Mutex
	values      map[repository.CounterKey]int64
	contentions int // Próximas llamadas que fallan con ErrContention
	err         error
	calls       atomic.Int32
}

func newMemoryCounters() *memoryCounters {
	return &memoryCounters{values: map[repository.CounterKey]int64{}}
}

func (m *memoryCounters) Next(_ context.Context, key repository.CounterKey) (int64, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if m.contentions != 0 {
		if m.contentions > 0 {
			m.contentions--
		}
		return 0, repository.ErrContention
	}
	m.values[key]++
	return m.values[key], nil
}

// ─── Repositorios en memoria ─────────────────────────────────────────────────

type memoryDocuments struct {
	mu      sync.Mutex
	docs    map[string]entity.Document
	history map[string][]entity.SubmissionState
}

func newMemoryDocuments() *memoryDocuments {
	return &memoryDocuments{docs: map[string]entity.Document{}, history: map[string][]entity.SubmissionState{}}
}

func (m *memoryDocuments) Create(_ context.Context, doc *entity.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = *doc
	return nil
}

func (m *memoryDocuments) GetByID(_ context.Context, id string) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *memoryDocuments) GetByKey(_ context.Context, key string) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.Key == key {
			d := d
			return &d, nil
		}
	}
	return nil, nil
}

func (m *memoryDocuments) UpdateSubmission(_ context.Context, doc *entity.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = *doc
	m.history[doc.ID] = append(m.history[doc.ID], doc.SubmissionState)
	return nil
}

func (m *memoryDocuments) ListByCompany(_ context.Context, companyID string, _, _ int) ([]*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Document
	for _, d := range m.docs {
		if d.CompanyID == companyID {
			d := d
			out = append(out, &d)
		}
	}
	return out, nil
}

func (m *memoryDocuments) states(id string) []entity.SubmissionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.SubmissionState(nil), m.history[id]...)
}

type memoryCompanies struct {
	mu        sync.Mutex
	companies map[string]entity.Company
}

func newMemoryCompanies(cs ...*entity.Company) *memoryCompanies {
	m := &memoryCompanies{companies: map[string]entity.Company{}}
	for _, c := range cs {
		m.companies[c.ID] = *c
	}
	return m
}

func (m *memoryCompanies) Create(_ context.Context, c *entity.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[c.ID] = *c
	return nil
}

func (m *memoryCompanies) GetByID(_ context.Context, id string) (*entity.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memoryCompanies) GetByTaxID(_ context.Context, taxID string) (*entity.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.companies {
		if c.TaxID == taxID {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryCompanies) Update(ctx context.Context, c *entity.Company) error { return m.Create(ctx, c) }

type memoryCustomers struct {
	mu        sync.Mutex
	customers map[string]entity.Customer
}

func newMemoryCustomers(cs ...*entity.Customer) *memoryCustomers {
	m := &memoryCustomers{customers: map[string]entity.Customer{}}
	for _, c := range cs {
		m.customers[c.ID] = *c
	}
	return m
}

func (m *memoryCustomers) Create(_ context.Context, c *entity.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = *c
	return nil
}

func (m *memoryCustomers) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memoryCustomers) GetByCompanyAndTaxID(_ context.Context, companyID, taxID string) (*entity.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.CompanyID == companyID && c.TaxID == taxID {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryCustomers) ListByCompany(_ context.Context, companyID string, _, _ int) ([]*entity.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Customer
	for _, c := range m.customers {
		if c.CompanyID == companyID {
			c := c
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memoryCustomers) Update(ctx context.Context, c *entity.Customer) error { return m.Create(ctx, c) }

// memoryTx ejecuta la función con los repositorios en memoria; si falla, descarta los comprobantes creados.
type memoryTx struct {
	counters  *memoryCounters
	documents *memoryDocuments
}

func (t *memoryTx) RunDocument(ctx context.Context, fn func(repository.ConsecutiveRepository, repository.DocumentRepository) error) error {
	staged := newMemoryDocuments()
	if err := fn(t.counters, staged); err != nil {
		return err
	}
	for _, d := range staged.docs {
		d := d
		if err := t.documents.Create(ctx, &d); err != nil {
			return err
		}
	}
	return nil
}

// ─── Reloj falso ─────────────────────────────────────────────────────────────

type fakeTimer struct {
	f       func()
	stopped atomic.Bool
	fired   atomic.Bool
}

func (t *fakeTimer) Stop() bool {
	if t.fired.Load() {
		return false
	}
	return !t.stopped.Swap(true)
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	armed  chan time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 8, 3, 0, 0, 0, time.UTC), armed: make(chan time.Duration, 4)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) billing.Timer {
	t := &fakeTimer{f: f}
	c.mu.Lock()
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	c.armed <- d
	return t
}

// fire dispara los temporizadores pendientes.
func (c *fakeClock) fire() {
	c.mu.Lock()
	timers := c.timers
	c.timers = nil
	c.mu.Unlock()
	for _, t := range timers {
		if !t.stopped.Load() && !t.fired.Swap(true) {
			t.f()
		}
	}
}

func (c *fakeClock) lastTimer() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

var _ billing.Clock = (*fakeClock)(nil)
