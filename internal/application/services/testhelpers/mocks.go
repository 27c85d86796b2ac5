package testhelpers

import (
	"bytes"
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository keeps orders in memory and enforces the same version
// and confirmation checks as the postgres repository. Orders are copied on
// the way in and out so callers never share state with the store.
type MockOrderRepository struct {
	mu            sync.Mutex
	orders        map[string]*domain.Order
	confirmations map[domain.ConfirmationKey]bool
	saves         int

	CreateFn   func(ctx context.Context, order *domain.Order) error
	FindByIDFn func(ctx context.Context, id string) (*domain.Order, error)
	SaveFn     func(ctx context.Context, order *domain.Order, change application.Change) error
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders:        make(map[string]*domain.Order),
		confirmations: make(map[domain.ConfirmationKey]bool),
	}
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = CloneOrder(order)
	return nil
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		return CloneOrder(o), nil
	}
	return nil, domain.NewOrderNotFoundError(id)
}

func (m *MockOrderRepository) FindByHumanCode(ctx context.Context, code string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.HumanCode == code {
			return CloneOrder(o), nil
		}
	}
	return nil, domain.NewOrderNotFoundError(code)
}

func (m *MockOrderRepository) FindBySessionReference(ctx context.Context, provider domain.Provider, reference string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.SessionByReference(provider, reference) != nil {
			return CloneOrder(o), nil
		}
	}
	return nil, domain.NewSessionNotFoundError(reference)
}

func (m *MockOrderRepository) Save(ctx context.Context, order *domain.Order, change application.Change) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, order, change)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[order.ID]
	if !ok {
		return domain.NewOrderNotFoundError(order.ID)
	}
	if stored.Version != change.ExpectedVersion {
		return domain.NewVersionConflictError(order.ID, change.ExpectedVersion)
	}
	if change.Confirmation != nil {
		if m.confirmations[*change.Confirmation] {
			return domain.NewDuplicateConfirmationError(domain.EventProviderConfirmedPayment, change.Confirmation.ProviderReference)
		}
		m.confirmations[*change.Confirmation] = true
	}

	order.Version = change.ExpectedVersion + 1
	m.orders[order.ID] = CloneOrder(order)
	m.saves++
	return nil
}

func (m *MockOrderRepository) FindOpenSessions(ctx context.Context, filter application.SessionFilter) ([]application.SessionRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var refs []application.SessionRef
	for _, o := range m.orders {
		for _, s := range o.Sessions {
			if !s.State.Open() || !s.CreatedAt.Before(filter.CreatedBefore) {
				continue
			}
			if filter.Provider != "" && s.Provider != filter.Provider {
				continue
			}
			refs = append(refs, application.SessionRef{
				OrderID:           o.ID,
				SessionID:         s.ID,
				Provider:          s.Provider,
				ProviderReference: s.ProviderReference,
				State:             s.State,
				OrderStatus:       o.Status,
				CreatedAt:         s.CreatedAt,
			})
		}
	}
	slices.SortFunc(refs, func(a, b application.SessionRef) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if filter.Limit > 0 && len(refs) > filter.Limit {
		refs = refs[:filter.Limit]
	}
	return refs, nil
}

// Saves returns how many saves have committed.
func (m *MockOrderRepository) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// CloneOrder deep-copies the mutable parts of an order.
func CloneOrder(o *domain.Order) *domain.Order {
	c := *o
	if o.PaymentProvider != nil {
		p := *o.PaymentProvider
		c.PaymentProvider = &p
	}
	c.History = slices.Clone(o.History)
	c.Sessions = make([]*domain.PaymentSession, len(o.Sessions))
	for i, s := range o.Sessions {
		cs := *s
		if s.ConfirmedAt != nil {
			at := *s.ConfirmedAt
			cs.ConfirmedAt = &at
		}
		c.Sessions[i] = &cs
	}
	return &c
}

// MockCodeCounter is an in-memory counter with the same per-bucket semantics
// as the code_counters table.
type MockCodeCounter struct {
	mu    sync.Mutex
	seqs  map[string]int
	calls int

	NextFn func(ctx context.Context, prefix domain.CodePrefix, day time.Time) (int, error)
}

func NewMockCodeCounter() *MockCodeCounter {
	return &MockCodeCounter{seqs: make(map[string]int)}
}

func (m *MockCodeCounter) Next(ctx context.Context, prefix domain.CodePrefix, day time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.NextFn != nil {
		return m.NextFn(ctx, prefix, day)
	}
	key := string(prefix) + "/" + day.Format(time.DateOnly)
	m.seqs[key]++
	return m.seqs[key], nil
}

func (m *MockCodeCounter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type MockRefundRepository struct {
	mu      sync.Mutex
	refunds []*domain.Refund

	CreateFn func(ctx context.Context, refund *domain.Refund) error
}

func NewMockRefundRepository() *MockRefundRepository {
	return &MockRefundRepository{}
}

func (m *MockRefundRepository) Create(ctx context.Context, refund *domain.Refund) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, refund)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refunds = append(m.refunds, refund)
	return nil
}

func (m *MockRefundRepository) ListByOrderCode(ctx context.Context, orderCode string) ([]*domain.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Refund
	for _, r := range m.refunds {
		if r.OrderCode == orderCode {
			out = append(out, r)
		}
	}
	return out, nil
}

// RecordingNotifier keeps every notice it is handed.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []domain.TransitionNotice

	NotifyFn func(ctx context.Context, notice domain.TransitionNotice) error
}

func (n *RecordingNotifier) Notify(ctx context.Context, notice domain.TransitionNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	if n.NotifyFn != nil {
		return n.NotifyFn(ctx, notice)
	}
	return nil
}

func (n *RecordingNotifier) Notices() []domain.TransitionNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.notices)
}

// Events lists the event names of every recorded notice, in order.
func (n *RecordingNotifier) Events() []domain.EventName {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]domain.EventName, len(n.notices))
	for i, notice := range n.notices {
		names[i] = notice.Event
	}
	return names
}

// RecordingMetrics counts what the services report.
type RecordingMetrics struct {
	mu        sync.Mutex
	Applied   map[domain.EventName]int
	Rejected  map[string]int
	Polls     map[application.PollOutcome]int
	Fallbacks map[domain.Currency]int
}

func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{
		Applied:   make(map[domain.EventName]int),
		Rejected:  make(map[string]int),
		Polls:     make(map[application.PollOutcome]int),
		Fallbacks: make(map[domain.Currency]int),
	}
}

func (m *RecordingMetrics) TransitionApplied(_ context.Context, event domain.EventName) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Applied[event]++
}

func (m *RecordingMetrics) TransitionRejected(_ context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected[reason]++
}

func (m *RecordingMetrics) PollFinished(_ context.Context, outcome application.PollOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Polls[outcome]++
}

func (m *RecordingMetrics) RateFallback(_ context.Context, currency domain.Currency) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fallbacks[currency]++
}

func (m *RecordingMetrics) PollCount(outcome application.PollOutcome) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Polls[outcome]
}

// MockRateSource answers from a fixed table unless GetRateFn is set.
type MockRateSource struct {
	mu    sync.Mutex
	Rates map[domain.Currency]string
	calls int

	GetRateFn func(ctx context.Context, currency domain.Currency) (domain.ExchangeRate, error)
}

func (m *MockRateSource) GetRate(ctx context.Context, currency domain.Currency) (domain.ExchangeRate, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.GetRateFn != nil {
		return m.GetRateFn(ctx, currency)
	}
	raw, ok := m.Rates[currency]
	if !ok {
		return domain.ExchangeRate{}, domain.NewRateUnavailableError(currency)
	}
	return domain.ExchangeRate{Currency: currency, Rate: MustDecimal(raw), AsOf: time.Now()}, nil
}

func (m *MockRateSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type MockGeoLocator struct {
	Country string
	Err     error
	calls   int
}

func (m *MockGeoLocator) Detect(_ context.Context, _ application.RequestContext) (string, error) {
	m.calls++
	return m.Country, m.Err
}

func (m *MockGeoLocator) Calls() int {
	return m.calls
}

// MemoryProofStore keeps uploaded proofs by key.
type MemoryProofStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
	Err     error
}

func NewMemoryProofStore() *MemoryProofStore {
	return &MemoryProofStore{
		Objects: make(map[string][]byte),
		Types:   make(map[string]string),
	}
}

func (s *MemoryProofStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	if s.Err != nil {
		return s.Err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[key] = buf.Bytes()
	s.Types[key] = contentType
	return nil
}

func (s *MemoryProofStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.Objects))
	for k := range s.Objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// RecordingScheduler captures poll requests instead of running them.
type RecordingScheduler struct {
	mu    sync.Mutex
	Calls [][2]string
}

func (s *RecordingScheduler) Schedule(orderID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, [2]string{orderID, sessionID})
}

func (s *RecordingScheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

type MockProviderAClient struct {
	mock.Mock
}

func NewMockProviderAClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProviderAClient {
	m := &MockProviderAClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockProviderAClient) CreateSession(ctx context.Context, req application.CheckoutRequest) (*application.ProviderSession, error) {
	args := m.Called(ctx, req)
	session, _ := args.Get(0).(*application.ProviderSession)
	return session, args.Error(1)
}

type MockProviderBClient struct {
	mock.Mock
}

func NewMockProviderBClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProviderBClient {
	m := &MockProviderBClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockProviderBClient) CreateCheckout(ctx context.Context, req application.CheckoutRequest) (*application.ProviderSession, error) {
	args := m.Called(ctx, req)
	session, _ := args.Get(0).(*application.ProviderSession)
	return session, args.Error(1)
}

func (m *MockProviderBClient) GetStatus(ctx context.Context, reference string) (*application.CheckoutStatus, error) {
	args := m.Called(ctx, reference)
	status, _ := args.Get(0).(*application.CheckoutStatus)
	return status, args.Error(1)
}
