package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/legal-aid-claims/internal/application/dispatcher"
	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/event"
	"github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// memStore backs every repository mock. memTx restores a snapshot when fn fails.
type memStore struct {
	mu               sync.Mutex
	claims           map[string]*entity.Claim
	items            map[int64]entity.LineItem
	assessments      map[string]entity.Assessment
	redeterminations []entity.Redetermination
	records          []entity.TransitionRecord
	rates            []entity.VatRate
	nextID           int64

	saveTotalsErr error
	createItemErr error
}

type memSnapshot struct {
	claims           map[string]*entity.Claim
	items            map[int64]entity.LineItem
	assessments      map[string]entity.Assessment
	redeterminations []entity.Redetermination
	records          []entity.TransitionRecord
}

func newMemStore() *memStore {
	return &memStore{
		claims:      make(map[string]*entity.Claim),
		items:       make(map[int64]entity.LineItem),
		assessments: make(map[string]entity.Assessment),
	}
}

func (s *memStore) put(c *entity.Claim) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[c.ID] = c.Clone()
}

func (s *memStore) claim(id string) *entity.Claim {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims[id].Clone()
}

func (s *memStore) itemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		claims:           make(map[string]*entity.Claim, len(s.claims)),
		items:            make(map[int64]entity.LineItem, len(s.items)),
		assessments:      make(map[string]entity.Assessment, len(s.assessments)),
		redeterminations: append([]entity.Redetermination(nil), s.redeterminations...),
		records:          append([]entity.TransitionRecord(nil), s.records...),
	}
	for id, c := range s.claims {
		snap.claims[id] = c.Clone()
	}
	for id, i := range s.items {
		snap.items[id] = i
	}
	for id, a := range s.assessments {
		snap.assessments[id] = a
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = snap.claims
	s.items = snap.items
	s.assessments = snap.assessments
	s.redeterminations = snap.redeterminations
	s.records = snap.records
}

type memTx struct{ s *memStore }

func (m memTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := m.s.snapshot()
	if err := fn(ctx); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

type claimStore struct{ s *memStore }

func (c claimStore) Create(ctx context.Context, claim *entity.Claim) error {
	c.s.put(claim)
	return nil
}

func (c claimStore) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	claim, ok := c.s.claims[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return claim.Clone(), nil
}

func (c claimStore) Update(ctx context.Context, claim *entity.Claim) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	stored, ok := c.s.claims[claim.ID]
	if !ok {
		return port.ErrNotFound
	}
	if stored.LockVersion != claim.LockVersion {
		return workflow.ErrConcurrentModification
	}
	updated := claim.Clone()
	updated.Totals = stored.Totals
	updated.ApplyVat = stored.ApplyVat
	updated.LockVersion++
	c.s.claims[claim.ID] = updated
	return nil
}

func (c claimStore) SetApplyVat(ctx context.Context, id string, applyVat bool) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	claim, ok := c.s.claims[id]
	if !ok {
		return port.ErrNotFound
	}
	claim.ApplyVat = applyVat
	return nil
}

func (c claimStore) SaveTotals(ctx context.Context, id string, totals entity.ClaimTotals) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.saveTotalsErr != nil {
		return c.s.saveTotalsErr
	}
	claim, ok := c.s.claims[id]
	if !ok {
		return port.ErrNotFound
	}
	claim.Totals = totals
	return nil
}

func (c claimStore) ListIdleInStates(ctx context.Context, states []workflow.State, cutoff time.Time, afterID string, limit int) ([]string, error) {
	return nil, nil
}

type itemStore struct{ s *memStore }

func (i itemStore) Create(ctx context.Context, item *entity.LineItem) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	if i.s.createItemErr != nil {
		return i.s.createItemErr
	}
	i.s.nextID++
	item.ID = i.s.nextID
	i.s.items[item.ID] = *item
	return nil
}

func (i itemStore) GetByID(ctx context.Context, id int64) (*entity.LineItem, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	item, ok := i.s.items[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &item, nil
}

func (i itemStore) Update(ctx context.Context, item *entity.LineItem) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	if _, ok := i.s.items[item.ID]; !ok {
		return port.ErrNotFound
	}
	i.s.items[item.ID] = *item
	return nil
}

func (i itemStore) Delete(ctx context.Context, id int64) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	if _, ok := i.s.items[id]; !ok {
		return port.ErrNotFound
	}
	delete(i.s.items, id)
	return nil
}

func (i itemStore) ListByClaimID(ctx context.Context, claimID string) ([]entity.LineItem, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	var out []entity.LineItem
	for _, item := range i.s.items {
		if item.ClaimID == claimID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

type assessmentStore struct{ s *memStore }

func (a assessmentStore) GetByClaimID(ctx context.Context, claimID string) (*entity.Assessment, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	found, ok := a.s.assessments[claimID]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &found, nil
}

func (a assessmentStore) Save(ctx context.Context, assessment *entity.Assessment) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.assessments[assessment.ClaimID] = *assessment
	return nil
}

type redeterminationStore struct{ s *memStore }

func (r redeterminationStore) Create(ctx context.Context, rd *entity.Redetermination) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextID++
	rd.ID = r.s.nextID
	r.s.redeterminations = append(r.s.redeterminations, *rd)
	return nil
}

func (r redeterminationStore) ListByClaimID(ctx context.Context, claimID string) ([]entity.Redetermination, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Redetermination
	for _, rd := range r.s.redeterminations {
		if rd.ClaimID == claimID {
			out = append(out, rd)
		}
	}
	return out, nil
}

type transitionStore struct{ s *memStore }

func (t transitionStore) Append(ctx context.Context, record *entity.TransitionRecord) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.nextID++
	record.ID = t.s.nextID
	t.s.records = append(t.s.records, *record)
	return nil
}

func (t transitionStore) ListByClaimID(ctx context.Context, claimID string) ([]entity.TransitionRecord, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var out []entity.TransitionRecord
	for _, r := range t.s.records {
		if r.ClaimID == claimID {
			out = append(out, r)
		}
	}
	return out, nil
}

type rateStore struct{ s *memStore }

func (r rateStore) List(ctx context.Context) ([]entity.VatRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]entity.VatRate(nil), r.s.rates...), nil
}

// memLocker is a non-blocking in-process locker
type memLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return false, "", nil
	}
	token := key + "-token"
	l.held[key] = token
	return true, token, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return errors.New("lock not owned")
	}
	delete(l.held, key)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// mapCache is a TotalsCache without expiry
type mapCache struct {
	mu sync.Mutex
	m  map[string]entity.ClaimTotals
}

func newMapCache() *mapCache {
	return &mapCache{m: make(map[string]entity.ClaimTotals)}
}

func (c *mapCache) Get(claimID string) (entity.ClaimTotals, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.m[claimID]
	return t, ok
}

func (c *mapCache) Set(claimID string, totals entity.ClaimTotals) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[claimID] = totals
}

func (c *mapCache) Invalidate(claimID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, claimID)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *recordingDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}

func (m *recordingDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {
}

func (m *recordingDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *recordingDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.DispatchAsync(ctx, evt)
	return nil
}

func (m *recordingDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *recordingDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo {
	return nil
}

func (m *recordingDispatcher) Close() error { return nil }

func (m *recordingDispatcher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type recordingMetrics struct {
	mu    sync.Mutex
	bands []int
}

func (m *recordingMetrics) TransitionSucceeded(event workflow.Trigger, from, to workflow.State) {}

func (m *recordingMetrics) TransitionFailed(event workflow.Trigger, reason string) {}

func (m *recordingMetrics) TotalsRecomputed(valueBandID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bands = append(m.bands, valueBandID)
}

// testLogger collects messages in the key-value style services use
type testLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *testLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *testLogger) Error(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}
