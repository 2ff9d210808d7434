package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/garyjia/legal-aid-claims/internal/application/dispatcher"
	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/event"
	domainwf "github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// memStore backs the repository mocks. memTx restores a snapshot when fn fails.
type memStore struct {
	mu          sync.Mutex
	claims      map[string]*entity.Claim
	records     []entity.TransitionRecord
	assessments map[string]*entity.Assessment
	nextID      int64

	appendErr   error
	conflictErr bool
}

type memSnapshot struct {
	claims      map[string]*entity.Claim
	records     []entity.TransitionRecord
	assessments map[string]*entity.Assessment
}

func newMemStore() *memStore {
	return &memStore{
		claims:      make(map[string]*entity.Claim),
		assessments: make(map[string]*entity.Assessment),
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

func (s *memStore) history(claimID string) []entity.TransitionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.TransitionRecord
	for _, r := range s.records {
		if r.ClaimID == claimID {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) assessment(claimID string) *entity.Assessment {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assessments[claimID]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		claims:      make(map[string]*entity.Claim, len(s.claims)),
		records:     append([]entity.TransitionRecord(nil), s.records...),
		assessments: make(map[string]*entity.Assessment, len(s.assessments)),
	}
	for id, c := range s.claims {
		snap.claims[id] = c.Clone()
	}
	for id, a := range s.assessments {
		cp := *a
		snap.assessments[id] = &cp
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = snap.claims
	s.records = snap.records
	s.assessments = snap.assessments
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
	if c.s.conflictErr || stored.LockVersion != claim.LockVersion {
		return domainwf.ErrConcurrentModification
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
	c.s.claims[id].ApplyVat = applyVat
	return nil
}

func (c claimStore) SaveTotals(ctx context.Context, id string, totals entity.ClaimTotals) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.claims[id].Totals = totals
	return nil
}

func (c claimStore) ListIdleInStates(ctx context.Context, states []domainwf.State, cutoff time.Time, afterID string, limit int) ([]string, error) {
	return nil, nil
}

type transitionStore struct{ s *memStore }

func (t transitionStore) Append(ctx context.Context, record *entity.TransitionRecord) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.appendErr != nil {
		return t.s.appendErr
	}
	t.s.nextID++
	record.ID = t.s.nextID
	t.s.records = append(t.s.records, *record)
	return nil
}

func (t transitionStore) ListByClaimID(ctx context.Context, claimID string) ([]entity.TransitionRecord, error) {
	return t.s.history(claimID), nil
}

type assessmentStore struct{ s *memStore }

func (a assessmentStore) GetByClaimID(ctx context.Context, claimID string) (*entity.Assessment, error) {
	found := a.s.assessment(claimID)
	if found == nil {
		return nil, port.ErrNotFound
	}
	return found, nil
}

func (a assessmentStore) Save(ctx context.Context, assessment *entity.Assessment) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	cp := *assessment
	a.s.assessments[assessment.ClaimID] = &cp
	return nil
}

// memLocker is a non-blocking in-process locker
type memLocker struct {
	mu    sync.Mutex
	held  map[string]string
	count int
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
	l.count++
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

type fakePolicy struct {
	hardship       bool
	rejectable     bool
	allocationType string
}

func (p fakePolicy) Hardship(claim *entity.Claim) bool { return p.hardship }
func (p fakePolicy) Rejectable(claim *entity.Claim) bool { return p.rejectable }
func (p fakePolicy) AllocationType(claim *entity.Claim) string { return p.allocationType }

type fakeValidator struct {
	mu    sync.Mutex
	err   error
	modes []domainwf.ValidationMode
}

func (v *fakeValidator) Validate(ctx context.Context, claim *entity.Claim, mode domainwf.ValidationMode) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.modes = append(v.modes, mode)
	return v.err
}

func (v *fakeValidator) lastMode() domainwf.ValidationMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.modes) == 0 {
		return ""
	}
	return v.modes[len(v.modes)-1]
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
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

func (m *recordingDispatcher) ofType(t event.Type) []*event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*event.Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type recordingMetrics struct {
	mu        sync.Mutex
	succeeded []string
	failed    []string
}

func (m *recordingMetrics) TransitionSucceeded(event domainwf.Trigger, from, to domainwf.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.succeeded = append(m.succeeded, string(event)+":"+string(from)+"->"+string(to))
}

func (m *recordingMetrics) TransitionFailed(event domainwf.Trigger, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, string(event)+":"+reason)
}

func (m *recordingMetrics) TotalsRecomputed(valueBandID int) {}
