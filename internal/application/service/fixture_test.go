package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/legal-aid-claims/internal/application/workflow"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/money"
	domainwf "github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

var testNow = time.Date(2016, 3, 10, 9, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amt(s string) *money.Amount {
	a := money.MustParse(s)
	return &a
}

func ukRates() []entity.VatRate {
	to := func(t time.Time) *time.Time { return &t }
	return []entity.VatRate{
		{ID: 1, Rate: decimal.RequireFromString("0.175"), EffectiveFrom: day(1991, 4, 1), EffectiveTo: to(day(2008, 12, 1))},
		{ID: 2, Rate: decimal.RequireFromString("0.15"), EffectiveFrom: day(2008, 12, 1), EffectiveTo: to(day(2010, 1, 1))},
		{ID: 3, Rate: decimal.RequireFromString("0.175"), EffectiveFrom: day(2010, 1, 1), EffectiveTo: to(day(2011, 1, 4))},
		{ID: 4, Rate: decimal.RequireFromString("0.20"), EffectiveFrom: day(2011, 1, 4)},
	}
}

type fixture struct {
	store       *memStore
	cache       *mapCache
	dispatcher  *recordingDispatcher
	metrics     *recordingMetrics
	logger      *testLogger
	totals      TotalsService
	items       LineItemService
	engine      workflow.Engine
	assessments AssessmentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	store.rates = ukRates()
	locker := newMemLocker()
	clock := fixedClock{now: testNow}
	timing := workflow.LockTiming{TTL: time.Second, Retry: time.Millisecond}

	f := &fixture{
		store:      store,
		cache:      newMapCache(),
		dispatcher: &recordingDispatcher{},
		metrics:    &recordingMetrics{},
		logger:     &testLogger{},
	}

	f.totals = NewTotalsService(TotalsDeps{
		Claims:     claimStore{store},
		LineItems:  itemStore{store},
		VatRates:   rateStore{store},
		TxManager:  memTx{store},
		Locker:     locker,
		LockTiming: timing,
		Cache:      f.cache,
		Clock:      clock,
		Dispatcher: f.dispatcher,
		Metrics:    f.metrics,
		Logger:     f.logger,
	})

	f.items = NewLineItemService(itemStore{store}, claimStore{store}, memTx{store}, locker, timing, f.totals, clock, f.logger)

	f.engine = workflow.NewEngine(
		workflow.Repositories{
			Claims:      claimStore{store},
			Transitions: transitionStore{store},
			Assessments: assessmentStore{store},
		},
		memTx{store},
		locker,
		DefaultClaimPolicy{},
		NewClaimValidator(assessmentStore{store}, redeterminationStore{store}),
		workflow.WithClock(clock),
		workflow.WithLockTiming(timing),
	)

	f.assessments = NewAssessmentService(
		claimStore{store},
		assessmentStore{store},
		redeterminationStore{store},
		memTx{store},
		locker,
		timing,
		f.engine,
		f.dispatcher,
		clock,
		f.logger,
	)

	return f
}

// seedClaim stores a claim in state with an original submission date of submitted
func (f *fixture) seedClaim(state domainwf.State, submitted time.Time) *entity.Claim {
	claim := entity.NewClaim("T20160001", testNow)
	claim.State = state
	claim.ApplyVat = true
	claim.OriginalSubmissionDate = &submitted
	f.store.put(claim)
	return claim
}
