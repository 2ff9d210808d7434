package container

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/legal-aid-claims/internal/application/workflow"
	"github.com/garyjia/legal-aid-claims/internal/domain/calculation"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/money"
	domainwf "github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

func testConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "claims.db")
	cfg.Archive.Worker.PollInterval = time.Hour
	return cfg
}

func startContainer(t *testing.T, cfg *Config) *Container {
	t.Helper()
	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() {
		if !c.closed.Load() {
			_ = c.Close()
		}
	})
	return c
}

func TestContainer_Lifecycle(t *testing.T) {
	c := startContainer(t, testConfig(t))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()), "second start must fail")

	health := c.Health(context.Background())
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.Equal(t, "worker count: 1", health.Components["workers"].Message)
	_, hasRedis := health.Components["redis"]
	assert.False(t, hasRedis)

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(context.Background()))
}

func TestContainer_ClaimFlow(t *testing.T) {
	c := startContainer(t, testConfig(t))
	ctx := context.Background()

	claim := entity.NewClaim("T20240001", time.Now().UTC())
	claim.ApplyVat = true
	require.NoError(t, c.Repositories().Claims.Create(ctx, claim))

	fee := money.MustParse("100.00")
	totals, err := c.Services().LineItems.Add(ctx, &entity.LineItem{
		ClaimID:  claim.ID,
		Category: entity.CategoryFee,
		Amount:   &fee,
	})
	require.NoError(t, err)
	assert.Equal(t, "100.00", totals.Total.String())
	assert.Equal(t, "20.00", totals.VatAmount.String())

	current, err := c.Services().Totals.CurrentTotals(ctx, claim.ID)
	require.NoError(t, err)
	assert.True(t, current.SameFigures(totals))

	result, err := c.Engine().RequestTransition(ctx, claim.ID, domainwf.TriggerSubmit, workflow.Metadata{AuthorID: "advocate-1"})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateSubmitted, result.State)

	_, err = c.Engine().RequestTransition(ctx, claim.ID, domainwf.TriggerAuthorise, workflow.Metadata{})
	assert.True(t, errors.Is(err, domainwf.ErrInvalidTransition))

	history, err := c.Engine().TransitionHistory(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, history.Len())

	rec := httptest.NewRecorder()
	c.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `claims_transitions_total{event="submit",from="draft",to="submitted"} 1`)
	assert.Contains(t, rec.Body.String(), `claims_transition_failures_total{event="authorise",reason="invalid_transition"} 1`)
	assert.Contains(t, rec.Body.String(), `claims_value_band_total{band="10"} 1`)
}

func TestContainer_CustomBandsAndDisabledExtras(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	cfg.Cache.TotalsSize = 0
	cfg.Archive.Enabled = false
	cfg.ValueBands = []calculation.Band{
		{ID: 1, Name: "small", Upper: money.MustParse("50.00")},
		{ID: 2, Name: "large", Upper: money.MustParse("1000.00")},
	}

	c := startContainer(t, cfg)
	assert.Nil(t, c.MetricsHandler())
	assert.Equal(t, 0, c.Workers().Count())

	ctx := context.Background()
	claim := entity.NewClaim("T20240002", time.Now().UTC())
	require.NoError(t, c.Repositories().Claims.Create(ctx, claim))

	fee := money.MustParse("75.00")
	totals, err := c.Services().LineItems.Add(ctx, &entity.LineItem{ClaimID: claim.ID, Category: entity.CategoryFee, Amount: &fee})
	require.NoError(t, err)
	assert.Equal(t, 2, totals.ValueBandID)
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Lock.Driver = "zookeeper"
	_, err = NewContainer(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unknown lock driver")

	cfg = testConfig(t)
	cfg.ValueBands = []calculation.Band{{ID: 1, Name: "zero", Upper: money.Zero}}
	_, err = NewContainer(cfg, zap.NewNop())
	assert.ErrorIs(t, err, calculation.ErrInvalidBandTable)
}

func TestContainer_RedisUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lock.Driver = LockDriverRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	err = c.Start(context.Background())
	assert.ErrorContains(t, err, "redis lock unavailable")
	assert.False(t, c.Ready())
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("claim_id", "c1", 42, "skipped", "error", errors.New("boom"), "dangling")
	require.Len(t, fields, 2)
	assert.Equal(t, "claim_id", fields[0].Key)
	assert.Equal(t, "error", fields[1].Key)
}

func TestProvideTotalsCache(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, ProvideTotalsCache(&cfg.Cache, LockDriverMemory))
	assert.Nil(t, ProvideTotalsCache(&cfg.Cache, LockDriverRedis), "processes sharing the database must not cache totals locally")

	cfg.Cache.TotalsSize = 0
	assert.Nil(t, ProvideTotalsCache(&cfg.Cache, LockDriverMemory))
}
