package statemanager

import (
	"apexfolio-bot-go/internal/models"
	"apexfolio-bot-go/internal/persistence"
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockRecordStore wraps the in-memory repository, recording writes and
// injecting failures per key.
type mockRecordStore struct {
	sync.Mutex
	inner    *persistence.MemoryRepository
	puts     []string
	getError map[string]error
	putError map[string]error
}

func newMockRecordStore() *mockRecordStore {
	return &mockRecordStore{
		inner:    persistence.NewMemoryRepository(),
		getError: make(map[string]error),
		putError: make(map[string]error),
	}
}

func (m *mockRecordStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	m.Lock()
	err := m.getError[key]
	m.Unlock()
	if err != nil {
		return false, err
	}
	return m.inner.Get(ctx, key, dest)
}

func (m *mockRecordStore) Put(ctx context.Context, key string, value any) error {
	m.Lock()
	err := m.putError[key]
	if err == nil {
		m.puts = append(m.puts, key)
	}
	m.Unlock()
	if err != nil {
		return err
	}
	return m.inner.Put(ctx, key, value)
}

func (m *mockRecordStore) Close() error {
	return nil
}

func (m *mockRecordStore) putKeys() []string {
	m.Lock()
	defer m.Unlock()
	return append([]string(nil), m.puts...)
}

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestManager(repo persistence.RecordStore) *StateManager {
	return NewStateManager(repo, zap.NewNop(),
		WithClock(func() time.Time { return fixedNow }),
		WithRand(rand.New(rand.NewSource(42))))
}

func snapshots(values ...float64) []models.PortfolioSnapshot {
	out := make([]models.PortfolioSnapshot, len(values))
	for i, v := range values {
		out[i] = models.PortfolioSnapshot{
			Timestamp: models.FormatTimestamp(fixedNow.Add(time.Duration(i) * 24 * time.Hour)),
			Value:     v,
		}
	}
	return out
}

// TestEnsureInitializedSeedsInOrder verifies the first access writes every entity in order.
func TestEnsureInitializedSeedsInOrder(t *testing.T) {
	repo := newMockRecordStore()
	sm := newTestManager(repo)

	require.NoError(t, sm.EnsureInitialized(context.Background()))

	assert.Equal(t, []string{KeySettings, KeyStatus, KeyPortfolio, KeyTrades, KeyLogs}, repo.putKeys())
}

// TestEnsureInitializedIsIdempotent verifies a second call sees the status sentinel and writes nothing.
func TestEnsureInitializedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMockRecordStore()
	sm := newTestManager(repo)

	require.NoError(t, sm.EnsureInitialized(ctx))
	settings1, err := sm.GetSettings(ctx)
	require.NoError(t, err)
	trades1, err := sm.GetTrades(ctx)
	require.NoError(t, err)
	logs1, err := sm.GetLogs(ctx)
	require.NoError(t, err)
	dash1, err := sm.GetDashboardData(ctx)
	require.NoError(t, err)
	writes := len(repo.putKeys())

	require.NoError(t, sm.EnsureInitialized(ctx))
	settings2, err := sm.GetSettings(ctx)
	require.NoError(t, err)
	trades2, err := sm.GetTrades(ctx)
	require.NoError(t, err)
	logs2, err := sm.GetLogs(ctx)
	require.NoError(t, err)
	dash2, err := sm.GetDashboardData(ctx)
	require.NoError(t, err)

	assert.Equal(t, writes, len(repo.putKeys()), "no writes after initialization")
	assert.Equal(t, settings1, settings2)
	assert.Equal(t, len(trades1), len(trades2))
	assert.Equal(t, len(logs1), len(logs2))
	assert.Equal(t, len(dash1.Performance), len(dash2.Performance))
	assert.Equal(t, dash1.BotStatus, dash2.BotStatus)
}

func TestEnsureInitializedSkipsWhenStatusPresent(t *testing.T) {
	ctx := context.Background()
	repo := newMockRecordStore()
	require.NoError(t, repo.inner.Put(ctx, KeyStatus, models.StatusRunning))
	sm := newTestManager(repo)

	require.NoError(t, sm.EnsureInitialized(ctx))
	assert.Empty(t, repo.putKeys())

	// Other entities are absent; reads fall back instead of failing.
	trades, err := sm.GetTrades(ctx)
	require.NoError(t, err)
	assert.NotNil(t, trades)
	assert.Empty(t, trades)

	logs, err := sm.GetLogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)

	settings, err := sm.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), *settings)

	dash, err := sm.GetDashboardData(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, dash.BotStatus)
	assert.Zero(t, dash.PortfolioValue)
	assert.Empty(t, dash.RecentTrades)
}

func TestSeedDefaults(t *testing.T) {
	ctx := context.Background()
	sm := newTestManager(newMockRecordStore())

	settings, err := sm.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StrategyMomentum, settings.Strategy)
	assert.Equal(t, 1.0, settings.RiskPercentage)
	assert.Equal(t, []string{"AAPL", "GOOGL", "MSFT", "AMZN"}, settings.TargetAssets)

	dash, err := sm.GetDashboardData(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusStopped, dash.BotStatus)
}

func TestSeedPortfolioHistory(t *testing.T) {
	sm := newTestManager(newMockRecordStore())
	dash, err := sm.GetDashboardData(context.Background())
	require.NoError(t, err)

	history := dash.Performance
	require.Len(t, history, 30)
	assert.Equal(t, models.FormatTimestamp(fixedNow), history[29].Timestamp, "history ends today")
	assert.Equal(t, models.FormatTimestamp(fixedNow.Add(-29*24*time.Hour)), history[0].Timestamp)
	for i, snap := range history {
		assert.InDelta(t, 100000, snap.Value, 6000, "snapshot %d out of band", i)
		if i > 0 {
			assert.Less(t, history[i-1].Timestamp, snap.Timestamp, "history must be oldest first")
		}
	}
}

func TestSeedTradeLedger(t *testing.T) {
	sm := newTestManager(newMockRecordStore())
	trades, err := sm.GetTrades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 50)

	ids := make(map[string]bool)
	for i, tr := range trades {
		assert.False(t, ids[tr.ID], "duplicate trade id %s", tr.ID)
		ids[tr.ID] = true
		assert.Contains(t, seedSymbols, tr.Symbol)
		assert.Contains(t, []models.Side{models.Buy, models.Sell}, tr.Action)
		assert.GreaterOrEqual(t, tr.Quantity, 1.0)
		assert.LessOrEqual(t, tr.Quantity, 20.0)
		assert.GreaterOrEqual(t, tr.Price, 100.0)
		assert.Less(t, tr.Price, 300.0)
		if i > 0 {
			assert.Greater(t, trades[i-1].Timestamp, tr.Timestamp, "ledger must be newest first")
			prev, err := models.ParseTimestamp(trades[i-1].Timestamp)
			require.NoError(t, err)
			cur, err := models.ParseTimestamp(tr.Timestamp)
			require.NoError(t, err)
			assert.Equal(t, 12*time.Hour, prev.Sub(cur))
		}
	}
	assert.Equal(t, models.FormatTimestamp(fixedNow), trades[0].Timestamp)
}

func TestSeedLogs(t *testing.T) {
	sm := newTestManager(newMockRecordStore())
	logs, err := sm.GetLogs(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(logs), 5)

	levels := make(map[models.LogLevel]bool)
	for i, entry := range logs {
		levels[entry.Level] = true
		ts, err := models.ParseTimestamp(entry.Timestamp)
		require.NoError(t, err)
		assert.True(t, fixedNow.Sub(ts) <= time.Hour, "log %s older than an hour", entry.ID)
		if i > 0 {
			assert.Greater(t, logs[i-1].Timestamp, entry.Timestamp)
		}
	}
	assert.True(t, levels[models.LevelInfo])
	assert.True(t, levels[models.LevelWarn])
	assert.True(t, levels[models.LevelError])
}

func TestDeriveDashboardMetrics(t *testing.T) {
	tests := []struct {
		name           string
		history        []models.PortfolioSnapshot
		portfolioValue float64
		todayPL        float64
		totalPL        float64
	}{
		{"three snapshots", snapshots(100000, 102000, 101000), 101000, -1000, 1000},
		{"single snapshot", snapshots(100000), 100000, 0, 0},
		{"empty history", nil, 0, 0, 0},
		{"two snapshots", snapshots(90000, 95000), 95000, 5000, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DeriveDashboard(tt.history, nil, models.StatusStopped)
			assert.Equal(t, tt.portfolioValue, d.PortfolioValue)
			assert.Equal(t, tt.todayPL, d.TodayPL)
			assert.Equal(t, tt.totalPL, d.TotalPL)
			assert.Len(t, d.Performance, len(tt.history))
			assert.NotNil(t, d.Performance)
			assert.NotNil(t, d.RecentTrades)
		})
	}
}

func TestDashboardFromStoredHistory(t *testing.T) {
	ctx := context.Background()
	repo := newMockRecordStore()
	sm := newTestManager(repo)
	require.NoError(t, sm.EnsureInitialized(ctx))
	require.NoError(t, repo.inner.Put(ctx, KeyPortfolio, snapshots(100000, 102000, 101000)))

	dash, err := sm.GetDashboardData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 101000.0, dash.PortfolioValue)
	assert.Equal(t, -1000.0, dash.TodayPL)
	assert.Equal(t, 1000.0, dash.TotalPL)
	assert.Equal(t, snapshots(100000, 102000, 101000), dash.Performance)
}

func TestDashboardRecentTradesArePrefixOfLedger(t *testing.T) {
	ctx := context.Background()
	sm := newTestManager(newMockRecordStore())

	trades, err := sm.GetTrades(ctx)
	require.NoError(t, err)
	dash, err := sm.GetDashboardData(ctx)
	require.NoError(t, err)

	require.Len(t, dash.RecentTrades, RecentTradesLimit)
	assert.Equal(t, trades[:5], dash.RecentTrades)
}

func TestDashboardDoesNotResortLedger(t *testing.T) {
	ctx := context.Background()
	repo := newMockRecordStore()
	sm := newTestManager(repo)
	require.NoError(t, sm.EnsureInitialized(ctx))

	// Deliberately oldest first: the service must return the stored prefix as is.
	ledger := []models.Trade{{ID: "a", Timestamp: "2026-01-01T00:00:00.000Z"}, {ID: "b", Timestamp: "2026-01-02T00:00:00.000Z"}}
	require.NoError(t, repo.inner.Put(ctx, KeyTrades, ledger))

	dash, err := sm.GetDashboardData(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger, dash.RecentTrades)
}

func TestUpdateSettingsReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	sm := newTestManager(newMockRecordStore())
	require.NoError(t, sm.EnsureInitialized(ctx))

	next := models.BotSettings{Strategy: models.StrategyArbitrage, RiskPercentage: 2.5, TargetAssets: []string{"NVDA"}}
	got, err := sm.UpdateSettings(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, next, *got)

	stored, err := sm.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, *stored)
}

func TestSetBotStatusAnyTransition(t *testing.T) {
	ctx := context.Background()
	sm := newTestManager(newMockRecordStore())
	require.NoError(t, sm.EnsureInitialized(ctx))

	for _, status := range []models.BotStatus{models.StatusRunning, models.StatusRunning, models.StatusError, models.StatusStopped, models.StatusError} {
		require.NoError(t, sm.SetBotStatus(ctx, status))
		dash, err := sm.GetDashboardData(ctx)
		require.NoError(t, err)
		assert.Equal(t, status, dash.BotStatus)
	}
}

func TestStorageErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("store unavailable")

	t.Run("sentinel read", func(t *testing.T) {
		repo := newMockRecordStore()
		repo.getError[KeyStatus] = boom
		_, err := newTestManager(repo).GetDashboardData(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("seed write", func(t *testing.T) {
		repo := newMockRecordStore()
		repo.putError[KeyTrades] = boom
		_, err := newTestManager(repo).GetTrades(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("concurrent dashboard read", func(t *testing.T) {
		repo := newMockRecordStore()
		sm := newTestManager(repo)
		require.NoError(t, sm.EnsureInitialized(ctx))
		repo.getError[KeyPortfolio] = boom
		_, err := sm.GetDashboardData(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("settings write", func(t *testing.T) {
		repo := newMockRecordStore()
		repo.putError[KeySettings] = boom
		_, err := newTestManager(repo).UpdateSettings(ctx, DefaultSettings())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("status write", func(t *testing.T) {
		repo := newMockRecordStore()
		repo.putError[KeyStatus] = boom
		assert.ErrorIs(t, newTestManager(repo).SetBotStatus(ctx, models.StatusRunning), boom)
	})
}

// TestConcurrentFirstAccessConverges races many first reads against an empty store.
func TestConcurrentFirstAccessConverges(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewMemoryRepository()
	sm := NewStateManager(repo, zap.NewNop())

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := sm.GetDashboardData(ctx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent read failed: %v", err)
	}

	trades, err := sm.GetTrades(ctx)
	require.NoError(t, err)
	assert.Len(t, trades, 50)
	assert.Equal(t, 5, repo.Len())
}
