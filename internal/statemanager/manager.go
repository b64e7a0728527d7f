package statemanager

import (
	"apexfolio-bot-go/internal/models"
	"apexfolio-bot-go/internal/persistence"
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Storage keys of the persisted entities.
const (
	KeySettings  = "apexfolio_settings"
	KeyStatus    = "apexfolio_status"
	KeyTrades    = "apexfolio_trades"
	KeyPortfolio = "apexfolio_portfolio"
	KeyLogs      = "apexfolio_logs"
)

// RecentTradesLimit is how many ledger entries the dashboard carries.
const RecentTradesLimit = 5

// StateManager is the single source of truth for the bot state. It seeds the
// record store on first access, derives the dashboard on every read and
// applies settings and status updates. It holds no state of its own besides
// its collaborators, so one instance can serve every request.
type StateManager struct {
	repo   persistence.RecordStore
	logger *zap.Logger
	now    func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand
}

// Option customizes a StateManager.
type Option func(*StateManager)

// WithClock overrides the time source used for seed timestamps.
func WithClock(now func() time.Time) Option {
	return func(sm *StateManager) { sm.now = now }
}

// WithRand overrides the random source used for seed values.
func WithRand(r *rand.Rand) Option {
	return func(sm *StateManager) { sm.rand = r }
}

// NewStateManager creates a new StateManager over repo.
func NewStateManager(repo persistence.RecordStore, logger *zap.Logger, opts ...Option) *StateManager {
	sm := &StateManager{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// EnsureInitialized seeds every entity unless a status value is already stored.
// The status key is the sentinel. Concurrent first calls may both seed; the
// last writer wins and the result is equivalent placeholder data.
func (sm *StateManager) EnsureInitialized(ctx context.Context) error {
	var status models.BotStatus
	found, err := sm.repo.Get(ctx, KeyStatus, &status)
	if err != nil {
		return fmt.Errorf("read %s: %w", KeyStatus, err)
	}
	if found && status != "" {
		return nil
	}

	now := sm.now()
	sm.logger.Sugar().Info("No bot state found, seeding defaults.")

	seeds := []struct {
		key   string
		value any
	}{
		{KeySettings, DefaultSettings()},
		{KeyStatus, models.StatusStopped},
		{KeyPortfolio, sm.defaultPortfolio(now)},
		{KeyTrades, sm.defaultTrades(now)},
		{KeyLogs, defaultLogs(now)},
	}
	for _, s := range seeds {
		if err := sm.repo.Put(ctx, s.key, s.value); err != nil {
			return fmt.Errorf("seed %s: %w", s.key, err)
		}
	}
	return nil
}

// GetDashboardData derives the dashboard summary from the stored portfolio
// history, trade ledger and status. It never writes.
func (sm *StateManager) GetDashboardData(ctx context.Context) (*models.DashboardData, error) {
	if err := sm.EnsureInitialized(ctx); err != nil {
		return nil, err
	}

	var (
		portfolio []models.PortfolioSnapshot
		trades    []models.Trade
		status    models.BotStatus
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sm.get(gctx, KeyPortfolio, &portfolio) })
	g.Go(func() error { return sm.get(gctx, KeyTrades, &trades) })
	g.Go(func() error { return sm.get(gctx, KeyStatus, &status) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if status == "" {
		status = models.StatusStopped
	}
	data := DeriveDashboard(portfolio, trades, status)
	sm.logger.Debug("dashboard derived",
		zap.Int("snapshots", len(data.Performance)),
		zap.Float64("portfolio_value", data.PortfolioValue),
		zap.String("status", string(status)))
	return &data, nil
}

// DeriveDashboard computes the dashboard metrics. history must be ordered
// oldest first and trades newest first; neither is re-sorted.
func DeriveDashboard(history []models.PortfolioSnapshot, trades []models.Trade, status models.BotStatus) models.DashboardData {
	if history == nil {
		history = []models.PortfolioSnapshot{}
	}
	if trades == nil {
		trades = []models.Trade{}
	}

	var portfolioValue, previousValue, firstValue float64
	if n := len(history); n > 0 {
		portfolioValue = history[n-1].Value
		firstValue = history[0].Value
		previousValue = portfolioValue
		if n > 1 {
			previousValue = history[n-2].Value
		}
	}

	recent := trades
	if len(recent) > RecentTradesLimit {
		recent = recent[:RecentTradesLimit]
	}

	return models.DashboardData{
		PortfolioValue: portfolioValue,
		TodayPL:        portfolioValue - previousValue,
		TotalPL:        portfolioValue - firstValue,
		BotStatus:      status,
		Performance:    history,
		RecentTrades:   recent,
	}
}

// GetTrades returns the stored trade ledger, newest first.
func (sm *StateManager) GetTrades(ctx context.Context) ([]models.Trade, error) {
	if err := sm.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	var trades []models.Trade
	if err := sm.get(ctx, KeyTrades, &trades); err != nil {
		return nil, err
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	return trades, nil
}

// GetLogs returns the stored log entries.
func (sm *StateManager) GetLogs(ctx context.Context) ([]models.LogEntry, error) {
	if err := sm.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	var logs []models.LogEntry
	if err := sm.get(ctx, KeyLogs, &logs); err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.LogEntry{}
	}
	return logs, nil
}

// GetSettings returns the stored settings, or the defaults if none are stored.
func (sm *StateManager) GetSettings(ctx context.Context) (*models.BotSettings, error) {
	if err := sm.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	var settings models.BotSettings
	found, err := sm.repo.Get(ctx, KeySettings, &settings)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeySettings, err)
	}
	if !found {
		settings = DefaultSettings()
	}
	return &settings, nil
}

// UpdateSettings replaces the stored settings wholesale and returns them.
// Callers validate before reaching this point.
func (sm *StateManager) UpdateSettings(ctx context.Context, settings models.BotSettings) (*models.BotSettings, error) {
	if err := sm.repo.Put(ctx, KeySettings, settings); err != nil {
		return nil, fmt.Errorf("write %s: %w", KeySettings, err)
	}
	sm.logger.Info("settings updated",
		zap.String("strategy", string(settings.Strategy)),
		zap.Float64("risk_percentage", settings.RiskPercentage),
		zap.Strings("target_assets", settings.TargetAssets))
	return &settings, nil
}

// SetBotStatus stores status. Every status is reachable from every other one.
func (sm *StateManager) SetBotStatus(ctx context.Context, status models.BotStatus) error {
	if err := sm.repo.Put(ctx, KeyStatus, status); err != nil {
		return fmt.Errorf("write %s: %w", KeyStatus, err)
	}
	sm.logger.Info("bot status changed", zap.String("status", string(status)))
	return nil
}

// get reads key into dest, leaving dest unchanged when the key is absent.
func (sm *StateManager) get(ctx context.Context, key string, dest any) error {
	if _, err := sm.repo.Get(ctx, key, dest); err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	return nil
}
