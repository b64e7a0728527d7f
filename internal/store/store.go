// Package store keeps the client-side cache of the four dashboard resources
// and the actions that refresh or mutate them.
package store

import (
	"apexfolio-bot-go/internal/client"
	"apexfolio-bot-go/internal/models"
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"
)

const (
	msgFetchDashboard = "Failed to fetch dashboard data"
	msgFetchTrades    = "Failed to fetch trades"
	msgFetchSettings  = "Failed to fetch settings"
	msgFetchLogs      = "Failed to fetch logs"

	msgSavingSettings = "Saving settings..."
	msgSettingsSaved  = "Settings saved successfully!"
	msgSettingsFailed = "Failed to save settings."
	msgBotStarted     = "Bot started successfully!"
	msgBotStopped     = "Bot stopped."
	msgStartFailed    = "Failed to start bot."
	msgStopFailed     = "Failed to stop bot."
)

// Store caches dashboard, trades, settings and logs independently.
type Store struct {
	api      client.API
	notifier Notifier
	logger   *zap.Logger
	guard    bool

	dashboard *Slice[models.DashboardData]
	trades    *Slice[[]models.Trade]
	settings  *Slice[models.BotSettings]
	logs      *Slice[[]models.LogEntry]
}

// Option configures a Store.
type Option func(*Store)

// WithSequenceGuard discards a fetch result when a newer fetch of the same
// resource has been issued since. Without it the last response to arrive wins.
func WithSequenceGuard() Option {
	return func(s *Store) { s.guard = true }
}

// NewStore creates a store over api. A nil notifier discards notifications.
func NewStore(api client.API, notifier Notifier, logger *zap.Logger, opts ...Option) *Store {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	emptyTrades := []models.Trade{}
	emptyLogs := []models.LogEntry{}
	s := &Store{
		api:       api,
		notifier:  notifier,
		logger:    logger,
		dashboard: newSlice[models.DashboardData](nil, models.DashboardData.Clone),
		trades:    newSlice(&emptyTrades, slices.Clone[[]models.Trade]),
		settings:  newSlice[models.BotSettings](nil, models.BotSettings.Clone),
		logs:      newSlice(&emptyLogs, slices.Clone[[]models.LogEntry]),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Dashboard() SliceState[models.DashboardData] { return s.dashboard.Snapshot() }
func (s *Store) Trades() SliceState[[]models.Trade]          { return s.trades.Snapshot() }
func (s *Store) Settings() SliceState[models.BotSettings]    { return s.settings.Snapshot() }
func (s *Store) Logs() SliceState[[]models.LogEntry]         { return s.logs.Snapshot() }

// FetchDashboard refreshes the dashboard slice. The returned error is the
// same failure recorded on the slice.
func (s *Store) FetchDashboard(ctx context.Context) error {
	return fetch(ctx, s, "dashboard", s.dashboard, msgFetchDashboard, func(ctx context.Context) (models.DashboardData, error) {
		return deref(s.api.GetDashboardData(ctx))
	})
}

// FetchTrades refreshes the trades slice.
func (s *Store) FetchTrades(ctx context.Context) error {
	return fetch(ctx, s, "trades", s.trades, msgFetchTrades, s.api.GetTrades)
}

// FetchSettings refreshes the settings slice.
func (s *Store) FetchSettings(ctx context.Context) error {
	return fetch(ctx, s, "settings", s.settings, msgFetchSettings, func(ctx context.Context) (models.BotSettings, error) {
		return deref(s.api.GetSettings(ctx))
	})
}

// FetchLogs refreshes the logs slice.
func (s *Store) FetchLogs(ctx context.Context) error {
	return fetch(ctx, s, "logs", s.logs, msgFetchLogs, s.api.GetLogs)
}

func fetch[T any](ctx context.Context, s *Store, name string, slice *Slice[T], fallback string, get func(context.Context) (T, error)) error {
	seq := slice.begin()
	value, err := get(ctx)

	var applied bool
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = fallback
		}
		applied = slice.finish(seq, s.guard, nil, msg)
	} else {
		applied = slice.finish(seq, s.guard, &value, "")
	}
	if !applied {
		s.logger.Debug("stale response discarded", zap.String("resource", name), zap.Uint64("seq", seq))
	}
	return err
}

// errNoData carries no message so the per-resource fallback is recorded.
var errNoData = errors.New("")

func deref[T any](v *T, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, errNoData
	}
	return *v, nil
}

// UpdateSettings sends settings to the server. On success the settings slice
// holds the server's normalized copy; on failure it is left untouched.
func (s *Store) UpdateSettings(ctx context.Context, settings models.BotSettings) error {
	s.notifier.Loading(msgSavingSettings)
	saved, err := s.api.UpdateSettings(ctx, settings)
	if err == nil && saved == nil {
		err = errors.New(msgSettingsFailed)
	}
	if err != nil {
		s.logger.Error("failed to save settings", zap.Error(err))
		s.notifier.Error(msgSettingsFailed)
		return err
	}
	s.settings.set(*saved)
	s.notifier.Success(msgSettingsSaved)
	return nil
}

// StartBot asks the server to start the bot. Failures are reported through
// the notifier only.
func (s *Store) StartBot(ctx context.Context) {
	if _, err := s.api.StartBot(ctx); err != nil {
		s.logger.Error("Failed to start bot", zap.Error(err))
		s.notifier.Error(msgStartFailed)
		return
	}
	s.SetBotStatus(models.StatusRunning)
	s.notifier.Success(msgBotStarted)
}

// StopBot asks the server to stop the bot.
func (s *Store) StopBot(ctx context.Context) {
	if _, err := s.api.StopBot(ctx); err != nil {
		s.logger.Error("Failed to stop bot", zap.Error(err))
		s.notifier.Error(msgStopFailed)
		return
	}
	s.SetBotStatus(models.StatusStopped)
	s.notifier.Info(msgBotStopped)
}

// SetBotStatus patches the cached dashboard status without contacting the
// server.
func (s *Store) SetBotStatus(status models.BotStatus) {
	s.PatchDashboard(func(d *models.DashboardData) { d.BotStatus = status })
}

// PatchDashboard edits the cached dashboard. It does nothing when no
// dashboard has been fetched yet and reports whether fn ran.
func (s *Store) PatchDashboard(fn func(*models.DashboardData)) bool {
	return s.dashboard.mutate(fn)
}
