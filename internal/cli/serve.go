package cli

import (
	"apexfolio-bot-go/internal/api"
	"apexfolio-bot-go/internal/persistence"
	"apexfolio-bot-go/internal/statemanager"
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API over the configured record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	defer a.log.Sync()

	repo, err := persistence.Open(a.cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s store: %w", a.cfg.Store.Driver, err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			a.log.Error("failed to close record store", zap.Error(err))
		}
	}()
	a.log.Info("Record store opened", zap.String("driver", a.cfg.Store.Driver), zap.String("path", a.cfg.Store.Path))

	sm := statemanager.NewStateManager(repo, a.log)
	if err := sm.EnsureInitialized(ctx); err != nil {
		return fmt.Errorf("initialize state: %w", err)
	}

	metrics := api.NewMetrics()
	if dash, err := sm.GetDashboardData(ctx); err == nil {
		metrics.SetBotStatus(dash.BotStatus)
	}

	router := api.NewRouter(sm, a.log, api.RouterOptions{
		Mode:           a.cfg.Server.Mode,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Metrics:        metrics,
	})
	srv := api.NewServer(
		a.cfg.Server.Address(),
		router,
		time.Duration(a.cfg.Server.ReadTimeoutSec)*time.Second,
		time.Duration(a.cfg.Server.WriteTimeoutSec)*time.Second,
		a.log,
	)
	return srv.Run(ctx)
}
