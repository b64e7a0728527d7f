package cli

import (
	"apexfolio-bot-go/internal/client"
	"apexfolio-bot-go/internal/models"
	"apexfolio-bot-go/internal/reporter"
	"apexfolio-bot-go/internal/store"
	"apexfolio-bot-go/internal/validation"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// newClientStore builds a store over the configured API, notifying on cmd's
// error stream.
func (a *app) newClientStore(cmd *cobra.Command) (*store.Store, *terminalNotifier) {
	n := &terminalNotifier{w: cmd.ErrOrStderr()}
	api := client.New(a.cfg.Client, a.log)
	return store.NewStore(api, n, a.log, store.WithSequenceGuard()), n
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show portfolio value, P/L, bot status and recent trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _ := a.newClientStore(cmd)
			_ = s.FetchDashboard(cmd.Context())
			state := s.Dashboard()
			if err := sliceFailure(cmd.ErrOrStderr(), state); err != nil {
				return err
			}
			renderDashboard(cmd.OutOrStdout(), *state.Value)
			return nil
		},
	}
}

func newTradesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trades",
		Short: "List the trade history",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _ := a.newClientStore(cmd)
			_ = s.FetchTrades(cmd.Context())
			state := s.Trades()
			if err := sliceFailure(cmd.ErrOrStderr(), state); err != nil {
				return err
			}
			renderTrades(cmd.OutOrStdout(), "Trade history", *state.Value)
			return nil
		},
	}
}

func newLogsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Show the bot activity log",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _ := a.newClientStore(cmd)
			_ = s.FetchLogs(cmd.Context())
			state := s.Logs()
			if err := sliceFailure(cmd.ErrOrStderr(), state); err != nil {
				return err
			}
			renderLogs(cmd.OutOrStdout(), *state.Value)
			return nil
		},
	}
}

func newSettingsCmd(a *app) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the bot settings",
	}

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _ := a.newClientStore(cmd)
			_ = s.FetchSettings(cmd.Context())
			state := s.Settings()
			if err := sliceFailure(cmd.ErrOrStderr(), state); err != nil {
				return err
			}
			renderSettings(cmd.OutOrStdout(), *state.Value)
			return nil
		},
	})

	var strategy, risk, assets string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Update the settings; omitted flags keep their current value",
		Example: `  apexfolio settings set --strategy mean_reversion
  apexfolio settings set --risk 2.5 --assets "aapl, tsla"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _ := a.newClientStore(cmd)
			if err := s.FetchSettings(cmd.Context()); err != nil {
				return sliceFailure(cmd.ErrOrStderr(), s.Settings())
			}
			req := mergeSettings(*s.Settings().Value, cmd, strategy, risk, assets)

			settings, err := validation.ValidateSettings(req)
			if ve, ok := validation.AsError(err); ok {
				renderFieldErrors(cmd.ErrOrStderr(), ve.Fields)
				return errors.New("invalid settings")
			} else if err != nil {
				return err
			}

			if err := s.UpdateSettings(cmd.Context(), settings); err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
					renderFieldErrors(cmd.ErrOrStderr(), apiErr.Fields)
				}
				return err
			}
			renderSettings(cmd.OutOrStdout(), *s.Settings().Value)
			return nil
		},
	}
	setCmd.Flags().StringVar(&strategy, "strategy", "", "Trading strategy: momentum, mean_reversion or arbitrage")
	setCmd.Flags().StringVar(&risk, "risk", "", "Risk per trade in percent (0.1 to 10)")
	setCmd.Flags().StringVar(&assets, "assets", "", "Comma separated target assets, e.g. AAPL,MSFT")
	settingsCmd.AddCommand(setCmd)

	return settingsCmd
}

// mergeSettings overlays the flags the user set on the current settings and
// returns the raw request the validator expects.
func mergeSettings(current models.BotSettings, cmd *cobra.Command, strategy, risk, assets string) validation.SettingsRequest {
	req := validation.SettingsRequest{Strategy: string(current.Strategy)}
	req.RiskPercentage, _ = json.Marshal(current.RiskPercentage)
	req.TargetAssets, _ = json.Marshal(current.TargetAssets)

	if cmd.Flags().Changed("strategy") {
		req.Strategy = strategy
	}
	if cmd.Flags().Changed("risk") {
		req.RiskPercentage = json.RawMessage(strconv.Quote(risk))
	}
	if cmd.Flags().Changed("assets") {
		req.TargetAssets = json.RawMessage(strconv.Quote(assets))
	}
	return req
}

func newStartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.toggleBot(cmd, true)
		},
	}
}

func newStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.toggleBot(cmd, false)
		},
	}
}

// toggleBot loads the dashboard first so the optimistic status patch has
// something to apply to, then prints the resulting status.
func (a *app) toggleBot(cmd *cobra.Command, start bool) error {
	s, n := a.newClientStore(cmd)
	_ = s.FetchDashboard(cmd.Context())
	if start {
		s.StartBot(cmd.Context())
	} else {
		s.StopBot(cmd.Context())
	}
	if n.lastError != "" {
		return errors.New(n.lastError)
	}
	if dash := s.Dashboard(); dash.Value != nil {
		status := dash.Value.BotStatus
		fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render("Bot status: " + statusStyle(status).Render(string(status))))
	}
	return nil
}

func newReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print a performance report over the portfolio history and trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _ := a.newClientStore(cmd)

			// Independent slices; one failing must not cancel the other.
			var g errgroup.Group
			g.Go(func() error { return s.FetchDashboard(cmd.Context()) })
			g.Go(func() error { return s.FetchTrades(cmd.Context()) })
			_ = g.Wait()

			dash, trades := s.Dashboard(), s.Trades()
			if err := sliceFailure(cmd.ErrOrStderr(), dash); err != nil {
				return err
			}
			if err := sliceFailure(cmd.ErrOrStderr(), trades); err != nil {
				return err
			}
			reporter.Render(cmd.OutOrStdout(), reporter.Calculate(dash.Value.Performance, *trades.Value))
			return nil
		},
	}
}
