package cli

import (
	"apexfolio-bot-go/internal/models"
	"apexfolio-bot-go/internal/store"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// UI styles
var (
	loadingStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Italic(true)

	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3B82F6"))

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B"))

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)
)

// terminalNotifier prints notifications as styled lines and remembers the
// last error so commands can exit non-zero.
type terminalNotifier struct {
	w         io.Writer
	lastError string
}

var _ store.Notifier = (*terminalNotifier)(nil)

func (n *terminalNotifier) Loading(msg string) { fmt.Fprintln(n.w, loadingStyle.Render("… "+msg)) }
func (n *terminalNotifier) Success(msg string) { fmt.Fprintln(n.w, successStyle.Render("✓ "+msg)) }
func (n *terminalNotifier) Info(msg string)    { fmt.Fprintln(n.w, infoStyle.Render("ℹ "+msg)) }
func (n *terminalNotifier) Error(msg string) {
	n.lastError = msg
	fmt.Fprintln(n.w, errorStyle.Render("✗ "+msg))
}

func statusStyle(status models.BotStatus) lipgloss.Style {
	switch status {
	case models.StatusRunning:
		return successStyle
	case models.StatusError:
		return errorStyle
	default:
		return warnStyle
	}
}

func levelStyle(level models.LogLevel) lipgloss.Style {
	switch level {
	case models.LevelError:
		return errorStyle
	case models.LevelWarn:
		return warnStyle
	default:
		return infoStyle
	}
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func signedMoney(v float64) string {
	if v >= 0 {
		return "+" + money(v)
	}
	return "-" + money(-v)
}

func renderDashboard(w io.Writer, d models.DashboardData) {
	fmt.Fprintln(w, headerStyle.Render("Bot status: "+statusStyle(d.BotStatus).Render(string(d.BotStatus))))

	t := newTable(w, "Portfolio")
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.AppendRows([]table.Row{
		{"Portfolio value", money(d.PortfolioValue)},
		{"Today's P/L", signedMoney(d.TodayPL)},
		{"Total P/L", signedMoney(d.TotalPL)},
		{"History points", len(d.Performance)},
	})
	t.Render()

	renderTrades(w, "Recent trades", d.RecentTrades)
}

func renderTrades(w io.Writer, title string, trades []models.Trade) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"ID", "Time", "Symbol", "Action", "Quantity", "Price", "Total"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	for _, tr := range trades {
		t.AppendRow(table.Row{
			tr.ID, tr.Timestamp, tr.Symbol, strings.ToUpper(string(tr.Action)),
			tr.Quantity, money(tr.Price), money(tr.Quantity * tr.Price),
		})
	}
	if len(trades) == 0 {
		t.AppendFooter(table.Row{"", "no trades"})
	}
	t.Render()
}

func renderLogs(w io.Writer, logs []models.LogEntry) {
	t := newTable(w, "Bot logs")
	t.AppendHeader(table.Row{"Time", "Level", "Message"})
	for _, l := range logs {
		t.AppendRow(table.Row{l.Timestamp, levelStyle(l.Level).Render(strings.ToUpper(string(l.Level))), l.Message})
	}
	t.Render()
}

func renderSettings(w io.Writer, s models.BotSettings) {
	t := newTable(w, "Bot settings")
	t.AppendRows([]table.Row{
		{"Strategy", string(s.Strategy)},
		{"Risk per trade", fmt.Sprintf("%g%%", s.RiskPercentage)},
		{"Target assets", strings.Join(s.TargetAssets, ", ")},
	})
	t.Render()
}

func renderFieldErrors(w io.Writer, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("  %s: %s", k, fields[k])))
	}
}

// sliceFailure reports a slice's recorded error with the retry hint.
func sliceFailure[T any](w io.Writer, state store.SliceState[T]) error {
	if state.Error == "" {
		return nil
	}
	fmt.Fprintln(w, errorStyle.Render("Error: "+state.Error))
	fmt.Fprintln(w, loadingStyle.Render("Re-run the command to retry."))
	return errors.New(state.Error)
}
