package models

import "time"

// TimestampLayout is the ISO-8601 layout used for every persisted timestamp.
// It matches the millisecond UTC form browsers produce with Date.toISOString().
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a timestamp written by FormatTimestamp. It also accepts
// any RFC 3339 value so hand-edited records still load.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// BotStatus is the single current state flag of the simulated bot.
type BotStatus string

const (
	StatusRunning BotStatus = "running"
	StatusStopped BotStatus = "stopped"
	StatusError   BotStatus = "error"
)

// AllStatuses lists every BotStatus value.
var AllStatuses = []BotStatus{StatusRunning, StatusStopped, StatusError}

// Valid reports whether s is a known status.
func (s BotStatus) Valid() bool {
	switch s {
	case StatusRunning, StatusStopped, StatusError:
		return true
	}
	return false
}

// Strategy is the trading algorithm the bot is configured with.
type Strategy string

const (
	StrategyMomentum      Strategy = "momentum"
	StrategyMeanReversion Strategy = "mean_reversion"
	StrategyArbitrage     Strategy = "arbitrage"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyMomentum, StrategyMeanReversion, StrategyArbitrage:
		return true
	}
	return false
}

// Risk bounds, inclusive.
const (
	MinRiskPercentage = 0.1
	MaxRiskPercentage = 10
)

// BotSettings is the user-editable bot configuration.
type BotSettings struct {
	Strategy       Strategy `json:"strategy"`
	RiskPercentage float64  `json:"riskPercentage"` // share of the portfolio risked per trade, in percent
	TargetAssets   []string `json:"targetAssets"`   // upper-case tickers, never empty
}

// Clone returns a copy that does not share the asset slice.
func (s BotSettings) Clone() BotSettings {
	out := s
	if s.TargetAssets != nil {
		out.TargetAssets = append([]string(nil), s.TargetAssets...)
	}
	return out
}

// Side of a trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Trade is a single ledger entry. Trades are immutable once created.
type Trade struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Action    Side    `json:"action"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	Timestamp string  `json:"timestamp"`
}

// PortfolioSnapshot is one point of the portfolio value history.
type PortfolioSnapshot struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// LogLevel is the severity of a LogEntry.
type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogEntry is a bot activity log line shown on the logs page.
type LogEntry struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Level     LogLevel `json:"level"`
	Message   string   `json:"message"`
}

// DashboardData is derived from the persisted entities on every read and is
// never stored itself.
type DashboardData struct {
	PortfolioValue float64             `json:"portfolioValue"`
	TodayPL        float64             `json:"todayPL"`
	TotalPL        float64             `json:"totalPL"`
	BotStatus      BotStatus           `json:"botStatus"`
	Performance    []PortfolioSnapshot `json:"performance"`
	RecentTrades   []Trade             `json:"recentTrades"`
}

// Clone returns a deep copy of the dashboard aggregate.
func (d DashboardData) Clone() DashboardData {
	out := d
	if d.Performance != nil {
		out.Performance = append([]PortfolioSnapshot(nil), d.Performance...)
	}
	if d.RecentTrades != nil {
		out.RecentTrades = append([]Trade(nil), d.RecentTrades...)
	}
	return out
}

// StatusAck is returned by the start and stop endpoints.
type StatusAck struct {
	Status string `json:"status"`
}
