package statemanager

import (
	"apexfolio-bot-go/internal/models"
	"math"
	"sort"
	"strconv"
	"time"
)

const (
	portfolioHistoryDays = 30
	seedTradeCount       = 50
	seedTradeSpacing     = 12 * time.Hour
	portfolioBaseValue   = 100000.0
)

var seedSymbols = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "NVDA"}

// DefaultSettings returns the settings seeded on first access.
func DefaultSettings() models.BotSettings {
	return models.BotSettings{
		Strategy:       models.StrategyMomentum,
		RiskPercentage: 1,
		TargetAssets:   []string{"AAPL", "GOOGL", "MSFT", "AMZN"},
	}
}

// defaultPortfolio builds one snapshot per day ending at now, oldest first.
// Values follow a slow sine wave around the base value plus up to ±1000 of noise.
func (sm *StateManager) defaultPortfolio(now time.Time) []models.PortfolioSnapshot {
	history := make([]models.PortfolioSnapshot, portfolioHistoryDays)
	for i := range history {
		daysAgo := portfolioHistoryDays - 1 - i
		history[i] = models.PortfolioSnapshot{
			Timestamp: models.FormatTimestamp(now.Add(-time.Duration(daysAgo) * 24 * time.Hour)),
			Value:     portfolioBaseValue + math.Sin(float64(i)/5)*5000 + sm.randFloat()*2000 - 1000,
		}
	}
	return history
}

// defaultTrades builds the synthetic ledger sorted newest first. The ordering
// is what makes the dashboard's recent trades a plain prefix.
func (sm *StateManager) defaultTrades(now time.Time) []models.Trade {
	trades := make([]models.Trade, seedTradeCount)
	for i := range trades {
		action := models.Sell
		if sm.randFloat() > 0.5 {
			action = models.Buy
		}
		trades[i] = models.Trade{
			ID:        strconv.Itoa(i + 1),
			Symbol:    seedSymbols[sm.randIntn(len(seedSymbols))],
			Action:    action,
			Quantity:  float64(sm.randIntn(20) + 1),
			Price:     sm.randFloat()*200 + 100,
			Timestamp: models.FormatTimestamp(now.Add(-time.Duration(i) * seedTradeSpacing)),
		}
	}
	sort.SliceStable(trades, func(a, b int) bool {
		return trades[a].Timestamp > trades[b].Timestamp
	})
	return trades
}

// defaultLogs is a fixed set of entries from the last hour, newest first.
func defaultLogs(now time.Time) []models.LogEntry {
	entry := func(id string, minutesAgo int, level models.LogLevel, msg string) models.LogEntry {
		return models.LogEntry{
			ID:        id,
			Timestamp: models.FormatTimestamp(now.Add(-time.Duration(minutesAgo) * time.Minute)),
			Level:     level,
			Message:   msg,
		}
	}
	return []models.LogEntry{
		entry("1", 1, models.LevelInfo, "Bot initialized successfully."),
		entry("2", 2, models.LevelInfo, "Starting simulation..."),
		entry("3", 5, models.LevelWarn, "Market data feed latency detected: 150ms."),
		entry("4", 10, models.LevelInfo, "Executing trade: BUY 10 AAPL @ 175.20"),
		entry("5", 15, models.LevelError, "Failed to execute trade for GOOGL: Insufficient simulated funds."),
		entry("6", 20, models.LevelInfo, "Settings updated: Risk percentage set to 1.5%."),
	}
}

func (sm *StateManager) randFloat() float64 {
	sm.randMu.Lock()
	defer sm.randMu.Unlock()
	return sm.rand.Float64()
}

func (sm *StateManager) randIntn(n int) int {
	sm.randMu.Lock()
	defer sm.randMu.Unlock()
	return sm.rand.Intn(n)
}
