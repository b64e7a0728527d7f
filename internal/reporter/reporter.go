package reporter

import (
	"apexfolio-bot-go/internal/models"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Metrics 存储根据组合历史和交易记录计算出的绩效指标
type Metrics struct {
	StartTime        string
	EndTime          string
	Snapshots        int
	StartValue       float64
	EndValue         float64
	TotalProfit      float64
	ProfitPercentage float64
	MaxDrawdown      float64 // 百分比
	TotalTrades      int
	BuyTrades        int
	SellTrades       int
	BuyNotional      float64
	SellNotional     float64
	TradedNotional   float64
	Symbols          []string // 出现过的交易标的，按字母排序
}

// Calculate derives the report from a portfolio history (oldest first) and a
// trade ledger.
func Calculate(history []models.PortfolioSnapshot, trades []models.Trade) *Metrics {
	m := &Metrics{Snapshots: len(history), TotalTrades: len(trades), Symbols: []string{}}

	if len(history) > 0 {
		first, last := history[0], history[len(history)-1]
		m.StartTime, m.EndTime = first.Timestamp, last.Timestamp
		m.StartValue, m.EndValue = first.Value, last.Value
		m.TotalProfit = last.Value - first.Value
		if first.Value != 0 {
			m.ProfitPercentage = m.TotalProfit / first.Value * 100
		}

		curve := make([]float64, len(history))
		for i, s := range history {
			curve[i] = s.Value
		}
		m.MaxDrawdown = calculateMaxDrawdown(curve) * 100
	}

	seen := make(map[string]bool)
	for _, t := range trades {
		notional := t.Quantity * t.Price
		switch t.Action {
		case models.Buy:
			m.BuyTrades++
			m.BuyNotional += notional
		case models.Sell:
			m.SellTrades++
			m.SellNotional += notional
		}
		m.TradedNotional += notional
		if !seen[t.Symbol] {
			seen[t.Symbol] = true
			m.Symbols = append(m.Symbols, t.Symbol)
		}
	}
	sort.Strings(m.Symbols)
	return m
}

func calculateMaxDrawdown(equityCurve []float64) float64 {
	if len(equityCurve) < 2 {
		return 0.0
	}
	peak := equityCurve[0]
	maxDrawdown := 0.0

	for _, equity := range equityCurve {
		if equity > peak {
			peak = equity
		}
		if peak <= 0 {
			continue
		}
		drawdown := (peak - equity) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// Render writes the report as a table.
func Render(w io.Writer, m *Metrics) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Performance Report")
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	period := "n/a"
	if m.Snapshots > 0 {
		period = fmt.Sprintf("%s to %s", m.StartTime, m.EndTime)
	}
	t.AppendRows([]table.Row{
		{"Period", period},
		{"Snapshots", m.Snapshots},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Start value", fmt.Sprintf("$%.2f", m.StartValue)},
		{"End value", fmt.Sprintf("$%.2f", m.EndValue)},
		{"Total P/L", fmt.Sprintf("$%.2f (%.2f%%)", m.TotalProfit, m.ProfitPercentage)},
		{"Max drawdown", fmt.Sprintf("%.2f%%", m.MaxDrawdown)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Trades", fmt.Sprintf("%d (%d buy / %d sell)", m.TotalTrades, m.BuyTrades, m.SellTrades)},
		{"Buy notional", fmt.Sprintf("$%.2f", m.BuyNotional)},
		{"Sell notional", fmt.Sprintf("$%.2f", m.SellNotional)},
		{"Traded notional", fmt.Sprintf("$%.2f", m.TradedNotional)},
		{"Symbols", fmt.Sprint(len(m.Symbols))},
	})
	t.Render()
}
