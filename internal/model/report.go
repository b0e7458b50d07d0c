package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Ratio is a float64 metric that survives JSON round trips even when it is
// a sentinel (+Inf on no losing trades). Non-finite values encode as strings.
type Ratio float64

func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	if math.IsInf(f, 1) {
		return []byte(`"+inf"`), nil
	}
	if math.IsInf(f, -1) {
		return []byte(`"-inf"`), nil
	}
	if math.IsNaN(f) {
		return []byte(`"nan"`), nil
	}
	return json.Marshal(f)
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "+inf", "inf":
			*r = Ratio(math.Inf(1))
		case "-inf":
			*r = Ratio(math.Inf(-1))
		case "nan":
			*r = Ratio(math.NaN())
		default:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*r = Ratio(f)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// PerformanceReport aggregates a closed-trade list. Every ratio is guarded
// against division by zero with documented sentinels, so a report renders
// even for a zero-trade run.
type PerformanceReport struct {
	TotalTrades int `json:"totalTrades"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`

	WinRate      Ratio `json:"winRate"`
	ProfitFactor Ratio `json:"profitFactor"`
	Expectancy   Ratio `json:"expectancy"`

	TotalProfit decimal.Decimal `json:"totalProfit"`
	TotalLoss   decimal.Decimal `json:"totalLoss"`
	NetProfit   decimal.Decimal `json:"netProfit"`
	AvgWin      decimal.Decimal `json:"avgWin"`
	AvgLoss     decimal.Decimal `json:"avgLoss"`

	MaxDrawdownPct   Ratio `json:"maxDrawdownPct"`
	Sharpe           Ratio `json:"sharpe"`
	Sortino          Ratio `json:"sortino"`
	Calmar           Ratio `json:"calmar"`
	AnnualizedReturn Ratio `json:"annualizedReturn"`

	LongestWinStreak  int `json:"longestWinStreak"`
	LongestLossStreak int `json:"longestLossStreak"`

	StartingCapital decimal.Decimal `json:"startingCapital"`
	FinalEquity     decimal.Decimal `json:"finalEquity"`
}

// Render writes a fixed-width text summary.
func (r PerformanceReport) Render() string {
	var b strings.Builder
	row := func(name, value string) {
		fmt.Fprintf(&b, "%-22s %s\n", name, value)
	}
	ratio := func(v Ratio) string {
		f := float64(v)
		if math.IsInf(f, 1) {
			return "+inf"
		}
		if math.IsInf(f, -1) {
			return "-inf"
		}
		return strconv.FormatFloat(f, 'f', 4, 64)
	}
	row("trades", strconv.Itoa(r.TotalTrades))
	row("wins/losses", fmt.Sprintf("%d/%d", r.Wins, r.Losses))
	row("win rate", ratio(r.WinRate))
	row("profit factor", ratio(r.ProfitFactor))
	row("expectancy", ratio(r.Expectancy))
	row("net profit", r.NetProfit.StringFixed(2))
	row("max drawdown %", ratio(r.MaxDrawdownPct))
	row("sharpe", ratio(r.Sharpe))
	row("sortino", ratio(r.Sortino))
	row("calmar", ratio(r.Calmar))
	row("longest win streak", strconv.Itoa(r.LongestWinStreak))
	row("longest loss streak", strconv.Itoa(r.LongestLossStreak))
	row("starting capital", r.StartingCapital.StringFixed(2))
	row("final equity", r.FinalEquity.StringFixed(2))
	return b.String()
}
