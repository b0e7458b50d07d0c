package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/backtest"
	"tradesim/internal/model/enum"
)

// FileConfig mirrors the JSON config layout for one backtest run.
type FileConfig struct {
	Backtest BacktestConfig `json:"backtest"`
	Strategy StrategyConfig `json:"strategy"`
	Bars     string         `json:"bars"`
}

// BacktestConfig describes the run parameters. Sizing mode is given by name.
type BacktestConfig struct {
	Symbol          string          `json:"symbol"`
	StartingCapital decimal.Decimal `json:"startingCapital"`
	CommissionRate  decimal.Decimal `json:"commissionRate"`
	SlippageRate    decimal.Decimal `json:"slippageRate"`
	MaxPositions    int             `json:"maxPositions"`
	SizingMode      string          `json:"sizingMode"`
	SizingValue     decimal.Decimal `json:"sizingValue"`
	KellyWindow     int             `json:"kellyWindow"`
	KellyMinTrades  int             `json:"kellyMinTrades"`
	KellyCap        decimal.Decimal `json:"kellyCap"`
	KellyFallback   decimal.Decimal `json:"kellyFallback"`
	StopLossPct     decimal.Decimal `json:"stopLossPct"`
	TakeProfitPct   decimal.Decimal `json:"takeProfitPct"`
	From            string          `json:"from"`
	To              string          `json:"to"`
}

// StrategyConfig selects the reference strategy's lookbacks.
type StrategyConfig struct {
	Fast int `json:"fast"`
	Slow int `json:"slow"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Backtest backtest.Config
	Strategy StrategyConfig
	Bars     string
}

// Load reads a JSON config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	resolved, err := resolveBacktest(cfg.Backtest)
	if err != nil {
		return Loaded{}, err
	}
	if cfg.Bars == "" {
		return Loaded{}, fmt.Errorf("config missing bars path")
	}
	return Loaded{
		Backtest: resolved,
		Strategy: cfg.Strategy,
		Bars:     cfg.Bars,
	}, nil
}

func resolveBacktest(cfg BacktestConfig) (backtest.Config, error) {
	if cfg.Symbol == "" {
		return backtest.Config{}, fmt.Errorf("config missing symbol")
	}
	if cfg.StartingCapital.Sign() <= 0 {
		return backtest.Config{}, fmt.Errorf("starting capital must be positive")
	}
	if cfg.CommissionRate.IsNegative() || cfg.SlippageRate.IsNegative() {
		return backtest.Config{}, fmt.Errorf("commission and slippage rates must be non-negative")
	}
	mode, err := resolveSizingMode(cfg.SizingMode)
	if err != nil {
		return backtest.Config{}, err
	}
	from, err := resolveTime(cfg.From)
	if err != nil {
		return backtest.Config{}, fmt.Errorf("parse from: %w", err)
	}
	to, err := resolveTime(cfg.To)
	if err != nil {
		return backtest.Config{}, fmt.Errorf("parse to: %w", err)
	}
	return backtest.Config{
		Symbol:          cfg.Symbol,
		StartingCapital: cfg.StartingCapital,
		CommissionRate:  cfg.CommissionRate,
		SlippageRate:    cfg.SlippageRate,
		MaxPositions:    cfg.MaxPositions,
		Sizing: backtest.Sizing{
			Mode:      mode,
			Value:     cfg.SizingValue,
			Window:    cfg.KellyWindow,
			MinTrades: cfg.KellyMinTrades,
			Cap:       cfg.KellyCap,
			Fallback:  cfg.KellyFallback,
		},
		StopLossPct:   cfg.StopLossPct,
		TakeProfitPct: cfg.TakeProfitPct,
		From:          from,
		To:            to,
	}, nil
}

func resolveSizingMode(name string) (enum.SizingMode, error) {
	switch name {
	case "", "percent":
		return enum.SizingModePercent, nil
	case "fixed":
		return enum.SizingModeFixed, nil
	case "kelly":
		return enum.SizingModeKelly, nil
	default:
		return 0, fmt.Errorf("unknown sizing mode %q", name)
	}
}

func resolveTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}
