// Package archive persists backtest results to PostgreSQL. The engine never
// calls it: persistence belongs to callers, and cmd/backtest invokes this
// only when given a DSN.
package archive

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tradesim/internal/backtest"
	"tradesim/internal/model"
)

// Connect opens the PostgreSQL connection used for archiving.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("archive requires a dsn")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	return db, nil
}

// Disconnect closes the underlying connection pool.
func Disconnect(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RunRow is one archived backtest run.
type RunRow struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Symbol      string    `gorm:"index"`
	RanAt       time.Time `gorm:"index"`
	TotalTrades int
	Wins        int
	Losses      int
	NetProfit   decimal.Decimal `gorm:"type:numeric"`
	FinalEquity decimal.Decimal `gorm:"type:numeric"`
	ReportJSON  []byte          `gorm:"type:jsonb"`
}

// TradeRow is one archived closed trade.
type TradeRow struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	RunID      uint64 `gorm:"index"`
	Symbol     string
	Side       string
	EntryAt    time.Time
	ExitAt     time.Time
	EntryPrice decimal.Decimal `gorm:"type:numeric"`
	ExitPrice  decimal.Decimal `gorm:"type:numeric"`
	Quantity   decimal.Decimal `gorm:"type:numeric"`
	Commission decimal.Decimal `gorm:"type:numeric"`
	Slippage   decimal.Decimal `gorm:"type:numeric"`
	NetPnL     decimal.Decimal `gorm:"type:numeric"`
	ExitReason string
}

// Archiver writes runs through a caller-owned gorm connection.
type Archiver struct {
	db *gorm.DB
}

func New(db *gorm.DB) (*Archiver, error) {
	if db == nil {
		return nil, errors.New("archive requires a database handle")
	}
	if err := db.AutoMigrate(&RunRow{}, &TradeRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate archive tables")
	}
	return &Archiver{db: db}, nil
}

// SaveRun stores the report and its trades in one transaction.
func (a *Archiver) SaveRun(symbol string, result backtest.Result) (uint64, error) {
	reportJSON, err := json.Marshal(result.Report)
	if err != nil {
		return 0, errors.Wrap(err, "encode report")
	}

	run := RunRow{
		Symbol:      symbol,
		RanAt:       time.Now().UTC(),
		TotalTrades: result.Report.TotalTrades,
		Wins:        result.Report.Wins,
		Losses:      result.Report.Losses,
		NetProfit:   result.Report.NetProfit,
		FinalEquity: result.Report.FinalEquity,
		ReportJSON:  reportJSON,
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return errors.Wrap(err, "insert run")
		}
		if len(result.Trades) == 0 {
			return nil
		}
		rows := make([]TradeRow, 0, len(result.Trades))
		for _, t := range result.Trades {
			rows = append(rows, tradeRow(run.ID, t))
		}
		if err := tx.Create(&rows).Error; err != nil {
			return errors.Wrap(err, "insert trades")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return run.ID, nil
}

func tradeRow(runID uint64, t model.Trade) TradeRow {
	return TradeRow{
		RunID:      runID,
		Symbol:     t.Symbol,
		Side:       t.Side.String(),
		EntryAt:    t.EntryAt,
		ExitAt:     t.ExitAt,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		Quantity:   t.Quantity,
		Commission: t.Commission,
		Slippage:   t.Slippage,
		NetPnL:     t.NetPnL,
		ExitReason: t.ExitReason.String(),
	}
}
