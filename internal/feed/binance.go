package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	shopspring "github.com/shopspring/decimal"
	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"tradesim/internal/model"
)

const _binanceBaseWsUrlMarketOnly = "wss://data-stream.binance.vision/ws"

// BinanceTrades normalizes Binance's public trade stream into Ticks. Quotes
// only flow into the engine; no order ever flows out.
type BinanceTrades struct {
	wss *ws.WebSocket
}

func NewBinanceTrades(ctx context.Context) *BinanceTrades {
	return &BinanceTrades{
		wss: ws.New(ctx, _binanceBaseWsUrlMarketOnly),
	}
}

func (repo *BinanceTrades) Close() {
	repo.wss.Close()
}

func (repo *BinanceTrades) StartWebsocket(ctx context.Context) error {
	if err := repo.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}

	return nil
}

type binanceSubscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type binanceSubscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

// SubscribeTrades subscribes the 'Trade Streams' topic for a symbol.
func (repo *BinanceTrades) SubscribeTrades(ctx context.Context, symbol string) error {
	appendIntoRegister := true
	if err := repo.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, ws *ws.WebSocket) error {
			payload := binanceSubscribeRequest{
				Method: "SUBSCRIBE",
				Params: []string{
					fmt.Sprintf("%s@trade", strings.ToLower(symbol)),
				},
				ID: 1,
			}

			if err := ws.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var resp binanceSubscribeResponse
			if err := m.Unmarshal(&resp); err != nil || resp.ID != 1 {
				return false, nil
			}

			if resp.Result != nil {
				return false, errors.Errorf("subscribe and wait, err: %+v", resp.Result)
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		return errors.Wrap(err, "send and wait")
	}

	return nil
}

type BinanceTrade struct {
	EventType string          `json:"e"`
	EventTime int64           `json:"E"`
	Symbol    string          `json:"s"`
	TradeID   int64           `json:"t"`
	Price     decimal.Decimal `json:"p"`
	Quantity  decimal.Decimal `json:"q"`
	TradeTime int64           `json:"T"`
}

// ObserveTicks delivers normalized ticks until the context ends or the
// returned unsubscribe runs. Unparseable payloads are logged and skipped.
func (repo *BinanceTrades) ObserveTicks(ctx context.Context, handler func(t model.Tick)) (unsubscribe func()) {
	ch, cancel := repo.wss.Subscribe()

	go func() {
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				resp, ok := ws.ReadMessage[BinanceTrade](m)
				if !ok || resp.EventType != "trade" {
					continue
				}

				tick, err := normalizeTrade(resp)
				if err != nil {
					logs.Errorf("normalize binance trade, err: %+v", err)
					continue
				}

				handler(tick)
			}
		}
	}()

	return cancel
}

func normalizeTrade(t BinanceTrade) (model.Tick, error) {
	price, err := shopspring.NewFromString(t.Price.String())
	if err != nil {
		return model.Tick{}, errors.Wrap(err, "parse price")
	}
	volume, err := shopspring.NewFromString(t.Quantity.String())
	if err != nil {
		return model.Tick{}, errors.Wrap(err, "parse quantity")
	}
	at := time.UnixMilli(t.TradeTime)
	if t.TradeTime == 0 {
		at = time.UnixMilli(t.EventTime)
	}
	return model.Tick{
		Symbol: t.Symbol,
		Price:  price,
		Volume: volume,
		At:     at.UTC(),
	}, nil
}
