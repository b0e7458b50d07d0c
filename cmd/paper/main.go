package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"tradesim/internal/bus"
	"tradesim/internal/feed"
	"tradesim/internal/journal"
	"tradesim/internal/live"
	"tradesim/internal/model"
	"tradesim/internal/model/enum"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "Symbol to stream")
	source := flag.String("source", "synthetic", "Tick source: synthetic|binance")
	basePrice := flag.Float64("base-price", 100, "Synthetic walk base price")
	stepPct := flag.Float64("step-pct", 0.002, "Synthetic walk max move per tick")
	seed := flag.Int64("seed", 0, "Synthetic walk seed (0=time-based)")
	interval := flag.Duration("interval", 100*time.Millisecond, "Synthetic tick interval")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0=unlimited)")
	queueSize := flag.Int("queue", 1024, "Tick queue capacity")
	demoOrders := flag.Bool("demo-orders", true, "Submit a demo order set around the base price")
	journalDir := flag.String("journal-dir", "", "Persist submissions and fills to this directory")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var jw *journal.Writer
	if *journalDir != "" {
		w, err := journal.NewWriter(journal.DefaultConfig(*journalDir))
		if err != nil {
			log.Fatalf("open journal: %v", err)
		}
		jw = w
		defer func() {
			if err := jw.Close(); err != nil {
				logs.Errorf("close journal: %+v", err)
			}
		}()
	}

	manager := live.NewManager(live.Config{Symbols: []string{*symbol}})
	if *demoOrders {
		submitDemoOrders(manager, jw, *symbol, *basePrice)
	}

	queue := bus.NewQueue(*queueSize)
	switch *source {
	case "synthetic":
		go runSynthetic(ctx, queue, *symbol, *basePrice, *stepPct, *seed, *interval)
	case "binance":
		if err := runBinance(ctx, queue, *symbol); err != nil {
			log.Fatalf("binance feed failed: %v", err)
		}
	default:
		log.Fatalf("unknown source %q", *source)
	}

	var processed int
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	queue.Run(runCtx, func(t model.Tick) {
		events := manager.OnTick(t.Symbol, t.Price.InexactFloat64(), t.At)
		for _, ev := range events {
			logs.Infof("fill: order=%d %s %s qty=%s price=%s trigger=%s complete=%t",
				ev.OrderID, ev.Symbol, ev.Side, ev.Quantity.StringFixed(6),
				ev.Price.StringFixed(4), ev.Trigger, ev.Complete)
			if jw != nil {
				if err := jw.AppendFill(ev); err != nil {
					logs.Errorf("journal fill: %+v", err)
				}
			}
		}
		processed++
		if *maxTicks > 0 && processed >= *maxTicks {
			cancel()
		}
	})

	snap := manager.Metrics()
	diags := manager.Diagnostics()
	logs.Infof("paper session done: ticks=%d fills=%d rejected=%d queue_drops=%d out_of_order=%d open=%d",
		snap.Ticks, snap.Fills, snap.TicksRejected, queue.Drops(), diags.OutOfOrder, manager.OpenCount(*symbol))
}

// submitDemoOrders places a small showcase order set: a resting buy limit, a
// sell trailing stop, and an OCO bracket.
func submitDemoOrders(manager *live.Manager, jw *journal.Writer, symbol string, base float64) {
	px := decimal.NewFromFloat(base)
	qty := decimal.NewFromInt(1)

	record := func(o *model.Order, err error, what string) {
		if err != nil {
			logs.Warnf("submit demo %s: %+v", what, err)
			return
		}
		if jw != nil {
			if err := jw.AppendOrder(o.Snapshot()); err != nil {
				logs.Errorf("journal order: %+v", err)
			}
		}
	}

	o, err := manager.Submit(model.OrderSpec{
		Symbol:     symbol,
		Side:       enum.OrderSideBuy,
		Kind:       enum.OrderKindLimit,
		Quantity:   qty,
		LimitPrice: px.Mul(decimal.NewFromFloat(0.99)),
	})
	record(o, err, "limit")

	o, err = manager.Submit(model.OrderSpec{
		Symbol:         symbol,
		Side:           enum.OrderSideSell,
		Kind:           enum.OrderKindTrailingStop,
		Quantity:       qty,
		TrailDistance:  px.Mul(decimal.NewFromFloat(0.01)),
		ReferencePrice: px,
	})
	record(o, err, "trailing stop")

	if pair, err := manager.SubmitOCO(model.OCOSpec{
		Primary: model.OrderSpec{
			Symbol:     symbol,
			Side:       enum.OrderSideSell,
			Kind:       enum.OrderKindLimit,
			Quantity:   qty,
			LimitPrice: px.Mul(decimal.NewFromFloat(1.02)),
		},
		Secondary: model.OrderSpec{
			Symbol:         symbol,
			Side:           enum.OrderSideSell,
			Kind:           enum.OrderKindStop,
			Quantity:       qty,
			StopPrice:      px.Mul(decimal.NewFromFloat(0.98)),
			ReferencePrice: px,
		},
	}); err != nil {
		logs.Warnf("submit demo oco: %+v", err)
	} else {
		record(pair.Primary, nil, "oco")
		record(pair.Secondary, nil, "oco")
	}
}

func runSynthetic(ctx context.Context, queue *bus.Queue, symbol string, base, stepPct float64, seed int64, interval time.Duration) {
	defer queue.Close()
	gen := feed.NewGenerator(symbol, base, stepPct, seed)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := queue.TryPublish(gen.Next(now)); err != nil {
				if err == bus.ErrQueueClosed {
					return
				}
			}
		}
	}
}

func runBinance(ctx context.Context, queue *bus.Queue, symbol string) error {
	trades := feed.NewBinanceTrades(ctx)
	if err := trades.StartWebsocket(ctx); err != nil {
		return err
	}
	if err := trades.SubscribeTrades(ctx, symbol); err != nil {
		return err
	}
	trades.ObserveTicks(ctx, func(t model.Tick) {
		_ = queue.TryPublish(t)
	})
	go func() {
		<-ctx.Done()
		trades.Close()
		queue.Close()
	}()
	return nil
}
