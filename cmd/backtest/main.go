package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	pyroscope "github.com/grafana/pyroscope-go"

	"tradesim/internal/archive"
	"tradesim/internal/backtest"
	"tradesim/internal/feed"
	"tradesim/internal/ops"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON run config")
	jsonOut := flag.Bool("json", false, "Print the full result as JSON instead of the text report")
	archiveDSN := flag.String("archive-dsn", "", "PostgreSQL DSN to archive the run (empty=disabled)")
	pyroAddr := flag.String("pyroscope", "", "Pyroscope server address for profiling long replays (empty=disabled)")
	flag.Parse()

	if *configPath == "" {
		log.Fatalf("-config is required")
	}

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if *pyroAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "tradesim/backtest",
			ServerAddress:   *pyroAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	bars, err := feed.ReadBars(loaded.Bars)
	if err != nil {
		log.Fatalf("bar load failed: %v", err)
	}

	driver := backtest.NewDriver(loaded.Backtest, backtest.MACross(loaded.Strategy.Fast, loaded.Strategy.Slow))
	result, err := driver.Run(context.Background(), bars)
	if err != nil {
		log.Fatalf("backtest run failed: %v", err)
	}

	if *jsonOut {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("encode result failed: %v", err)
		}
		fmt.Println(string(data))
	} else {
		fmt.Print(result.Report.Render())
		if result.Diagnostics.SkippedBars > 0 || result.Diagnostics.OutOfOrder > 0 {
			fmt.Printf("diagnostics: skipped_bars=%d out_of_order=%d\n",
				result.Diagnostics.SkippedBars, result.Diagnostics.OutOfOrder)
		}
	}

	if *archiveDSN != "" {
		db, err := archive.Connect(*archiveDSN)
		if err != nil {
			log.Fatalf("archive connect failed: %v", err)
		}
		defer func() {
			_ = archive.Disconnect(db)
		}()

		archiver, err := archive.New(db)
		if err != nil {
			log.Fatalf("archive init failed: %v", err)
		}
		runID, err := archiver.SaveRun(loaded.Backtest.Symbol, result)
		if err != nil {
			log.Fatalf("archive save failed: %v", err)
		}
		log.Printf("archived run id=%d trades=%d", runID, len(result.Trades))
	}
}
