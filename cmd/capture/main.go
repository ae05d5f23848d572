package main

import (
	"context"
	"flag"
	"os"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/bridge"
	"main/internal/cache"
	"main/internal/catalog"
	"main/internal/mdg"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/refdata"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	ticks := flag.Int("ticks", 0, "Number of ticks to capture (0=run until shutdown)")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	flag.Parse()

	if err := run(*configPath, *ticks, *pyroscopeAddr); err != nil {
		logs.Errorf("capture failed, err: %+v", err)
		os.Exit(1)
	}
}

func run(configPath string, ticks int, pyroscopeAddr string) error {
	loaded, err := ops.Load(configPath)
	if err != nil {
		return err
	}

	if pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "marketdata/capture",
			ServerAddress:   pyroscopeAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	dataCache := loaded.Cache
	if loaded.Database != nil {
		client, err := conn.New(*loaded.Database)
		if err != nil {
			return err
		}
		defer client.Close()
		store, err := refdata.NewStore(client.DB())
		if err != nil {
			return err
		}
		n, err := store.LoadInto(dataCache)
		if err != nil {
			return err
		}
		logs.Infof("loaded %d instruments from reference database", n)
	}

	instruments := dataCache.Instruments()
	generator, err := mdg.NewGenerator(
		instruments,
		loaded.Generator.BasePrice,
		loaded.Generator.BaseSize,
		loaded.Generator.SpreadTicks,
		loaded.Generator.Seed,
	)
	if err != nil {
		return err
	}

	builders := make(map[model.Symbol]*mdg.BarBuilder, len(instruments))
	for _, instrument := range instruments {
		barType := model.BarType{
			Symbol:    instrument.Symbol,
			Spec:      model.BarSpec{Step: 1, Aggregation: enum.BarAggregationMinute},
			PriceType: enum.PriceLast,
		}
		builder, err := mdg.NewBarBuilder(barType)
		if err != nil {
			return err
		}
		builders[instrument.Symbol] = builder
	}

	writer, err := catalog.NewWriter(loaded.Catalog)
	if err != nil {
		return err
	}

	metrics := obs.NewMetrics()
	feed, err := bridge.NewFeed(loaded.Feed, writer, metrics)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := feed.Start(ctx); err != nil {
		return err
	}
	logs.Infof("capture started: %d instruments, catalog dir %s", len(instruments), loaded.Catalog.Dir)

	interval := time.Duration(loaded.Generator.IntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	count := 0
loop:
	for {
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown signal received")
			break loop
		case <-ticker.C:
		}

		now := time.Now().UTC()
		if err := captureOne(dataCache, generator, builders, feed, now); err != nil {
			return err
		}

		count++
		if ticks > 0 && count >= ticks {
			break
		}
	}

	for symbol, builder := range builders {
		bar, ok := builder.Flush()
		if !ok {
			continue
		}
		dataCache.InsertBar(bar)
		if err := feed.TryAppendBars([]model.Bar{bar}); err != nil {
			logs.Warnf("final bar append dropped for %s, err: %+v", symbol, err)
		}
	}

	if err := feed.Close(); err != nil {
		return err
	}

	snapshot := metrics.Snapshot()
	logs.Infof("capture finished: ticks=%d batches=%v records=%v drops=%d retries=%d write_latency=%+v",
		count, snapshot.BatchCounts, snapshot.RecordCounts, snapshot.QueueDrops, snapshot.WriteRetries, snapshot.WriteLatency)
	return nil
}

func captureOne(dataCache *cache.DataCache, generator *mdg.Generator, builders map[model.Symbol]*mdg.BarBuilder, feed *bridge.Feed, now time.Time) error {
	quote := generator.NextQuote(now)
	dataCache.InsertQuoteTick(quote)
	if err := feed.TryAppendQuotes([]model.QuoteTick{quote}); err != nil {
		if err == bridge.ErrQueueFull {
			logs.Warnf("quote batch dropped: queue full")
		} else {
			return err
		}
	}

	trade := generator.NextTrade(now)
	dataCache.InsertTradeTick(trade)
	if err := feed.TryAppendTrades([]model.TradeTick{trade}); err != nil {
		if err == bridge.ErrQueueFull {
			logs.Warnf("trade batch dropped: queue full")
		} else {
			return err
		}
	}

	if builder, ok := builders[trade.Symbol]; ok {
		if bar, done := builder.ApplyTrade(trade); done {
			dataCache.InsertBar(bar)
			if err := feed.TryAppendBars([]model.Bar{bar}); err != nil && err != bridge.ErrQueueFull {
				return err
			}
		}
	}
	return nil
}
