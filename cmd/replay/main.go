package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/bridge"
	"main/internal/catalog"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/ops"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	symbolFlag := flag.String("symbol", "", "Symbol as CODE.VENUE, e.g. EURUSD.SIM")
	dataset := flag.String("dataset", "quote", "Dataset: quote|trade|bar")
	fromFlag := flag.String("from", "", "Range start (RFC3339, inclusive)")
	toFlag := flag.String("to", "", "Range end (RFC3339, inclusive)")
	speed := flag.Float64("speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	hydrate := flag.Bool("hydrate", false, "Load records into the cache and print a summary instead of each record")
	barStep := flag.Uint("bar-step", 1, "Bar step for the bar dataset")
	barAggregation := flag.String("bar-aggregation", "minute", "Bar aggregation: second|minute|hour|day")
	flag.Parse()

	if err := run(*configPath, *symbolFlag, *dataset, *fromFlag, *toFlag, *speed, *hydrate, uint32(*barStep), *barAggregation); err != nil {
		logs.Errorf("replay failed, err: %+v", err)
		os.Exit(1)
	}
}

func run(configPath, symbolFlag, dataset, fromFlag, toFlag string, speed float64, hydrate bool, barStep uint32, barAggregation string) error {
	loaded, err := ops.Load(configPath)
	if err != nil {
		return err
	}

	symbol, err := parseSymbol(symbolFlag)
	if err != nil {
		return err
	}
	rng, err := parseRange(fromFlag, toFlag)
	if err != nil {
		return err
	}

	replayCfg := loaded.Replay
	replayCfg.Speed = speed
	metrics := obs.NewMetrics()
	replay, err := bridge.NewReplay(replayCfg, metrics)
	if err != nil {
		return err
	}

	ctx := context.Background()
	index := 0

	switch dataset {
	case "quote":
		if hydrate {
			n, err := replay.HydrateQuotes(ctx, loaded.Cache, symbol, rng)
			if err != nil {
				return err
			}
			logs.Infof("hydrated %d quote ticks for %s, cached=%d", n, symbol, loaded.Cache.QuoteTickCount(symbol))
			return nil
		}
		return replay.RunQuotes(ctx, symbol, rng, func(tick model.QuoteTick) error {
			index++
			fmt.Printf("%06d %s bid=%s ask=%s bid_size=%s ask_size=%s ts=%d\n",
				index, tick.Symbol, tick.Bid, tick.Ask, tick.BidSize, tick.AskSize, tick.TsEvent)
			return nil
		})
	case "trade":
		if hydrate {
			n, err := replay.HydrateTrades(ctx, loaded.Cache, symbol, rng)
			if err != nil {
				return err
			}
			logs.Infof("hydrated %d trade ticks for %s, cached=%d", n, symbol, loaded.Cache.TradeTickCount(symbol))
			return nil
		}
		return replay.RunTrades(ctx, symbol, rng, func(tick model.TradeTick) error {
			index++
			fmt.Printf("%06d %s price=%s size=%s side=%s id=%s ts=%d\n",
				index, tick.Symbol, tick.Price, tick.Size, tick.Aggressor, tick.TradeID, tick.TsEvent)
			return nil
		})
	case "bar":
		aggregation, err := parseAggregation(barAggregation)
		if err != nil {
			return err
		}
		barType := model.BarType{
			Symbol:    symbol,
			Spec:      model.BarSpec{Step: barStep, Aggregation: aggregation},
			PriceType: enum.PriceLast,
		}
		if hydrate {
			n, err := replay.HydrateBars(ctx, loaded.Cache, barType, rng)
			if err != nil {
				return err
			}
			logs.Infof("hydrated %d bars for %s, cached=%d", n, barType, loaded.Cache.BarCount(barType))
			return nil
		}
		return replay.RunBars(ctx, barType, rng, func(bar model.Bar) error {
			index++
			fmt.Printf("%06d %s o=%s h=%s l=%s c=%s v=%s ts_open=%d\n",
				index, bar.Type, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.TsOpen)
			return nil
		})
	default:
		return fmt.Errorf("unsupported dataset: %s", dataset)
	}
}

func parseSymbol(s string) (model.Symbol, error) {
	code, venue, ok := strings.Cut(s, ".")
	if !ok || code == "" || venue == "" {
		return model.Symbol{}, fmt.Errorf("symbol must be CODE.VENUE, got %q", s)
	}
	return model.NewSymbol(venue, code), nil
}

func parseRange(from, to string) (catalog.TimeRange, error) {
	if from == "" || to == "" {
		return catalog.TimeRange{}, fmt.Errorf("both -from and -to are required")
	}
	fromTime, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return catalog.TimeRange{}, fmt.Errorf("parse -from: %w", err)
	}
	toTime, err := time.Parse(time.RFC3339, to)
	if err != nil {
		return catalog.TimeRange{}, fmt.Errorf("parse -to: %w", err)
	}
	if toTime.Before(fromTime) {
		return catalog.TimeRange{}, fmt.Errorf("-to is before -from")
	}
	return catalog.TimeRange{From: fromTime.UnixNano(), To: toTime.UnixNano()}, nil
}

func parseAggregation(s string) (enum.BarAggregation, error) {
	switch s {
	case "second":
		return enum.BarAggregationSecond, nil
	case "minute":
		return enum.BarAggregationMinute, nil
	case "hour":
		return enum.BarAggregationHour, nil
	case "day":
		return enum.BarAggregationDay, nil
	default:
		return 0, fmt.Errorf("unsupported bar aggregation: %s", s)
	}
}
