package bridge

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/cache"
	"main/internal/catalog"
	"main/internal/model"
	"main/internal/obs"
)

// ReplayConfig controls the backtest read path.
type ReplayConfig struct {
	Catalog catalog.Config
	// Speed > 0 paces delivery by event-time deltas (1 = real time);
	// 0 replays as fast as the reader produces.
	Speed        float64
	StreamBuffer int
}

func (c ReplayConfig) withDefaults() ReplayConfig {
	if c.StreamBuffer == 0 {
		c.StreamBuffer = defaultStreamBuffer
	}
	return c
}

// Validate checks if the configuration is usable.
func (c ReplayConfig) Validate() error {
	if c.Catalog.Dir == "" {
		return fmt.Errorf("invalid replay config: catalog Dir is empty")
	}
	if c.Speed < 0 {
		return fmt.Errorf("invalid replay config: Speed must be >= 0")
	}
	if c.StreamBuffer <= 0 {
		return fmt.Errorf("invalid replay config: StreamBuffer must be > 0")
	}
	return nil
}

// Clock allows deterministic pacing control in tests.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Replay drives catalog reads to completion synchronously from the
// caller's perspective, preserving deterministic single-threaded semantics
// for the consuming core. A read failure mid-replay is fatal: a fabricated
// partial dataset would invalidate backtest results.
type Replay struct {
	cfg     ReplayConfig
	clock   Clock
	metrics *obs.Metrics
}

// NewReplay validates the config and creates a replay engine.
func NewReplay(cfg ReplayConfig, metrics *obs.Metrics) (*Replay, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Replay{cfg: cfg, clock: realClock{}, metrics: metrics}, nil
}

// WithClock swaps the clock implementation.
func (r *Replay) WithClock(clock Clock) *Replay {
	if clock != nil {
		r.clock = clock
	}
	return r
}

// RunQuotes replays quote ticks in ascending timestamp order, blocking the
// caller until the range is exhausted, the handler fails, or ctx ends.
func (r *Replay) RunQuotes(ctx context.Context, symbol model.Symbol, rng catalog.TimeRange, handler func(model.QuoteTick) error) error {
	cursor, err := catalog.QueryQuotes(r.cfg.Catalog, symbol, rng)
	if err != nil {
		return err
	}
	return runCursor(ctx, r, catalog.DatasetQuotes, cursor, func(t model.QuoteTick) int64 { return t.TsEvent }, handler)
}

// RunTrades replays trade ticks in ascending timestamp order.
func (r *Replay) RunTrades(ctx context.Context, symbol model.Symbol, rng catalog.TimeRange, handler func(model.TradeTick) error) error {
	cursor, err := catalog.QueryTrades(r.cfg.Catalog, symbol, rng)
	if err != nil {
		return err
	}
	return runCursor(ctx, r, catalog.DatasetTrades, cursor, func(t model.TradeTick) int64 { return t.TsEvent }, handler)
}

// RunBars replays bars in ascending timestamp order.
func (r *Replay) RunBars(ctx context.Context, barType model.BarType, rng catalog.TimeRange, handler func(model.Bar) error) error {
	cursor, err := catalog.QueryBars(r.cfg.Catalog, barType, rng)
	if err != nil {
		return err
	}
	return runCursor(ctx, r, catalog.DatasetBars, cursor, func(b model.Bar) int64 { return b.TsEvent }, handler)
}

// HydrateQuotes replays a range into the cache and returns the record
// count. Records arrive oldest first, so cache ordering holds.
func (r *Replay) HydrateQuotes(ctx context.Context, c *cache.DataCache, symbol model.Symbol, rng catalog.TimeRange) (int, error) {
	n := 0
	err := r.RunQuotes(ctx, symbol, rng, func(tick model.QuoteTick) error {
		c.InsertQuoteTick(tick)
		n++
		return nil
	})
	return n, err
}

// HydrateTrades replays a trade range into the cache.
func (r *Replay) HydrateTrades(ctx context.Context, c *cache.DataCache, symbol model.Symbol, rng catalog.TimeRange) (int, error) {
	n := 0
	err := r.RunTrades(ctx, symbol, rng, func(tick model.TradeTick) error {
		c.InsertTradeTick(tick)
		n++
		return nil
	})
	return n, err
}

// HydrateBars replays a bar range into the cache.
func (r *Replay) HydrateBars(ctx context.Context, c *cache.DataCache, barType model.BarType, rng catalog.TimeRange) (int, error) {
	n := 0
	err := r.RunBars(ctx, barType, rng, func(bar model.Bar) error {
		c.InsertBar(bar)
		n++
		return nil
	})
	return n, err
}

// Stream is a cancellable, bounded channel of replayed records. Records
// cross the channel whole: a consumer never observes a partial record.
type Stream[T any] struct {
	// C closes when the range is exhausted, Cancel is called, or the
	// stream fails; check Err afterwards.
	C      <-chan T
	cancel context.CancelFunc
	err    atomic.Value
	done   chan struct{}
}

// Cancel abandons the stream; remaining catalog I/O stops at the next
// record boundary and its resources are released.
func (s *Stream[T]) Cancel() {
	s.cancel()
	<-s.done
}

// Err returns the stream failure, nil after a clean end or cancellation.
func (s *Stream[T]) Err() error {
	if v := s.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// StreamQuotes replays quote ticks through a bounded channel for a native
// asynchronous consumer.
func (r *Replay) StreamQuotes(ctx context.Context, symbol model.Symbol, rng catalog.TimeRange) *Stream[model.QuoteTick] {
	return newStream(ctx, r, func(ctx context.Context, emit func(model.QuoteTick) error) error {
		return r.RunQuotes(ctx, symbol, rng, emit)
	})
}

// StreamTrades replays trade ticks through a bounded channel.
func (r *Replay) StreamTrades(ctx context.Context, symbol model.Symbol, rng catalog.TimeRange) *Stream[model.TradeTick] {
	return newStream(ctx, r, func(ctx context.Context, emit func(model.TradeTick) error) error {
		return r.RunTrades(ctx, symbol, rng, emit)
	})
}

// StreamBars replays bars through a bounded channel.
func (r *Replay) StreamBars(ctx context.Context, barType model.BarType, rng catalog.TimeRange) *Stream[model.Bar] {
	return newStream(ctx, r, func(ctx context.Context, emit func(model.Bar) error) error {
		return r.RunBars(ctx, barType, rng, emit)
	})
}

func newStream[T any](ctx context.Context, r *Replay, run func(context.Context, func(T) error) error) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan T, r.cfg.StreamBuffer)
	s := &Stream[T]{C: ch, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(s.done)
		defer close(ch)
		err := run(ctx, func(record T) error {
			select {
			case ch <- record:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() == nil {
			logs.Errorf("replay stream failed, err: %+v", err)
			s.err.Store(err)
		}
	}()
	return s
}

func runCursor[T any](ctx context.Context, r *Replay, dataset catalog.Dataset, cursor *catalog.Cursor[T], ts func(T) int64, handler func(T) error) error {
	defer cursor.Close()

	var prevTS int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		record, err := cursor.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if err := r.pace(ctx, ts(record), &prevTS); err != nil {
			return err
		}
		if err := handler(record); err != nil {
			return err
		}
		r.metrics.ObserveReplay(dataset, 1)
	}
}

func (r *Replay) pace(ctx context.Context, current int64, prevTS *int64) error {
	if r.cfg.Speed <= 0 || current <= 0 {
		return nil
	}
	if *prevTS > 0 {
		delta := current - *prevTS
		if delta > 0 {
			sleep := time.Duration(float64(delta) / r.cfg.Speed)
			if err := r.clock.Sleep(ctx, sleep); err != nil {
				return err
			}
		}
	}
	*prevTS = current
	return nil
}
