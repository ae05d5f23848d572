// Package bridge reconciles the synchronous single-threaded cache core
// with the asynchronous catalog: a non-blocking, backpressured live write
// feed and a blocking (or cancellable streaming) replay read path.
package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/catalog"
	"main/internal/model"
	"main/internal/obs"
)

var (
	ErrQueueFull      = errors.New("feed queue full")
	ErrClosed         = errors.New("feed closed")
	ErrNotStarted     = errors.New("feed not started")
	ErrAlreadyStarted = errors.New("feed already started")
)

type pendingBatch struct {
	dataset catalog.Dataset
	quotes  []model.QuoteTick
	trades  []model.TradeTick
	bars    []model.Bar
}

func (b pendingBatch) len() int {
	switch b.dataset {
	case catalog.DatasetQuotes:
		return len(b.quotes)
	case catalog.DatasetTrades:
		return len(b.trades)
	default:
		return len(b.bars)
	}
}

// Writer is the subset of the catalog writer the feed drives.
// *catalog.Writer satisfies it.
type Writer interface {
	AppendQuotes([]model.QuoteTick) error
	AppendTrades([]model.TradeTick) error
	AppendBars([]model.Bar) error
	Flush() error
	Sync() error
	Close() error
}

// Feed submits catalog writes without blocking the ingestion path. Pending
// batches queue on a bounded channel drained by one background goroutine;
// a full queue rejects new batches instead of growing memory unboundedly.
// Transient write failures are retried with bounded backoff; exhausting the
// retries latches a fatal error and halts the feed so data loss stays
// visible. Cancelling the start context halts the feed the same way, with
// the context error latched.
type Feed struct {
	cfg     FeedConfig
	writer  Writer
	metrics *obs.Metrics
	ch      chan pendingBatch
	wg      sync.WaitGroup
	err     atomic.Value

	started uint32
	closed  uint32
}

// NewFeed creates a feed draining into the given catalog writer.
func NewFeed(cfg FeedConfig, writer Writer, metrics *obs.Metrics) (*Feed, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Feed{
		cfg:     cfg,
		writer:  writer,
		metrics: metrics,
		ch:      make(chan pendingBatch, cfg.QueueSize),
	}, nil
}

// Start runs the drain loop in a new goroutine.
func (f *Feed) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&f.started, 0, 1) {
		return ErrAlreadyStarted
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.run(ctx)
	}()
	return nil
}

// Close stops the feed, drains pending batches and flushes the writer.
func (f *Feed) Close() error {
	if atomic.CompareAndSwapUint32(&f.closed, 0, 1) {
		close(f.ch)
	}
	f.wg.Wait()
	return f.Err()
}

// Err returns the first error latched by the drain loop, if any.
func (f *Feed) Err() error {
	if v := f.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// TryAppendQuotes enqueues a quote batch without blocking. The batch is
// copied so the caller may reuse its slice.
func (f *Feed) TryAppendQuotes(ticks []model.QuoteTick) error {
	if len(ticks) == 0 {
		return nil
	}
	cp := make([]model.QuoteTick, len(ticks))
	copy(cp, ticks)
	return f.tryAppend(pendingBatch{dataset: catalog.DatasetQuotes, quotes: cp})
}

// TryAppendTrades enqueues a trade batch without blocking.
func (f *Feed) TryAppendTrades(ticks []model.TradeTick) error {
	if len(ticks) == 0 {
		return nil
	}
	cp := make([]model.TradeTick, len(ticks))
	copy(cp, ticks)
	return f.tryAppend(pendingBatch{dataset: catalog.DatasetTrades, trades: cp})
}

// TryAppendBars enqueues a bar batch without blocking.
func (f *Feed) TryAppendBars(bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	cp := make([]model.Bar, len(bars))
	copy(cp, bars)
	return f.tryAppend(pendingBatch{dataset: catalog.DatasetBars, bars: cp})
}

func (f *Feed) tryAppend(batch pendingBatch) error {
	if atomic.LoadUint32(&f.closed) != 0 {
		f.metrics.IncQueueClosed()
		return ErrClosed
	}
	if atomic.LoadUint32(&f.started) == 0 {
		return ErrNotStarted
	}
	if err := f.Err(); err != nil {
		return err
	}

	select {
	case f.ch <- batch:
		return nil
	default:
		f.metrics.IncQueueDrop()
		return ErrQueueFull
	}
}

func (f *Feed) run(ctx context.Context) {
	var (
		flushC      <-chan time.Time
		syncC       <-chan time.Time
		flushTicker *time.Ticker
		syncTicker  *time.Ticker
	)

	if f.cfg.FlushInterval > 0 {
		flushTicker = time.NewTicker(f.cfg.FlushInterval)
		flushC = flushTicker.C
	}
	if f.cfg.SyncInterval > 0 {
		syncTicker = time.NewTicker(f.cfg.SyncInterval)
		syncC = syncTicker.C
	}

	defer func() {
		if flushTicker != nil {
			flushTicker.Stop()
		}
		if syncTicker != nil {
			syncTicker.Stop()
		}
		if err := f.writer.Close(); err != nil && f.Err() == nil {
			f.setErr(err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// Latch before draining so concurrent appends are rejected
			// instead of landing in a channel nothing reads anymore.
			f.setErr(ctx.Err())
			f.drainNonBlocking()
			return
		case batch, ok := <-f.ch:
			if !ok {
				return
			}
			if err := f.writeBatch(batch); err != nil {
				f.setErr(err)
				return
			}
		case <-flushC:
			if err := f.writer.Flush(); err != nil {
				f.setErr(err)
				return
			}
		case <-syncC:
			if err := f.writer.Sync(); err != nil {
				f.setErr(err)
				return
			}
		}
	}
}

func (f *Feed) drainNonBlocking() {
	for {
		select {
		case batch, ok := <-f.ch:
			if !ok {
				return
			}
			if err := f.writeBatch(batch); err != nil {
				f.setErr(err)
				return
			}
		default:
			return
		}
	}
}

// writeBatch persists one batch, retrying transient failures with bounded
// exponential backoff.
func (f *Feed) writeBatch(batch pendingBatch) error {
	backoff := f.cfg.RetryBackoff
	start := time.Now()

	var err error
	for attempt := 0; ; attempt++ {
		err = f.appendOnce(batch)
		if err == nil {
			f.metrics.ObserveWrite(batch.dataset, batch.len(), time.Since(start))
			return nil
		}
		// Schema disagreements never heal; retrying would hide them.
		if errors.Is(err, catalog.ErrSchemaMismatch) {
			return err
		}
		if attempt >= f.cfg.MaxRetries {
			break
		}
		f.metrics.IncWriteRetry()
		logs.Warnf("catalog write failed, retrying in %s, err: %+v", backoff, err)
		time.Sleep(backoff)
		backoff *= 2
	}

	logs.Errorf("catalog write failed after %d retries, halting feed, err: %+v", f.cfg.MaxRetries, err)
	return err
}

func (f *Feed) appendOnce(batch pendingBatch) error {
	switch batch.dataset {
	case catalog.DatasetQuotes:
		return f.writer.AppendQuotes(batch.quotes)
	case catalog.DatasetTrades:
		return f.writer.AppendTrades(batch.trades)
	default:
		return f.writer.AppendBars(batch.bars)
	}
}

func (f *Feed) setErr(err error) {
	if err == nil {
		return
	}
	if f.err.Load() != nil {
		return
	}
	f.err.Store(err)
}
