package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/catalog"
	"main/internal/model"
	"main/internal/obs"
)

var feedTestDay = time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

func feedQuote(symbol model.Symbol, i int) model.QuoteTick {
	return model.QuoteTick{
		Symbol:  symbol,
		Bid:     model.NewPrice(int64(110000+i), 5),
		Ask:     model.NewPrice(int64(110002+i), 5),
		BidSize: model.NewQuantity(1000, 0),
		AskSize: model.NewQuantity(1000, 0),
		TsEvent: feedTestDay.Add(time.Duration(i) * time.Second).UnixNano(),
	}
}

// stubWriter lets tests stall or fail the drain loop deterministically.
type stubWriter struct {
	mu       sync.Mutex
	gate     chan struct{}
	failures int
	appends  int
	closed   bool
}

func (w *stubWriter) append() error {
	if w.gate != nil {
		<-w.gate
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.appends++
	if w.failures > 0 {
		w.failures--
		return errors.New("disk unavailable")
	}
	return nil
}

func (w *stubWriter) AppendQuotes([]model.QuoteTick) error { return w.append() }
func (w *stubWriter) AppendTrades([]model.TradeTick) error { return w.append() }
func (w *stubWriter) AppendBars([]model.Bar) error         { return w.append() }
func (w *stubWriter) Flush() error                         { return nil }
func (w *stubWriter) Sync() error                          { return nil }
func (w *stubWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestFeedWritesThroughToCatalog(t *testing.T) {
	dir := t.TempDir()
	symbol := model.NewSymbol("SIM", "EURUSD")

	writer, err := catalog.NewWriter(catalog.Config{Dir: dir})
	require.NoError(t, err)
	metrics := obs.NewMetrics()
	feed, err := NewFeed(FeedConfig{}, writer, metrics)
	require.NoError(t, err)
	require.NoError(t, feed.Start(context.Background()))

	var written []model.QuoteTick
	for i := 0; i < 10; i++ {
		written = append(written, feedQuote(symbol, i))
	}
	require.NoError(t, feed.TryAppendQuotes(written[:5]))
	require.NoError(t, feed.TryAppendQuotes(written[5:]))
	require.NoError(t, feed.Close())

	replay, err := NewReplay(ReplayConfig{Catalog: catalog.Config{Dir: dir}}, metrics)
	require.NoError(t, err)

	var got []model.QuoteTick
	err = replay.RunQuotes(context.Background(), symbol, catalog.TimeRange{
		From: written[0].TsEvent,
		To:   written[len(written)-1].TsEvent,
	}, func(tick model.QuoteTick) error {
		got = append(got, tick)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, written, got)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.BatchCounts[catalog.DatasetQuotes])
	assert.Equal(t, uint64(10), snapshot.RecordCounts[catalog.DatasetQuotes])
	assert.Equal(t, uint64(10), snapshot.ReplayCounts[catalog.DatasetQuotes])
}

func TestFeedBackpressureWhenQueueFull(t *testing.T) {
	symbol := model.NewSymbol("SIM", "EURUSD")
	writer := &stubWriter{gate: make(chan struct{})}
	metrics := obs.NewMetrics()

	feed, err := NewFeed(FeedConfig{QueueSize: 1}, writer, metrics)
	require.NoError(t, err)
	require.NoError(t, feed.Start(context.Background()))

	// First batch occupies the drain goroutine (blocked on the gate),
	// second fills the queue; the third must be rejected, not buffered.
	require.NoError(t, feed.TryAppendQuotes([]model.QuoteTick{feedQuote(symbol, 0)}))
	require.Eventually(t, func() bool {
		return feed.TryAppendQuotes([]model.QuoteTick{feedQuote(symbol, 1)}) == nil
	}, time.Second, time.Millisecond)

	err = feed.TryAppendQuotes([]model.QuoteTick{feedQuote(symbol, 2)})
	require.ErrorIs(t, err, ErrQueueFull)
	assert.NotZero(t, metrics.Snapshot().QueueDrops)

	close(writer.gate)
	require.NoError(t, feed.Close())
}

func TestFeedLifecycleErrors(t *testing.T) {
	writer := &stubWriter{}
	feed, err := NewFeed(FeedConfig{}, writer, nil)
	require.NoError(t, err)

	err = feed.TryAppendQuotes([]model.QuoteTick{feedQuote(model.NewSymbol("SIM", "EURUSD"), 0)})
	require.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, feed.Start(context.Background()))
	require.ErrorIs(t, feed.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, feed.Close())

	err = feed.TryAppendQuotes([]model.QuoteTick{feedQuote(model.NewSymbol("SIM", "EURUSD"), 0)})
	require.ErrorIs(t, err, ErrClosed)
	assert.True(t, writer.closed)
}

func TestFeedContextCancelIsVisible(t *testing.T) {
	writer := &stubWriter{}
	feed, err := NewFeed(FeedConfig{}, writer, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, feed.Start(ctx))

	cancel()
	require.Eventually(t, func() bool { return feed.Err() != nil }, time.Second, time.Millisecond)

	// A batch submitted after the drain goroutine is gone must be
	// rejected, not accepted and dropped.
	err = feed.TryAppendQuotes([]model.QuoteTick{feedQuote(model.NewSymbol("SIM", "EURUSD"), 0)})
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, feed.Close(), context.Canceled)
	assert.Zero(t, writer.appends)
}

func TestFeedRetriesThenHalts(t *testing.T) {
	writer := &stubWriter{failures: 10}
	metrics := obs.NewMetrics()
	feed, err := NewFeed(FeedConfig{MaxRetries: 2, RetryBackoff: time.Millisecond}, writer, metrics)
	require.NoError(t, err)
	require.NoError(t, feed.Start(context.Background()))

	require.NoError(t, feed.TryAppendQuotes([]model.QuoteTick{feedQuote(model.NewSymbol("SIM", "EURUSD"), 0)}))

	// Exhausted retries latch a fatal, visible error.
	require.Eventually(t, func() bool { return feed.Err() != nil }, time.Second, time.Millisecond)
	require.Error(t, feed.Close())
	assert.Equal(t, uint64(2), metrics.Snapshot().WriteRetries)
	assert.Equal(t, 3, writer.appends)
}
