package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/cache"
	"main/internal/catalog"
	"main/internal/model"
	"main/internal/obs"
)

type fakeClock struct {
	slept []time.Duration
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	return nil
}

func writeQuoteFixture(t *testing.T, dir string, symbol model.Symbol, n int) []model.QuoteTick {
	t.Helper()
	writer, err := catalog.NewWriter(catalog.Config{Dir: dir})
	require.NoError(t, err)
	var ticks []model.QuoteTick
	for i := 0; i < n; i++ {
		ticks = append(ticks, feedQuote(symbol, i))
	}
	require.NoError(t, writer.AppendQuotes(ticks))
	require.NoError(t, writer.Close())
	return ticks
}

func fullRange(ticks []model.QuoteTick) catalog.TimeRange {
	return catalog.TimeRange{From: ticks[0].TsEvent, To: ticks[len(ticks)-1].TsEvent}
}

func TestHydrateQuotesIntoCache(t *testing.T) {
	dir := t.TempDir()
	symbol := model.NewSymbol("SIM", "EURUSD")
	ticks := writeQuoteFixture(t, dir, symbol, 20)

	replay, err := NewReplay(ReplayConfig{Catalog: catalog.Config{Dir: dir}}, obs.NewMetrics())
	require.NoError(t, err)

	c, err := cache.New(cache.Config{})
	require.NoError(t, err)

	n, err := replay.HydrateQuotes(context.Background(), c, symbol, fullRange(ticks))
	require.NoError(t, err)
	require.Equal(t, 20, n)
	require.Equal(t, 20, c.QuoteTickCount(symbol))

	// Index 0 is the most recent record after hydration.
	latest, err := c.QuoteTick(symbol, 0)
	require.NoError(t, err)
	assert.Equal(t, ticks[len(ticks)-1], latest)
}

func TestReplayPacingUsesEventDeltas(t *testing.T) {
	dir := t.TempDir()
	symbol := model.NewSymbol("SIM", "EURUSD")
	ticks := writeQuoteFixture(t, dir, symbol, 4)

	replay, err := NewReplay(ReplayConfig{
		Catalog: catalog.Config{Dir: dir},
		Speed:   2,
	}, nil)
	require.NoError(t, err)

	clock := &fakeClock{}
	replay.WithClock(clock)

	count := 0
	err = replay.RunQuotes(context.Background(), symbol, fullRange(ticks), func(model.QuoteTick) error {
		count++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 4, count)

	// Ticks are one second apart; at speed 2 each gap sleeps 500ms.
	require.Len(t, clock.slept, 3)
	for _, d := range clock.slept {
		assert.Equal(t, 500*time.Millisecond, d)
	}
}

func TestStreamDeliversAndEnds(t *testing.T) {
	dir := t.TempDir()
	symbol := model.NewSymbol("SIM", "EURUSD")
	ticks := writeQuoteFixture(t, dir, symbol, 10)

	replay, err := NewReplay(ReplayConfig{Catalog: catalog.Config{Dir: dir}}, nil)
	require.NoError(t, err)

	stream := replay.StreamQuotes(context.Background(), symbol, fullRange(ticks))
	var got []model.QuoteTick
	for tick := range stream.C {
		got = append(got, tick)
	}
	require.NoError(t, stream.Err())
	require.Equal(t, ticks, got)
}

func TestStreamCancelReleasesResources(t *testing.T) {
	dir := t.TempDir()
	symbol := model.NewSymbol("SIM", "EURUSD")
	ticks := writeQuoteFixture(t, dir, symbol, 1000)

	replay, err := NewReplay(ReplayConfig{
		Catalog:      catalog.Config{Dir: dir},
		StreamBuffer: 1,
	}, nil)
	require.NoError(t, err)

	stream := replay.StreamQuotes(context.Background(), symbol, fullRange(ticks))

	// Consume a few whole records, then abandon the stream.
	for i := 0; i < 3; i++ {
		tick, ok := <-stream.C
		require.True(t, ok)
		require.Equal(t, ticks[i], tick)
	}
	stream.Cancel()

	// Cancellation is not a stream failure.
	require.NoError(t, stream.Err())
	// The channel closes after the producer stops at a record boundary.
	for range stream.C {
	}
}

func TestRunStopsOnHandlerError(t *testing.T) {
	dir := t.TempDir()
	symbol := model.NewSymbol("SIM", "EURUSD")
	ticks := writeQuoteFixture(t, dir, symbol, 10)

	replay, err := NewReplay(ReplayConfig{Catalog: catalog.Config{Dir: dir}}, nil)
	require.NoError(t, err)

	count := 0
	stop := assert.AnError
	err = replay.RunQuotes(context.Background(), symbol, fullRange(ticks), func(model.QuoteTick) error {
		count++
		if count == 3 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 3, count)
}
