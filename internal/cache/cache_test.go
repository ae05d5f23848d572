package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func simInstrument(t *testing.T, code string, base, quote model.Currency) model.Instrument {
	t.Helper()
	instrument, err := model.NewInstrument(
		model.NewSymbol("SIM", code), base, quote, 5, 0, 1, 1,
	)
	require.NoError(t, err)
	return instrument
}

func newTestCache(t *testing.T, cfg Config) *DataCache {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestTradeTickEviction(t *testing.T) {
	c := newTestCache(t, Config{TickCapacity: 2})
	symbol := model.NewSymbol("SIM", "AUDUSD")

	var ticks []model.TradeTick
	for i := 1; i <= 3; i++ {
		tick := model.TradeTick{
			Symbol:    symbol,
			Price:     model.NewPrice(int64(80000+i), 5),
			Size:      model.NewQuantity(100, 0),
			Aggressor: enum.AggressorBuyer,
			TradeID:   "T" + string(rune('0'+i)),
			TsEvent:   int64(i),
		}
		ticks = append(ticks, tick)
		c.InsertTradeTick(tick)
	}

	require.Equal(t, 2, c.TradeTickCount(symbol))
	got := c.TradeTicks(symbol)
	require.Len(t, got, 2)
	assert.Equal(t, ticks[2], got[0])
	assert.Equal(t, ticks[1], got[1])
}

func TestQuoteTickIndexOutOfRange(t *testing.T) {
	c := newTestCache(t, Config{})
	symbol := model.NewSymbol("SIM", "EURUSD")
	for i := 0; i < 2; i++ {
		c.InsertQuoteTick(model.QuoteTick{
			Symbol:  symbol,
			Bid:     model.NewPrice(110000, 5),
			Ask:     model.NewPrice(110002, 5),
			TsEvent: int64(i),
		})
	}

	_, err := c.QuoteTick(symbol, 5)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = c.QuoteTick(symbol, 1)
	require.NoError(t, err)
}

func TestSingleLookupOnAbsentSeries(t *testing.T) {
	c := newTestCache(t, Config{})
	symbol := model.NewSymbol("SIM", "GBPUSD")

	_, err := c.QuoteTick(symbol, 0)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = c.TradeTick(symbol, 0)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = c.Bar(model.BarType{Symbol: symbol}, 0)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = c.Instrument(symbol)
	require.ErrorIs(t, err, ErrNotFound)

	// Series-level reads stay empty, not failed.
	assert.Nil(t, c.QuoteTicks(symbol))
	assert.Zero(t, c.QuoteTickCount(symbol))
	assert.False(t, c.HasQuoteTicks(symbol))
}

func TestInstrumentRegistrationOrder(t *testing.T) {
	c := newTestCache(t, Config{})
	first := simInstrument(t, "EURUSD", model.EUR, model.USD)
	second := simInstrument(t, "USDJPY", model.USD, model.JPY)
	require.NoError(t, c.AddInstrument(first))
	require.NoError(t, c.AddInstrument(second))

	require.Equal(t, []model.Symbol{first.Symbol, second.Symbol}, c.Symbols())
	require.Equal(t, []model.Instrument{first, second}, c.Instruments())

	got, err := c.Instrument(first.Symbol)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestInstrumentRedefinitionRejected(t *testing.T) {
	c := newTestCache(t, Config{})
	instrument := simInstrument(t, "EURUSD", model.EUR, model.USD)
	require.NoError(t, c.AddInstrument(instrument))
	// Same definition is idempotent.
	require.NoError(t, c.AddInstrument(instrument))

	changed := instrument
	changed.PricePrecision = 3
	changed.TickSize = model.NewPrice(1, 3)
	require.Error(t, c.AddInstrument(changed))
}

func TestBarSeries(t *testing.T) {
	c := newTestCache(t, Config{BarCapacity: 3})
	barType := model.BarType{
		Symbol:    model.NewSymbol("SIM", "EURUSD"),
		Spec:      model.BarSpec{Step: 1, Aggregation: enum.BarAggregationMinute},
		PriceType: enum.PriceBid,
	}
	for i := 1; i <= 4; i++ {
		c.InsertBar(model.Bar{
			Type:    barType,
			Open:    model.NewPrice(int64(100+i), 5),
			High:    model.NewPrice(int64(110+i), 5),
			Low:     model.NewPrice(int64(90+i), 5),
			Close:   model.NewPrice(int64(105+i), 5),
			Volume:  model.NewQuantity(int64(i), 0),
			TsEvent: int64(i),
		})
	}

	require.Equal(t, 3, c.BarCount(barType))
	require.True(t, c.HasBars(barType))

	latest, err := c.Bar(barType, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), latest.TsEvent)

	oldest, err := c.Bar(barType, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), oldest.TsEvent)
}
