package cache

import (
	"errors"
	"fmt"

	"main/internal/model"
)

var (
	ErrNotFound        = errors.New("cache key not found")
	ErrIndexOutOfRange = errors.New("cache index out of range")
)

// DataCache is a bounded, indexed store of per-symbol tick series, per
// bar-type bar series and a registry of instruments and currencies.
//
// It is a single-owner component: all calls are assumed serialized by the
// owning trading core and there is no internal locking.
type DataCache struct {
	cfg Config

	quotes map[model.Symbol]*series[model.QuoteTick]
	trades map[model.Symbol]*series[model.TradeTick]
	bars   map[model.BarType]*series[model.Bar]

	symbols     []model.Symbol
	instruments map[model.Symbol]model.Instrument
	currencies  map[string]model.Currency
}

// New creates an empty cache.
func New(cfg Config) (*DataCache, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &DataCache{
		cfg:         cfg,
		quotes:      make(map[model.Symbol]*series[model.QuoteTick]),
		trades:      make(map[model.Symbol]*series[model.TradeTick]),
		bars:        make(map[model.BarType]*series[model.Bar]),
		instruments: make(map[model.Symbol]model.Instrument),
		currencies:  make(map[string]model.Currency),
	}, nil
}

// AddCurrency registers a currency definition. Re-registering the same code
// with a different precision is rejected: cached values already decoded at
// the old precision would be invalidated.
func (c *DataCache) AddCurrency(currency model.Currency) error {
	if currency.IsZero() {
		return fmt.Errorf("currency code is empty")
	}
	if existing, ok := c.currencies[currency.Code]; ok {
		if existing != currency {
			return fmt.Errorf("currency %s already registered with different definition", currency.Code)
		}
		return nil
	}
	c.currencies[currency.Code] = currency
	return nil
}

// Currency returns a registered currency by code.
func (c *DataCache) Currency(code string) (model.Currency, error) {
	currency, ok := c.currencies[code]
	if !ok {
		return model.Currency{}, fmt.Errorf("currency %s: %w", code, ErrNotFound)
	}
	return currency, nil
}

// AddInstrument registers an instrument and its currencies. The precision
// fields are immutable for the process lifetime once registered.
func (c *DataCache) AddInstrument(instrument model.Instrument) error {
	if existing, ok := c.instruments[instrument.Symbol]; ok {
		if existing != instrument {
			return fmt.Errorf("instrument %s already registered with different definition", instrument.Symbol)
		}
		return nil
	}
	if err := c.AddCurrency(instrument.Base); err != nil {
		return err
	}
	if err := c.AddCurrency(instrument.Quote); err != nil {
		return err
	}
	c.instruments[instrument.Symbol] = instrument
	c.symbols = append(c.symbols, instrument.Symbol)
	return nil
}

// Instrument returns the registered instrument for a symbol.
func (c *DataCache) Instrument(symbol model.Symbol) (model.Instrument, error) {
	instrument, ok := c.instruments[symbol]
	if !ok {
		return model.Instrument{}, fmt.Errorf("instrument %s: %w", symbol, ErrNotFound)
	}
	return instrument, nil
}

// Symbols returns all registered symbols in registration order.
func (c *DataCache) Symbols() []model.Symbol {
	out := make([]model.Symbol, len(c.symbols))
	copy(out, c.symbols)
	return out
}

// Instruments returns all registered instruments in registration order.
func (c *DataCache) Instruments() []model.Instrument {
	out := make([]model.Instrument, 0, len(c.symbols))
	for _, symbol := range c.symbols {
		out = append(out, c.instruments[symbol])
	}
	return out
}

// InsertQuoteTick appends a quote tick at index 0 of its symbol series,
// auto-creating the series and evicting the oldest record at capacity.
func (c *DataCache) InsertQuoteTick(tick model.QuoteTick) {
	s, ok := c.quotes[tick.Symbol]
	if !ok {
		s = newSeries[model.QuoteTick](c.cfg.TickCapacity)
		c.quotes[tick.Symbol] = s
	}
	s.push(tick)
}

// InsertTradeTick appends a trade tick at index 0 of its symbol series.
func (c *DataCache) InsertTradeTick(tick model.TradeTick) {
	s, ok := c.trades[tick.Symbol]
	if !ok {
		s = newSeries[model.TradeTick](c.cfg.TickCapacity)
		c.trades[tick.Symbol] = s
	}
	s.push(tick)
}

// InsertBar appends a bar at index 0 of its bar-type series.
func (c *DataCache) InsertBar(bar model.Bar) {
	s, ok := c.bars[bar.Type]
	if !ok {
		s = newSeries[model.Bar](c.cfg.BarCapacity)
		c.bars[bar.Type] = s
	}
	s.push(bar)
}

// QuoteTick returns the quote tick at index (0 = latest).
func (c *DataCache) QuoteTick(symbol model.Symbol, index int) (model.QuoteTick, error) {
	s, ok := c.quotes[symbol]
	if !ok || s.len() == 0 {
		return model.QuoteTick{}, fmt.Errorf("quote ticks %s: %w", symbol, ErrNotFound)
	}
	tick, ok := s.at(index)
	if !ok {
		return model.QuoteTick{}, fmt.Errorf("quote ticks %s index %d len %d: %w", symbol, index, s.len(), ErrIndexOutOfRange)
	}
	return tick, nil
}

// TradeTick returns the trade tick at index (0 = latest).
func (c *DataCache) TradeTick(symbol model.Symbol, index int) (model.TradeTick, error) {
	s, ok := c.trades[symbol]
	if !ok || s.len() == 0 {
		return model.TradeTick{}, fmt.Errorf("trade ticks %s: %w", symbol, ErrNotFound)
	}
	tick, ok := s.at(index)
	if !ok {
		return model.TradeTick{}, fmt.Errorf("trade ticks %s index %d len %d: %w", symbol, index, s.len(), ErrIndexOutOfRange)
	}
	return tick, nil
}

// Bar returns the bar at index (0 = latest).
func (c *DataCache) Bar(barType model.BarType, index int) (model.Bar, error) {
	s, ok := c.bars[barType]
	if !ok || s.len() == 0 {
		return model.Bar{}, fmt.Errorf("bars %s: %w", barType, ErrNotFound)
	}
	bar, ok := s.at(index)
	if !ok {
		return model.Bar{}, fmt.Errorf("bars %s index %d len %d: %w", barType, index, s.len(), ErrIndexOutOfRange)
	}
	return bar, nil
}

// QuoteTicks returns the full quote series ordered newest first, nil if the
// series is absent.
func (c *DataCache) QuoteTicks(symbol model.Symbol) []model.QuoteTick {
	s, ok := c.quotes[symbol]
	if !ok {
		return nil
	}
	return s.items()
}

// TradeTicks returns the full trade series ordered newest first.
func (c *DataCache) TradeTicks(symbol model.Symbol) []model.TradeTick {
	s, ok := c.trades[symbol]
	if !ok {
		return nil
	}
	return s.items()
}

// Bars returns the full bar series ordered newest first.
func (c *DataCache) Bars(barType model.BarType) []model.Bar {
	s, ok := c.bars[barType]
	if !ok {
		return nil
	}
	return s.items()
}

// QuoteTickCount returns the current quote series length, 0 if absent.
func (c *DataCache) QuoteTickCount(symbol model.Symbol) int {
	if s, ok := c.quotes[symbol]; ok {
		return s.len()
	}
	return 0
}

// TradeTickCount returns the current trade series length, 0 if absent.
func (c *DataCache) TradeTickCount(symbol model.Symbol) int {
	if s, ok := c.trades[symbol]; ok {
		return s.len()
	}
	return 0
}

// BarCount returns the current bar series length, 0 if absent.
func (c *DataCache) BarCount(barType model.BarType) int {
	if s, ok := c.bars[barType]; ok {
		return s.len()
	}
	return 0
}

// HasQuoteTicks reports whether any quote ticks are cached for the symbol.
func (c *DataCache) HasQuoteTicks(symbol model.Symbol) bool {
	return c.QuoteTickCount(symbol) > 0
}

// HasTradeTicks reports whether any trade ticks are cached for the symbol.
func (c *DataCache) HasTradeTicks(symbol model.Symbol) bool {
	return c.TradeTickCount(symbol) > 0
}

// HasBars reports whether any bars are cached for the bar type.
func (c *DataCache) HasBars(barType model.BarType) bool {
	return c.BarCount(barType) > 0
}
