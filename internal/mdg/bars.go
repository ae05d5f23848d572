package mdg

import (
	"fmt"
	"time"

	"main/internal/model"
	"main/internal/model/enum"
)

// BarBuilder folds trade ticks into time-window OHLCV bars for one bar
// type. A bar closes when a tick lands past the open window; the closed
// bar is returned and the tick opens the next window.
type BarBuilder struct {
	barType model.BarType
	window  int64

	open, high, low, last model.Price
	volume                model.Quantity
	tsOpen                int64
	active                bool
}

// NewBarBuilder creates a builder for a time-based bar type.
func NewBarBuilder(barType model.BarType) (*BarBuilder, error) {
	window, err := windowSize(barType.Spec)
	if err != nil {
		return nil, err
	}
	return &BarBuilder{barType: barType, window: window}, nil
}

func windowSize(spec model.BarSpec) (int64, error) {
	if spec.Step == 0 {
		return 0, fmt.Errorf("bar spec step must be > 0")
	}
	var unit time.Duration
	switch spec.Aggregation {
	case enum.BarAggregationSecond:
		unit = time.Second
	case enum.BarAggregationMinute:
		unit = time.Minute
	case enum.BarAggregationHour:
		unit = time.Hour
	case enum.BarAggregationDay:
		unit = 24 * time.Hour
	default:
		return 0, fmt.Errorf("bar aggregation %s is not time based", spec.Aggregation)
	}
	return int64(spec.Step) * unit.Nanoseconds(), nil
}

// ApplyTrade folds one trade into the open window. When the trade falls
// outside the window, the finished bar is returned with ok true and the
// trade starts the next one.
func (b *BarBuilder) ApplyTrade(tick model.TradeTick) (model.Bar, bool) {
	if tick.Symbol != b.barType.Symbol {
		return model.Bar{}, false
	}

	windowStart := tick.TsEvent - tick.TsEvent%b.window
	if !b.active {
		b.start(windowStart, tick)
		return model.Bar{}, false
	}
	if windowStart == b.tsOpen {
		if b.high.Less(tick.Price) {
			b.high = tick.Price
		}
		if tick.Price.Less(b.low) {
			b.low = tick.Price
		}
		b.last = tick.Price
		b.volume = b.volume.Add(tick.Size)
		return model.Bar{}, false
	}

	bar := b.snapshot()
	b.start(windowStart, tick)
	return bar, true
}

// Flush closes the open window, if any, without waiting for the next
// trade.
func (b *BarBuilder) Flush() (model.Bar, bool) {
	if !b.active {
		return model.Bar{}, false
	}
	bar := b.snapshot()
	b.active = false
	return bar, true
}

func (b *BarBuilder) start(windowStart int64, tick model.TradeTick) {
	b.tsOpen = windowStart
	b.open = tick.Price
	b.high = tick.Price
	b.low = tick.Price
	b.last = tick.Price
	b.volume = tick.Size
	b.active = true
}

func (b *BarBuilder) snapshot() model.Bar {
	return model.Bar{
		Type:    b.barType,
		Open:    b.open,
		High:    b.high,
		Low:     b.low,
		Close:   b.last,
		Volume:  b.volume,
		TsOpen:  b.tsOpen,
		TsEvent: b.tsOpen + b.window,
	}
}
