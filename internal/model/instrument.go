package model

import "fmt"

// Instrument describes a tradable pair and is the authority for decoding
// raw mantissas into fixed-precision prices and quantities. Immutable once
// registered.
type Instrument struct {
	Symbol         Symbol
	Base           Currency
	Quote          Currency
	PricePrecision uint8
	SizePrecision  uint8
	TickSize       Price
	Multiplier     Quantity
}

// NewInstrument builds and validates an instrument definition.
func NewInstrument(symbol Symbol, base, quote Currency, pricePrecision, sizePrecision uint8, tickSizeRaw, multiplierRaw int64) (Instrument, error) {
	if symbol.IsZero() {
		return Instrument{}, fmt.Errorf("instrument symbol is empty")
	}
	if base.IsZero() || quote.IsZero() {
		return Instrument{}, fmt.Errorf("instrument %s: base/quote currency is empty", symbol)
	}
	if pricePrecision > MaxPrecision || sizePrecision > MaxPrecision {
		return Instrument{}, fmt.Errorf("instrument %s: precision exceeds max %d", symbol, MaxPrecision)
	}
	if tickSizeRaw <= 0 {
		return Instrument{}, fmt.Errorf("instrument %s: tick size must be > 0", symbol)
	}
	if multiplierRaw <= 0 {
		return Instrument{}, fmt.Errorf("instrument %s: multiplier must be > 0", symbol)
	}
	return Instrument{
		Symbol:         symbol,
		Base:           base,
		Quote:          quote,
		PricePrecision: pricePrecision,
		SizePrecision:  sizePrecision,
		TickSize:       NewPrice(tickSizeRaw, pricePrecision),
		Multiplier:     NewQuantity(multiplierRaw, sizePrecision),
	}, nil
}

// MakePrice decodes a raw mantissa at the instrument's price precision.
func (i Instrument) MakePrice(raw int64) Price {
	return NewPrice(raw, i.PricePrecision)
}

// MakeQty decodes a raw mantissa at the instrument's size precision.
func (i Instrument) MakeQty(raw int64) Quantity {
	return NewQuantity(raw, i.SizePrecision)
}
