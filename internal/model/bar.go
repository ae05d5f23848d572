package model

import (
	"fmt"
	"strconv"

	"main/internal/model/enum"
)

// BarSpec defines how ticks aggregate into bars: a step count over an
// aggregation unit.
type BarSpec struct {
	Step        uint32
	Aggregation enum.BarAggregation
}

func (s BarSpec) String() string {
	return strconv.FormatUint(uint64(s.Step), 10) + "-" + s.Aggregation.String()
}

// BarType identifies one bar series: a symbol, an aggregation spec and the
// price type the bars are built from. Comparable, used as a map key.
type BarType struct {
	Symbol    Symbol
	Spec      BarSpec
	PriceType enum.PriceType
}

func (b BarType) String() string {
	return b.Symbol.String() + "-" + b.Spec.String() + "-" + b.PriceType.String()
}

// Bar is an OHLCV aggregation over one bar-type step.
type Bar struct {
	Type    BarType
	Open    Price
	High    Price
	Low     Price
	Close   Price
	Volume  Quantity
	TsOpen  int64
	TsEvent int64
}

// Validate checks the OHLC invariant: low <= {open, close} <= high.
func (b Bar) Validate() error {
	if b.High.Less(b.Low) {
		return fmt.Errorf("bar %s: high %s < low %s", b.Type, b.High, b.Low)
	}
	if b.Open.Less(b.Low) || b.Open.Greater(b.High) {
		return fmt.Errorf("bar %s: open %s outside [%s, %s]", b.Type, b.Open, b.Low, b.High)
	}
	if b.Close.Less(b.Low) || b.Close.Greater(b.High) {
		return fmt.Errorf("bar %s: close %s outside [%s, %s]", b.Type, b.Close, b.Low, b.High)
	}
	return nil
}
