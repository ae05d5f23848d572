package model

import (
	"testing"

	"main/internal/model/enum"
)

func testBarType() BarType {
	return BarType{
		Symbol:    NewSymbol("SIM", "EURUSD"),
		Spec:      BarSpec{Step: 1, Aggregation: enum.BarAggregationMinute},
		PriceType: enum.PriceBid,
	}
}

func TestBarValidate(t *testing.T) {
	bt := testBarType()
	bar := Bar{
		Type:   bt,
		Open:   NewPrice(110050, 5),
		High:   NewPrice(110080, 5),
		Low:    NewPrice(110020, 5),
		Close:  NewPrice(110060, 5),
		Volume: NewQuantity(1000, 0),
	}
	if err := bar.Validate(); err != nil {
		t.Fatalf("valid bar rejected: %v", err)
	}

	bar.Low = NewPrice(110070, 5)
	if err := bar.Validate(); err == nil {
		t.Fatal("expected OHLC violation for open < low")
	}
}

func TestQuoteTickExtractPrice(t *testing.T) {
	tick := QuoteTick{
		Symbol:  NewSymbol("SIM", "EURUSD"),
		Bid:     NewPrice(110000, 5),
		Ask:     NewPrice(110002, 5),
		BidSize: NewQuantity(1000000, 0),
		AskSize: NewQuantity(1000000, 0),
	}
	if got := tick.ExtractPrice(enum.PriceBid); got != tick.Bid {
		t.Fatalf("bid mismatch: %s", got)
	}
	if got := tick.ExtractPrice(enum.PriceAsk); got != tick.Ask {
		t.Fatalf("ask mismatch: %s", got)
	}
	mid := tick.ExtractPrice(enum.PriceMid)
	if mid.Raw() != 1100010 || mid.Precision() != 6 {
		t.Fatalf("mid mismatch: raw=%d precision=%d", mid.Raw(), mid.Precision())
	}
	if mid.String() != "1.100010" {
		t.Fatalf("mid string mismatch: %q", mid.String())
	}
}

func TestBarTypeString(t *testing.T) {
	if got := testBarType().String(); got != "EURUSD.SIM-1-MINUTE-BID" {
		t.Fatalf("bar type string mismatch: %q", got)
	}
}
