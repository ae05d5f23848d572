package model

import "main/internal/model/enum"

// QuoteTick is the best bid/ask price and size at a point in time.
// Timestamps are nanoseconds since the Unix epoch.
type QuoteTick struct {
	Symbol  Symbol
	Bid     Price
	Ask     Price
	BidSize Quantity
	AskSize Quantity
	TsEvent int64
}

// ExtractPrice resolves the quote to a single price per the given price
// type. Mid is computed in integer arithmetic at one extra digit of
// precision so the half tick between bid and ask is representable.
func (t QuoteTick) ExtractPrice(priceType enum.PriceType) Price {
	switch priceType {
	case enum.PriceBid:
		return t.Bid
	case enum.PriceAsk:
		return t.Ask
	default:
		raw := (t.Bid.Raw() + t.Ask.Raw()) * 5
		return NewPrice(raw, t.Bid.Precision()+1)
	}
}

// TradeTick is a single executed trade.
type TradeTick struct {
	Symbol    Symbol
	Price     Price
	Size      Quantity
	Aggressor enum.AggressorSide
	TradeID   string
	TsEvent   int64
}
