package enum

// PriceType selects which side of a quote a derived price is taken from.
type PriceType uint8

const (
	_price_type_beg PriceType = iota
	PriceBid
	PriceAsk
	PriceMid
	PriceLast
	_price_type_end
)

func (p PriceType) IsAvailable() bool {
	return p > _price_type_beg && p < _price_type_end
}

func (p PriceType) String() string {
	switch p {
	case PriceBid:
		return "BID"
	case PriceAsk:
		return "ASK"
	case PriceMid:
		return "MID"
	case PriceLast:
		return "LAST"
	default:
		return "UNKNOWN"
	}
}
