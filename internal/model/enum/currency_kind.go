package enum

// CurrencyKind describes the asset class of a currency.
type CurrencyKind uint8

const (
	_currency_kind_beg CurrencyKind = iota
	CurrencyFiat
	CurrencyCrypto
	_currency_kind_end
)

func (k CurrencyKind) IsAvailable() bool {
	return k > _currency_kind_beg && k < _currency_kind_end
}

func (k CurrencyKind) String() string {
	switch k {
	case CurrencyFiat:
		return "FIAT"
	case CurrencyCrypto:
		return "CRYPTO"
	default:
		return "UNKNOWN"
	}
}
