package model

import "main/internal/model/enum"

// Currency is an ISO-like currency definition. Precision is fixed at
// definition and never mutated.
type Currency struct {
	Code      string
	Precision uint8
	Kind      enum.CurrencyKind
}

// NewCurrency defines a currency.
func NewCurrency(code string, precision uint8, kind enum.CurrencyKind) Currency {
	return Currency{Code: code, Precision: precision, Kind: kind}
}

func (c Currency) IsZero() bool { return c.Code == "" }

func (c Currency) String() string { return c.Code }

// Common currency definitions.
var (
	USD = NewCurrency("USD", 2, enum.CurrencyFiat)
	EUR = NewCurrency("EUR", 2, enum.CurrencyFiat)
	GBP = NewCurrency("GBP", 2, enum.CurrencyFiat)
	JPY = NewCurrency("JPY", 0, enum.CurrencyFiat)
	AUD = NewCurrency("AUD", 2, enum.CurrencyFiat)
	CHF = NewCurrency("CHF", 2, enum.CurrencyFiat)
	CAD = NewCurrency("CAD", 2, enum.CurrencyFiat)

	BTC  = NewCurrency("BTC", 8, enum.CurrencyCrypto)
	ETH  = NewCurrency("ETH", 8, enum.CurrencyCrypto)
	SOL  = NewCurrency("SOL", 8, enum.CurrencyCrypto)
	USDT = NewCurrency("USDT", 6, enum.CurrencyCrypto)
)
