package model

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// MaxPrecision is the largest number of fractional digits a Price or
// Quantity may carry.
const MaxPrecision = 16

// Price is a fixed-precision decimal scalar: an int64 mantissa scaled by
// 10^-precision. It is never backed by binary floating point.
type Price struct {
	raw       int64
	precision uint8
}

// NewPrice builds a price from a raw mantissa and precision.
func NewPrice(raw int64, precision uint8) Price {
	return Price{raw: raw, precision: precision}
}

// PriceFromString parses a decimal string into a price at the given
// precision. The value must be exactly representable at that precision.
func PriceFromString(s string, precision uint8) (Price, error) {
	raw, err := parseScaled(s, precision)
	if err != nil {
		return Price{}, fmt.Errorf("parse price %q: %w", s, err)
	}
	return Price{raw: raw, precision: precision}, nil
}

// Raw returns the integer mantissa.
func (p Price) Raw() int64 { return p.raw }

// Precision returns the number of fractional digits.
func (p Price) Precision() uint8 { return p.precision }

// IsZero reports whether the mantissa is zero.
func (p Price) IsZero() bool { return p.raw == 0 }

// Decimal converts the price to an exact decimal value.
func (p Price) Decimal() decimal.Decimal {
	return decimal.New(p.raw, -int32(p.precision))
}

// Add returns p + other. Both prices must share the same precision.
func (p Price) Add(other Price) Price {
	return Price{raw: p.raw + other.raw, precision: p.precision}
}

// Less compares mantissas. Both prices must share the same precision.
func (p Price) Less(other Price) bool { return p.raw < other.raw }

// Greater compares mantissas. Both prices must share the same precision.
func (p Price) Greater(other Price) bool { return p.raw > other.raw }

func (p Price) String() string {
	return string(appendScaledInt(nil, p.raw, int(p.precision)))
}

// Quantity is a fixed-precision decimal scalar with the same representation
// as Price.
type Quantity struct {
	raw       int64
	precision uint8
}

// NewQuantity builds a quantity from a raw mantissa and precision.
func NewQuantity(raw int64, precision uint8) Quantity {
	return Quantity{raw: raw, precision: precision}
}

// QuantityFromString parses a decimal string into a quantity at the given
// precision.
func QuantityFromString(s string, precision uint8) (Quantity, error) {
	raw, err := parseScaled(s, precision)
	if err != nil {
		return Quantity{}, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return Quantity{raw: raw, precision: precision}, nil
}

// Raw returns the integer mantissa.
func (q Quantity) Raw() int64 { return q.raw }

// Precision returns the number of fractional digits.
func (q Quantity) Precision() uint8 { return q.precision }

// IsZero reports whether the mantissa is zero.
func (q Quantity) IsZero() bool { return q.raw == 0 }

// Decimal converts the quantity to an exact decimal value.
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.New(q.raw, -int32(q.precision))
}

// Add returns q + other. Both quantities must share the same precision.
func (q Quantity) Add(other Quantity) Quantity {
	return Quantity{raw: q.raw + other.raw, precision: q.precision}
}

func (q Quantity) String() string {
	return string(appendScaledInt(nil, q.raw, int(q.precision)))
}

func parseScaled(s string, precision uint8) (int64, error) {
	if precision > MaxPrecision {
		return 0, fmt.Errorf("precision %d exceeds max %d", precision, MaxPrecision)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	shifted := d.Shift(int32(precision))
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("not representable at precision %d", precision)
	}
	return shifted.IntPart(), nil
}

func appendScaledInt(buf []byte, value int64, scale int) []byte {
	if scale <= 0 {
		return strconv.AppendInt(buf, value, 10)
	}

	neg := value < 0
	u := uint64(value)
	if neg {
		u = uint64(^value) + 1
	}

	var tmp [32]byte
	digits := strconv.AppendUint(tmp[:0], u, 10)

	if neg {
		buf = append(buf, '-')
	}

	if len(digits) <= scale {
		buf = append(buf, '0', '.')
		for i := 0; i < scale-len(digits); i++ {
			buf = append(buf, '0')
		}
		buf = append(buf, digits...)
		return buf
	}

	idx := len(digits) - scale
	buf = append(buf, digits[:idx]...)
	buf = append(buf, '.')
	buf = append(buf, digits[idx:]...)
	return buf
}
