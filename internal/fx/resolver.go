// Package fx derives cross-currency conversion rates from the latest
// quotes held in the data cache.
//
// Resolution order is fixed: a directly quoted pair wins, then an inverted
// pair, then a single triangulation through a common currency. When several
// triangulation paths exist the first one found by instrument registration
// order is used, so resolution is reproducible across runs.
package fx

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"main/internal/cache"
	"main/internal/model"
	"main/internal/model/enum"
)

// ErrNoRatePath is returned when no quoted path exists between two
// currencies, or every candidate quote series is empty.
var ErrNoRatePath = errors.New("no cross-rate path")

var one = decimal.New(1, 0)

// Resolver computes conversion rates over a data cache it does not own.
type Resolver struct {
	cache *cache.DataCache
}

// NewResolver creates a resolver reading from the given cache.
func NewResolver(c *cache.DataCache) *Resolver {
	return &Resolver{cache: c}
}

// Rate returns the conversion rate from one currency to another, derived
// from the latest cached quote ticks at the given price type. It never
// returns a silently wrong or zero rate: an unresolvable pair fails with
// ErrNoRatePath.
func (r *Resolver) Rate(from, to model.Currency, priceType enum.PriceType) (decimal.Decimal, error) {
	if from.Code == to.Code {
		return one, nil
	}

	instruments := r.cache.Instruments()

	if rate, ok := r.directRate(instruments, from, to, priceType); ok {
		return rate, nil
	}
	if rate, ok := r.directRate(instruments, to, from, priceType); ok {
		return one.Div(rate), nil
	}
	if rate, ok := r.triangulate(instruments, from, to, priceType); ok {
		return rate, nil
	}

	return decimal.Decimal{}, fmt.Errorf("xrate %s->%s: %w", from, to, ErrNoRatePath)
}

// directRate finds the first registered instrument quoting base->quote with
// a non-empty quote series and a usable, non-zero price.
func (r *Resolver) directRate(instruments []model.Instrument, base, quote model.Currency, priceType enum.PriceType) (decimal.Decimal, bool) {
	for _, instrument := range instruments {
		if instrument.Base.Code != base.Code || instrument.Quote.Code != quote.Code {
			continue
		}
		tick, err := r.cache.QuoteTick(instrument.Symbol, 0)
		if err != nil {
			continue
		}
		rate := tick.ExtractPrice(priceType).Decimal()
		if rate.IsZero() {
			// A zero quote is unusable: it would yield a zero rate or a
			// division by zero on the inverted path. Skip the candidate.
			continue
		}
		return rate, true
	}
	return decimal.Decimal{}, false
}

// legRate resolves one triangulation leg: direct first, inverted second.
func (r *Resolver) legRate(instruments []model.Instrument, from, to model.Currency, priceType enum.PriceType) (decimal.Decimal, bool) {
	if rate, ok := r.directRate(instruments, from, to, priceType); ok {
		return rate, true
	}
	if rate, ok := r.directRate(instruments, to, from, priceType); ok {
		return one.Div(rate), true
	}
	return decimal.Decimal{}, false
}

// triangulate searches for a common currency bridging from and to. The
// first instrument in registration order involving from fixes the bridge
// candidate for each step.
func (r *Resolver) triangulate(instruments []model.Instrument, from, to model.Currency, priceType enum.PriceType) (decimal.Decimal, bool) {
	for _, instrument := range instruments {
		var bridge model.Currency
		switch from.Code {
		case instrument.Base.Code:
			bridge = instrument.Quote
		case instrument.Quote.Code:
			bridge = instrument.Base
		default:
			continue
		}
		if bridge.Code == to.Code || bridge.Code == from.Code {
			continue
		}
		first, ok := r.legRate(instruments, from, bridge, priceType)
		if !ok {
			continue
		}
		second, ok := r.legRate(instruments, bridge, to, priceType)
		if !ok {
			continue
		}
		return first.Mul(second), true
	}
	return decimal.Decimal{}, false
}
