package mdg

import (
	"fmt"
	"math/rand"
	"time"

	"main/internal/model"
	"main/internal/model/enum"
)

// Generator creates synthetic quote and trade ticks for a set of
// instruments, round-robin across them. Mid prices follow a seeded
// random walk in tick-size steps, so a fixed seed reproduces the
// exact same stream.
type Generator struct {
	instruments []model.Instrument
	mids        []int64
	spreadTicks int64
	baseSize    int64
	index       int
	seq         uint64
	rng         *rand.Rand
}

// NewGenerator creates a generator over the given instruments. The base
// price is interpreted at each instrument's price precision.
func NewGenerator(instruments []model.Instrument, basePrice, baseSize, spreadTicks, seed int64) (*Generator, error) {
	if len(instruments) == 0 {
		return nil, fmt.Errorf("generator has no instruments")
	}
	if basePrice <= 0 {
		return nil, fmt.Errorf("base price must be > 0, got %d", basePrice)
	}
	if baseSize <= 0 {
		baseSize = 1
	}
	if spreadTicks <= 0 {
		spreadTicks = 1
	}
	mids := make([]int64, len(instruments))
	for i := range mids {
		mids[i] = basePrice
	}
	return &Generator{
		instruments: instruments,
		mids:        mids,
		spreadTicks: spreadTicks,
		baseSize:    baseSize,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// NextQuote creates the next quote tick in sequence.
func (g *Generator) NextQuote(now time.Time) model.QuoteTick {
	inst, mid := g.step()
	half := g.spreadTicks * inst.TickSize.Raw()
	return model.QuoteTick{
		Symbol:  inst.Symbol,
		Bid:     model.NewPrice(mid-half, inst.PricePrecision),
		Ask:     model.NewPrice(mid+half, inst.PricePrecision),
		BidSize: model.NewQuantity(g.baseSize, inst.SizePrecision),
		AskSize: model.NewQuantity(g.baseSize, inst.SizePrecision),
		TsEvent: now.UnixNano(),
	}
}

// NextTrade creates the next trade tick in sequence.
func (g *Generator) NextTrade(now time.Time) model.TradeTick {
	inst, mid := g.step()
	side := enum.AggressorBuyer
	if g.rng.Intn(2) == 0 {
		side = enum.AggressorSeller
	}
	g.seq++
	return model.TradeTick{
		Symbol:    inst.Symbol,
		Price:     model.NewPrice(mid, inst.PricePrecision),
		Size:      model.NewQuantity(g.baseSize, inst.SizePrecision),
		Aggressor: side,
		TradeID:   fmt.Sprintf("%s-%d", inst.Symbol.Code, g.seq),
		TsEvent:   now.UnixNano(),
	}
}

// step advances the round-robin cursor and walks the mid price of the
// selected instrument by -1, 0, or +1 tick. The mid never walks to or
// below the spread so bids stay positive.
func (g *Generator) step() (model.Instrument, int64) {
	i := g.index
	g.index = (g.index + 1) % len(g.instruments)
	inst := g.instruments[i]

	tick := inst.TickSize.Raw()
	next := g.mids[i] + int64(g.rng.Intn(3)-1)*tick
	if next > g.spreadTicks*tick {
		g.mids[i] = next
	}
	return inst, g.mids[i]
}
