package feed

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/model"
)

// Generator creates synthetic ticks as a bounded random walk around a base
// price. A fixed seed makes a session reproducible.
type Generator struct {
	symbol   string
	price    float64
	floor    float64
	stepPct  float64
	baseSize float64
	rng      *rand.Rand
}

// NewGenerator creates a generator for one symbol. stepPct is the maximum
// move per tick as a fraction of the current price.
func NewGenerator(symbol string, basePrice, stepPct float64, seed int64) *Generator {
	if basePrice <= 0 {
		basePrice = 100
	}
	if stepPct <= 0 {
		stepPct = 0.002
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		symbol:   symbol,
		price:    basePrice,
		floor:    basePrice * 0.01,
		stepPct:  stepPct,
		baseSize: 1,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Next advances the walk and returns the tick at the given time.
func (g *Generator) Next(now time.Time) model.Tick {
	move := (g.rng.Float64()*2 - 1) * g.stepPct
	g.price *= 1 + move
	if g.price < g.floor {
		g.price = g.floor
	}
	return model.Tick{
		Symbol: g.symbol,
		Price:  decimal.NewFromFloat(g.price),
		Volume: decimal.NewFromFloat(g.baseSize * (0.5 + g.rng.Float64())),
		At:     now.UTC(),
	}
}
