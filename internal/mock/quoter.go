// Package mock provides a deterministic quote source so the tracking loop
// can be exercised without market hours or a live session.
package mock

import (
	"context"
	"math"
	"sync"

	"github.com/kdeshpande/condortrack/internal/util"
)

// Quoter returns synthetic leg prices that drift each cycle so derived
// metrics visibly change between renders. Prices stay positive and aligned
// to the exchange tick.
type Quoter struct {
	mu     sync.Mutex
	base   map[string]float64
	cycles int
}

// NewQuoter creates a mock quoter. Seed prices are optional; legs without a
// seed get a deterministic base derived from their request order.
func NewQuoter(seed map[string]float64) *Quoter {
	base := make(map[string]float64, len(seed))
	for sym, price := range seed {
		base[sym] = price
	}
	return &Quoter{base: base}
}

// GetQuotes implements broker.Quoter with synthetic prices.
func (q *Quoter) GetQuotes(_ context.Context, _ string, symbols []string) (map[string]float64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.cycles++
	out := make(map[string]float64, len(symbols))
	for i, sym := range symbols {
		base, ok := q.base[sym]
		if !ok {
			// Stagger the legs so spreads start with a plausible premium gap.
			base = 40 + 12*float64(i)
			q.base[sym] = base
		}
		drift := 2 * math.Sin(float64(q.cycles)/3+float64(i))
		price := util.RoundToTick(base+drift, util.OptionTick)
		if price < util.OptionTick {
			price = util.OptionTick
		}
		out[sym] = price
	}
	return out, nil
}

// Cycles reports how many polls the quoter has served.
func (q *Quoter) Cycles() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cycles
}

// QuoterFunc adapts a plain function to the quoter contract, for tests that
// need a scripted quote source.
type QuoterFunc func(ctx context.Context, token string, symbols []string) (map[string]float64, error)

// GetQuotes calls f.
func (f QuoterFunc) GetQuotes(ctx context.Context, token string, symbols []string) (map[string]float64, error) {
	return f(ctx, token, symbols)
}
