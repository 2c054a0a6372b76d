package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdeshpande/condortrack/internal/util"
)

func TestQuoterReturnsAllSymbols(t *testing.T) {
	q := NewQuoter(nil)
	symbols := []string{"A", "B", "C", "D"}

	ltps, err := q.GetQuotes(context.Background(), "demo", symbols)
	require.NoError(t, err)
	require.Len(t, ltps, 4)

	for _, sym := range symbols {
		price, ok := ltps[sym]
		assert.True(t, ok, "symbol %s missing", sym)
		assert.Greater(t, price, 0.0)

		// Prices land on the option tick.
		ticks := price / util.OptionTick
		assert.InDelta(t, math.Round(ticks), ticks, 1e-6, "price %v not tick-aligned", price)
	}
}

func TestQuoterSeedsAndDrifts(t *testing.T) {
	q := NewQuoter(map[string]float64{"X": 100})

	first, err := q.GetQuotes(context.Background(), "demo", []string{"X"})
	require.NoError(t, err)
	second, err := q.GetQuotes(context.Background(), "demo", []string{"X"})
	require.NoError(t, err)

	assert.InDelta(t, 100, first["X"], 2.5, "drift stays near the seed")
	assert.NotEqual(t, first["X"], second["X"], "prices drift between cycles")
	assert.Equal(t, 2, q.Cycles())
}
