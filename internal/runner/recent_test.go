package runner

import (
	"math/rand/v2"
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestRecentRing(t *testing.T) {
	r := NewRecent(3)
	assert.False(t, r.Contains("A"))

	for _, s := range []string{"A", "B", "C", "D"} {
		r.Push(s)
	}
	assert.False(t, r.Contains("A"))
	assert.True(t, r.Contains("D"))
	assert.Equal(t, r.Items(), []string{"B", "C", "D"})
}

func TestPickSymbolAvoidsRecent(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	symbols := []string{"EUR/USD", "GBP/USD", "USD/JPY", "BTC/USD"}
	recent := NewRecent(6)
	recent.Push("EUR/USD")
	recent.Push("GBP/USD")
	recent.Push("USD/JPY")

	for i := 0; i < 50; i++ {
		assert.Equal(t, PickSymbol(rng, symbols, recent, 64), "BTC/USD")
	}
}

func TestPickSymbolFallsBackWhenAllRecent(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	symbols := []string{"EUR/USD", "GBP/USD"}
	recent := NewRecent(6)
	recent.Push("EUR/USD")
	recent.Push("GBP/USD")

	got := PickSymbol(rng, symbols, recent, 12)
	assert.True(t, got == "EUR/USD" || got == "GBP/USD")
	assert.Equal(t, PickSymbol(rng, nil, recent, 12), "")
}
