package indicator

import "math"

// ATR — сглаженный по Уайлдеру true range. TR считается с бара 1,
// первое значение ATR — на индексе period.
func ATR(high, low, closes []float64, period int) []Value {
	n := min(len(high), len(low), len(closes))
	out := unavailable(len(closes))
	if period < 1 || n < period+1 {
		return out
	}

	tr := func(i int) float64 {
		return math.Max(high[i]-low[i], math.Max(
			math.Abs(high[i]-closes[i-1]),
			math.Abs(low[i]-closes[i-1]),
		))
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr(i)
	}
	atr := sum / float64(period)
	out[period] = Some(atr)

	p := float64(period)
	for i := period + 1; i < n; i++ {
		atr = (atr*(p-1) + tr(i)) / p
		out[i] = Some(atr)
	}
	return out
}
