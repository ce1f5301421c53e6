package indicator

// EMA: затравка — SMA первых period значений, дальше k = 2/(period+1).
func EMA(prices []float64, period int) []Value {
	out := unavailable(len(prices))
	if period < 1 || len(prices) < period {
		return out
	}

	k := 2.0 / (float64(period) + 1)

	var sum float64
	for _, p := range prices[:period] {
		sum += p
	}
	ema := sum / float64(period)
	out[period-1] = Some(ema)

	for i := period; i < len(prices); i++ {
		ema = prices[i]*k + ema*(1-k)
		out[i] = Some(ema)
	}
	return out
}
