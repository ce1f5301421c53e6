package indicator

type MACDResult struct {
	Line      []Value
	Signal    []Value
	Histogram []Value
}

// MACD: линия = EMA(fast) - EMA(slow); сигнальная — EMA по доступной части линии,
// сдвинутая обратно на место; гистограмма = линия - сигнальная.
func MACD(prices []float64, fast, slow, signal int) MACDResult {
	n := len(prices)
	res := MACDResult{
		Line:      unavailable(n),
		Signal:    unavailable(n),
		Histogram: unavailable(n),
	}

	emaFast := EMA(prices, fast)
	emaSlow := EMA(prices, slow)
	for i := 0; i < n; i++ {
		if emaFast[i].OK && emaSlow[i].OK {
			res.Line[i] = Some(emaFast[i].V - emaSlow[i].V)
		}
	}

	clean, first := Compact(res.Line)
	if first < 0 {
		return res
	}
	sig := EMA(clean, signal)
	for j, v := range sig {
		res.Signal[first+j] = v
	}

	for i := 0; i < n; i++ {
		if res.Line[i].OK && res.Signal[i].OK {
			res.Histogram[i] = Some(res.Line[i].V - res.Signal[i].V)
		}
	}
	return res
}
