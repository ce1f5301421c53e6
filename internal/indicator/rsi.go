package indicator

// rsiEpsilon подставляется вместо нулевого среднего убытка.
const rsiEpsilon = 1e-9

// RSI по Уайлдеру. Первое значение — на индексе period.
func RSI(prices []float64, period int) []Value {
	out := unavailable(len(prices))
	if period < 1 || len(prices) < period+1 {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)
	out[period] = Some(rsiValue(gain, loss))

	n := float64(period)
	for i := period + 1; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		gain = (gain*(n-1) + up) / n
		loss = (loss*(n-1) + down) / n
		out[i] = Some(rsiValue(gain, loss))
	}
	return out
}

func rsiValue(gain, loss float64) float64 {
	if loss == 0 {
		loss = rsiEpsilon
	}
	return 100 - 100/(1+gain/loss)
}
