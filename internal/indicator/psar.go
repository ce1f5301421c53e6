package indicator

import "math"

// PSAR — Parabolic SAR. Считается строго последовательно: каждое значение
// зависит от предыдущего и от текущего направления тренда.
func PSAR(high, low []float64, step, maxStep float64) []Value {
	n := min(len(high), len(low))
	out := unavailable(len(high))
	if n < 2 || step <= 0 || maxStep < step {
		return out
	}

	up := true
	af := step
	ep := high[0]
	sar := low[0]
	out[0] = Some(sar)

	for i := 1; i < n; i++ {
		if up {
			sar += af * (ep - sar)
			// SAR не выше двух предыдущих минимумов
			sar = math.Min(sar, low[i-1])
			if i > 1 {
				sar = math.Min(sar, low[i-2])
			}
			if low[i] < sar {
				up = false
				sar = ep
				ep = low[i]
				af = step
			} else if high[i] > ep {
				ep = high[i]
				af = math.Min(af+step, maxStep)
			}
		} else {
			sar -= af * (sar - ep)
			sar = math.Max(sar, high[i-1])
			if i > 1 {
				sar = math.Max(sar, high[i-2])
			}
			if high[i] > sar {
				up = true
				sar = ep
				ep = high[i]
				af = step
			} else if low[i] < ep {
				ep = low[i]
				af = math.Min(af+step, maxStep)
			}
		}
		out[i] = Some(sar)
	}
	return out
}
