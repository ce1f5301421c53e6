package runner

import "math/rand/v2"

// Recent — кольцо последних символов, по которым ушёл сигнал.
type Recent struct {
	buf  []string
	next int
	n    int
}

func NewRecent(size int) *Recent {
	if size < 1 {
		size = 1
	}
	return &Recent{buf: make([]string, size)}
}

func (r *Recent) Push(symbol string) {
	r.buf[r.next] = symbol
	r.next = (r.next + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

func (r *Recent) Contains(symbol string) bool {
	for i := 0; i < r.n; i++ {
		if r.buf[i] == symbol {
			return true
		}
	}
	return false
}

// Items — от старого к новому.
func (r *Recent) Items() []string {
	out := make([]string, 0, r.n)
	start := (r.next - r.n + len(r.buf)) % len(r.buf)
	for i := 0; i < r.n; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// PickSymbol делает до tries попыток найти символ вне recent,
// иначе берёт любой.
func PickSymbol(rng *rand.Rand, symbols []string, recent *Recent, tries int) string {
	if len(symbols) == 0 {
		return ""
	}
	for i := 0; i < tries; i++ {
		s := symbols[rng.IntN(len(symbols))]
		if !recent.Contains(s) {
			return s
		}
	}
	return symbols[rng.IntN(len(symbols))]
}
