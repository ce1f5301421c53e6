// Package indicator — чистые функции над рядом цен. Каждая возвращает
// срез той же длины, что и вход; до конца прогрева значения помечены как недоступные.
package indicator

import "strconv"

// Value — значение индикатора или отметка "нет данных". Ноль не подставляем.
type Value struct {
	V  float64
	OK bool
}

func Some(v float64) Value { return Value{V: v, OK: true} }

var Unavailable = Value{}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.OK {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.V, 'g', -1, 64), nil
}

func unavailable(n int) []Value {
	return make([]Value, n)
}

// Last возвращает последнее и предпоследнее значения ряда.
func Last(values []Value) (cur, prev Value) {
	n := len(values)
	if n > 0 {
		cur = values[n-1]
	}
	if n > 1 {
		prev = values[n-2]
	}
	return cur, prev
}

// Compact — только доступные значения, и индекс первого из них.
func Compact(values []Value) ([]float64, int) {
	first := -1
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if !v.OK {
			continue
		}
		if first < 0 {
			first = i
		}
		out = append(out, v.V)
	}
	return out, first
}
