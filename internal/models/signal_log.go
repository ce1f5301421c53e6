package models

import "time"

// LogEntry — строка журнала сигналов. Result/ResultAt дописываются один раз.
type LogEntry struct {
	SignalID      string
	CreatedAt     time.Time
	Symbol        string
	Direction     Direction
	Confidence    int
	Price         float64
	Reasons       string
	Confirmations int
	Origin        Origin
	Snapshot      []byte
	Result        Outcome
	ResultAt      time.Time
}

func NewLogEntry(sig Signal) LogEntry {
	return LogEntry{
		SignalID:      sig.ID,
		CreatedAt:     sig.CreatedAt,
		Symbol:        sig.Symbol,
		Direction:     sig.Direction,
		Confidence:    sig.Confidence,
		Price:         sig.Price,
		Reasons:       sig.Text(),
		Confirmations: sig.Confirmations,
		Origin:        sig.Origin,
		Snapshot:      sig.Snapshot,
	}
}
