package models

import (
	"strings"
	"time"
)

type Direction string

const (
	DirectionNone Direction = "NONE"
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// ParseDirection понимает buy/sell в любом регистре.
func ParseDirection(raw string) Direction {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY", "LONG", "CALL":
		return DirectionBuy
	case "SELL", "SHORT", "PUT":
		return DirectionSell
	default:
		return DirectionNone
	}
}

func (d Direction) Arrow() string {
	switch d {
	case DirectionBuy:
		return "⬆️"
	case DirectionSell:
		return "⬇️"
	default:
		return ""
	}
}

// Origin — откуда пришло решение.
type Origin string

const (
	OriginEvaluator Origin = "evaluator"
	OriginWebhook   Origin = "webhook"
)

const noConfluence = "No confluence"

// Signal — единый контракт для планировщика, независимо от источника.
type Signal struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	Direction     Direction `json:"direction"`
	Confidence    int       `json:"confidence"`
	Confirmations int       `json:"confirmations"`
	Reasons       []string  `json:"reasons,omitempty"`
	Analysis      string    `json:"analysis,omitempty"`
	Timeframe     Timeframe `json:"timeframe"`
	Price         float64   `json:"price,omitempty"`
	Origin        Origin    `json:"origin"`
	CreatedAt     time.Time `json:"created_at"`
	// Snapshot — сериализованные значения индикаторов (JSON), у webhook пустой.
	Snapshot []byte `json:"-"`
}

// Text — человекочитаемое обоснование сигнала.
func (s Signal) Text() string {
	if s.Analysis != "" {
		return s.Analysis
	}
	if len(s.Reasons) > 0 {
		return strings.Join(s.Reasons, "; ")
	}
	return noConfluence
}
