package models

import "time"

type Stage string

const (
	StagePreAlert     Stage = "pre_alert"
	StageConfirmation Stage = "confirmation"
	StageEntry        Stage = "entry"
	StageResult       Stage = "result"
)

// Stages в порядке отправки.
var Stages = [...]Stage{StagePreAlert, StageConfirmation, StageEntry, StageResult}

type AlertState string

const (
	AlertCreated        AlertState = "created"
	AlertPreAlert       AlertState = "pre_alert"
	AlertConfirmation   AlertState = "confirmation"
	AlertEntry          AlertState = "entry"
	AlertAwaitingResult AlertState = "awaiting_result"
	AlertClosed         AlertState = "closed"
	AlertCancelled      AlertState = "cancelled"
)

type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
	OutcomeVoid Outcome = "VOID"
)

// Message — готовый текст одной стадии для рассылки.
type Message struct {
	SignalID string    `json:"signal_id"`
	Stage    Stage     `json:"stage"`
	Symbol   string    `json:"symbol"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

type DeliveryReport struct {
	Attempted int
	Delivered int
	Transient int
	Removed   []int64
}
