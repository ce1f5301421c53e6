package models

import "time"

type Subscriber struct {
	ChatID   int64     `json:"chat_id"`
	Username string    `json:"username"`
	Approved bool      `json:"approved"`
	JoinedAt time.Time `json:"joined_at"`
}
