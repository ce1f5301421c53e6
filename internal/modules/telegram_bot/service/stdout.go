package service

import (
	"context"

	broadcast "signal_bot/internal/modules/broadcast/service"
	"signal_bot/pkg/logger"
)

// Stdout — отправитель без токена бота: сообщения уходят в лог.
type Stdout struct{}

var _ broadcast.Sender = Stdout{}

func (Stdout) Send(_ context.Context, chatID int64, text string) error {
	logger.Info("[STDOUT] -> %d: %s", chatID, text)
	return nil
}
