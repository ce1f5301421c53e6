package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"signal_bot/internal/modules/config"
	broadcast "signal_bot/internal/modules/broadcast/service"
	subscribers "signal_bot/internal/modules/subscribers/service"
	"signal_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botAPI — часть *tgbot.BotAPI, которой пользуется сервис.
type botAPI interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram — доставка сигналов и команды /start /status /help.
type Telegram struct {
	bot   *tgbot.BotAPI
	api   botAPI
	cfg   *config.Config
	store subscribers.Store
	sleep func(ctx context.Context, d time.Duration) error
}

var _ broadcast.Sender = (*Telegram)(nil)

func NewTelegram(cfg *config.Config, store subscribers.Store) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram.NewTelegram: %w", err)
	}
	logger.Info("telegram: authorized as @%s", b.Self.UserName)

	return &Telegram{
		bot:   b,
		api:   b,
		cfg:   cfg,
		store: store,
		sleep: sleepCtx,
	}, nil
}

// Send доставляет сообщение одному чату. Постоянные ошибки помечены broadcast.Permanent.
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	err := t.send(chatID, text, tgbot.ModeMarkdown)
	if err == nil {
		return nil
	}

	var apiErr *tgbot.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429 && apiErr.RetryAfter > 0:
			// одна повторная попытка после паузы, которую просит Telegram
			if err := t.sleep(ctx, time.Duration(apiErr.RetryAfter)*time.Second); err != nil {
				return err
			}
			return classify(t.send(chatID, text, tgbot.ModeMarkdown))
		case isParseError(apiErr):
			// текст из webhook может сломать Markdown — шлём как есть
			return classify(t.send(chatID, text, ""))
		}
	}
	return classify(err)
}

func (t *Telegram) send(chatID int64, text, mode string) error {
	msg := tgbot.NewMessage(chatID, text)
	msg.ParseMode = mode
	msg.DisableWebPagePreview = true
	_, err := t.api.Send(msg)
	return err
}

func (t *Telegram) reply(chatID int64, text string) {
	if err := t.send(chatID, text, tgbot.ModeMarkdown); err != nil {
		logger.Warn("telegram: reply to %d: %v", chatID, err)
	}
}

// NotifyAdmins — служебное сообщение всем админам.
func (t *Telegram) NotifyAdmins(ctx context.Context, text string) {
	for _, id := range t.cfg.Telegram.AdminIDs {
		if err := t.Send(ctx, id, text); err != nil {
			logger.Warn("telegram: notify admin %d: %v", id, err)
		}
	}
}

// Start — long polling, пока не вызван Stop.
func (t *Telegram) Start(ctx context.Context) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	for update := range updates {
		t.handleUpdate(ctx, update)
	}
}

func (t *Telegram) Stop() {
	t.bot.StopReceivingUpdates()
}

// classify оборачивает ошибки, после которых писать в чат бессмысленно.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbot.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Code == 403 {
		return broadcast.Permanent(err)
	}
	msg := strings.ToLower(apiErr.Message)
	for _, s := range []string{"blocked", "chat not found", "user is deactivated", "bot was kicked"} {
		if strings.Contains(msg, s) {
			return broadcast.Permanent(err)
		}
	}
	return err
}

func isParseError(e *tgbot.Error) bool {
	return e.Code == 400 && strings.Contains(strings.ToLower(e.Message), "can't parse entities")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	tm := time.NewTimer(d)
	defer tm.Stop()
	select {
	case <-tm.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
