package service

import (
	"context"
	"errors"
	"fmt"

	"signal_bot/internal/models"
	subscribers "signal_bot/internal/modules/subscribers/service"
	"signal_bot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = "*%s*\n\n" +
	"/start — request access to signals\n" +
	"/status — check your subscription\n" +
	"/help — this message\n\n" +
	"Signals arrive in four steps: pre-alert, confirmation, entry and result."

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		// остальное (callback, inline) не обрабатываем
		return
	}

	chatID := msg.Chat.ID
	var username string
	if msg.From != nil {
		username = msg.From.UserName
	}

	var err error
	switch msg.Command() {
	case "start":
		err = t.handleStart(ctx, chatID, username)
	case "status":
		err = t.handleStatus(ctx, chatID)
	case "help":
		t.reply(chatID, fmt.Sprintf(helpText, t.cfg.Telegram.Brand))
	default:
		t.reply(chatID, "Unknown command. Try /help")
	}
	if err != nil {
		logger.Error("telegram: /%s from %d: %v", msg.Command(), chatID, err)
	}
}

func (t *Telegram) handleStart(ctx context.Context, chatID int64, username string) error {
	admin := t.cfg.IsAdmin(chatID)
	if err := t.store.Add(ctx, models.Subscriber{ChatID: chatID, Username: username, Approved: admin}); err != nil {
		t.reply(chatID, "⚠️ Could not register you right now, try /start again later.")
		return err
	}

	sub, err := t.store.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if sub.Approved {
		t.reply(chatID, fmt.Sprintf("✅ Welcome to *%s*! You are subscribed to live signals.", t.cfg.Telegram.Brand))
		return nil
	}

	t.reply(chatID, "📝 Request received. You will start getting signals once an admin approves you.")
	who := username
	if who == "" {
		who = fmt.Sprintf("%d", chatID)
	}
	t.NotifyAdmins(ctx, fmt.Sprintf("🆕 Subscription request from @%s (id %d)", who, chatID))
	return nil
}

func (t *Telegram) handleStatus(ctx context.Context, chatID int64) error {
	sub, err := t.store.Get(ctx, chatID)
	switch {
	case errors.Is(err, subscribers.ErrNotFound):
		t.reply(chatID, "You are not registered yet. Send /start to request access.")
		return nil
	case err != nil:
		return err
	case sub.Approved:
		t.reply(chatID, "✅ Status: approved — you receive all signals.")
	default:
		t.reply(chatID, "⏳ Status: pending approval.")
	}
	return nil
}
