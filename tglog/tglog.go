// Package tglog дублирует важные события в служебный Telegram-канал оператора.
package tglog

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

var (
	b         *bot.Bot
	channelID int64
	enabled   bool
	logger    = zap.NewNop()
)

// Init инициализирует логгер в TG-канал
func Init(tgBot *bot.Bot, chID int64, log *zap.Logger) {
	logger = log.Named("tglog")
	if chID == 0 {
		logger.Info("LOG_CHANNEL_ID не задан, логирование в канал отключено")
		return
	}
	b = tgBot
	channelID = chID
	enabled = true
	logger.Info("логирование в канал включено", zap.Int64("channel_id", chID))
}

// Send отправляет сообщение в лог-канал (неблокирующий)
func Send(format string, args ...any) {
	if !enabled {
		return
	}
	text := fmt.Sprintf(format, args...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    channelID,
			Text:      text,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			logger.Warn("ошибка отправки лога в канал", zap.Error(err))
		}
	}()
}

// Escape экранирует пользовательский текст для HTML-разметки
func Escape(s string) string {
	return html.EscapeString(s)
}
