package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"go_form_bot/database"
	"go_form_bot/messages"
	"go_form_bot/tglog"
)

// DisplayName — username или имя пользователя; при ошибке сам id
func (h *Handler) DisplayName(ctx context.Context, userID int64) string {
	chat, err := h.sender.GetChat(ctx, &bot.GetChatParams{ChatID: userID})
	if err != nil || chat == nil {
		return strconv.FormatInt(userID, 10)
	}
	if chat.Username != "" {
		return chat.Username
	}
	if name := strings.TrimSpace(chat.FirstName + " " + chat.LastName); name != "" {
		return name
	}
	return strconv.FormatInt(userID, 10)
}

// PaymentCredited уведомляет плательщика и лог-канал
func (h *Handler) PaymentCredited(ctx context.Context, p database.Payment) {
	h.send(ctx, p.AdminID, messages.FormatPaymentCredited(p.Amount, p.Currency, p.Credited))
	tglog.Send("💳 <b>Ödeme</b> #%s\n👤 %s (<code>%d</code>)\n💰 %s %s → %s hak",
		tglog.Escape(p.PaymentID), tglog.Escape(p.AdminName), p.AdminID,
		tglog.Escape(p.Amount), tglog.Escape(strings.ToUpper(p.Currency)),
		messages.FormatCredits(p.Credited))
}

// PaymentExpired — счёт закрыт без оплаты
func (h *Handler) PaymentExpired(ctx context.Context, adminID int64, paymentID string) {
	h.log.Info("payment expired", zap.Int64("admin_id", adminID), zap.String("payment_id", paymentID))
	h.send(ctx, adminID, messages.MsgTopUpExpired)
}
