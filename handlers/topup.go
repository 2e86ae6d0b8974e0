package handlers

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"go_form_bot/database"
	"go_form_bot/messages"
	"go_form_bot/tglog"
)

func (h *Handler) onTopUp(ctx context.Context, r *request) error {
	if h.payments == nil {
		h.send(ctx, r.chatID(), messages.MsgTopUpUnavailable)
		return nil
	}
	reply, err := h.engine.TopUp(ctx, r.key())
	if err != nil {
		return err
	}
	h.sendReply(ctx, r.chatID(), reply)
	return nil
}

// openPayment выставляет счёт на принятую сумму и присылает реквизиты
func (h *Handler) openPayment(ctx context.Context, chatID, userID int64, amount *big.Rat) {
	if h.payments == nil {
		h.send(ctx, chatID, messages.MsgTopUpUnavailable)
		return
	}
	h.send(ctx, chatID, messages.MsgTopUpCreating)

	inv, err := h.payments.Open(ctx, amount, userID)
	if err != nil {
		h.log.Error("create payment failed",
			zap.Int64("user_id", userID),
			zap.String("amount", amount.FloatString(2)),
			zap.Error(err))
		h.send(ctx, chatID, messages.MsgTopUpFailed)
		return
	}

	rights := database.CreditsForPayment(amount, h.cfg.CreditUnitPrice)
	tglog.Send("🧾 <b>Yeni ödeme</b> #%s\n👤 <code>%d</code>\n💰 %s₺ → %s USDT",
		tglog.Escape(inv.PaymentID.String()), userID,
		messages.FormatAmount(amount), tglog.Escape(inv.PayAmount.String()))
	h.send(ctx, chatID, messages.FormatTopUpInvoice(amount, inv.PayAmount.String(), inv.PayAddress, rights))
}
