package handlers

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"go_form_bot/database"
	"go_form_bot/messages"
	"go_form_bot/tglog"
)

// ============================================
// Credits
// ============================================

// parseIDAmount разбирает "AdminID Сумма"; сумма — точное десятичное число
func parseIDAmount(args []string) (int64, *big.Rat, bool) {
	if len(args) != 2 {
		return 0, nil, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, nil, false
	}
	amount, err := database.ParseDecimal(args[1])
	if err != nil {
		return 0, nil, false
	}
	return id, amount, true
}

func (h *Handler) onBalance(ctx context.Context, r *request) error {
	balance, err := h.store.Balance(ctx, r.userID())
	if err != nil {
		return err
	}
	h.send(ctx, r.chatID(), messages.FormatBalance(balance))
	return nil
}

// onGrantCredit: сумма в валюте переводится в кредиты по CREDIT_UNIT_PRICE
// с округлением до 1/10000 права
func (h *Handler) onGrantCredit(ctx context.Context, r *request) error {
	adminID, amount, ok := parseIDAmount(r.args)
	if !ok {
		h.send(ctx, r.chatID(), messages.MsgGrantUsage)
		return nil
	}
	rights := database.CreditsForPayment(amount, h.cfg.CreditUnitPrice)
	if database.ValidateAmount(rights) != nil {
		h.send(ctx, r.chatID(), messages.MsgInvalidAmount)
		return nil
	}
	if isAdmin, err := h.store.IsAdmin(ctx, adminID); err != nil {
		return err
	} else if !isAdmin {
		h.send(ctx, r.chatID(), messages.FormatAdminNotFound(adminID))
		return nil
	}

	if err := h.store.Credit(ctx, adminID, rights); err != nil {
		return err
	}
	balance, err := h.store.Balance(ctx, adminID)
	if err != nil {
		return err
	}
	h.log.Info("credit granted", zap.Int64("admin_id", adminID), zap.Stringer("credits", rights))
	tglog.Send("➕ Bakiye: admin <code>%d</code> +%s", adminID, messages.FormatCredits(rights))
	h.send(ctx, r.chatID(), messages.FormatCreditGranted(adminID, amount, rights, balance))
	return nil
}

// onRevokeCredit списывает права напрямую, не больше четырёх знаков после точки
func (h *Handler) onRevokeCredit(ctx context.Context, r *request) error {
	adminID, amount, ok := parseIDAmount(r.args)
	if !ok {
		h.send(ctx, r.chatID(), messages.MsgRevokeUsage)
		return nil
	}
	rights, exact := database.CreditsFromRat(amount)
	if !exact || database.ValidateAmount(rights) != nil {
		h.send(ctx, r.chatID(), messages.MsgInvalidAmount)
		return nil
	}
	if isAdmin, err := h.store.IsAdmin(ctx, adminID); err != nil {
		return err
	} else if !isAdmin {
		h.send(ctx, r.chatID(), messages.FormatAdminNotFound(adminID))
		return nil
	}

	debited, err := h.store.Debit(ctx, adminID, rights)
	if err != nil {
		return err
	}
	balance, err := h.store.Balance(ctx, adminID)
	if err != nil {
		return err
	}
	if !debited {
		h.send(ctx, r.chatID(), messages.FormatRevokeInsufficient(adminID, balance, rights))
		return nil
	}
	h.log.Info("credit revoked", zap.Int64("admin_id", adminID), zap.Stringer("credits", rights))
	h.send(ctx, r.chatID(), messages.FormatCreditRevoked(adminID, rights, balance))
	return nil
}

// ============================================
// Admins
// ============================================

func (h *Handler) onAddAdmin(ctx context.Context, r *request) error {
	if len(r.args) == 0 {
		h.send(ctx, r.chatID(), messages.MsgAddAdminUsage)
		return nil
	}
	adminID, err := strconv.ParseInt(r.args[0], 10, 64)
	if err != nil || adminID <= 0 {
		h.send(ctx, r.chatID(), messages.MsgInvalidID)
		return nil
	}
	name := strings.Join(r.args[1:], " ")
	if name == "" {
		name = h.DisplayName(ctx, adminID)
	}

	if err := h.store.AddAdmin(ctx, adminID, name, r.userID()); err != nil {
		return err
	}
	h.log.Info("admin added", zap.Int64("admin_id", adminID), zap.String("name", name))
	h.send(ctx, r.chatID(), messages.FormatAdminAdded(adminID, name))
	return nil
}

func (h *Handler) onRemoveAdmin(ctx context.Context, r *request) error {
	if len(r.args) != 1 {
		h.send(ctx, r.chatID(), messages.MsgRemoveAdminUsage)
		return nil
	}
	adminID, err := strconv.ParseInt(r.args[0], 10, 64)
	if err != nil {
		h.send(ctx, r.chatID(), messages.MsgInvalidID)
		return nil
	}
	ok, err := h.store.RemoveAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	if !ok {
		h.send(ctx, r.chatID(), messages.FormatAdminNotFound(adminID))
		return nil
	}
	h.log.Info("admin removed", zap.Int64("admin_id", adminID))
	h.send(ctx, r.chatID(), messages.FormatAdminRemoved(adminID))
	return nil
}

func (h *Handler) onListAdmins(ctx context.Context, r *request) error {
	admins, err := h.store.ListAdmins(ctx)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		h.send(ctx, r.chatID(), messages.MsgNoAdmins)
		return nil
	}
	lines := make([]messages.AdminLine, len(admins))
	for i, a := range admins {
		lines[i] = messages.AdminLine{ID: a.UserID, Name: a.Name, Credits: a.Credits}
	}
	h.send(ctx, r.chatID(), messages.FormatAdmins(lines))
	return nil
}

// ============================================
// Groups
// ============================================

func (h *Handler) onAddGroup(ctx context.Context, r *request) error {
	id, name := r.chatID(), r.msg.Chat.Title
	if isPrivate(r.msg) {
		// из лички группу может добавить только супер-админ по id
		if !r.caller.SuperAdmin || len(r.args) < 2 {
			h.send(ctx, r.chatID(), messages.MsgAddGroupUsage)
			return nil
		}
		var err error
		if id, err = strconv.ParseInt(r.args[0], 10, 64); err != nil {
			h.send(ctx, r.chatID(), messages.MsgInvalidID)
			return nil
		}
		name = strings.Join(r.args[1:], " ")
	}

	err := h.store.AddGroup(ctx, id, name, r.userID())
	if errors.Is(err, database.ErrGroupExists) {
		h.send(ctx, r.chatID(), messages.MsgGroupExists)
		return nil
	}
	if err != nil {
		return err
	}
	h.log.Info("group added", zap.Int64("group_id", id), zap.Int64("by", r.userID()))
	h.send(ctx, r.chatID(), messages.FormatGroupAdded(id, name))
	return nil
}

func (h *Handler) onRemoveGroup(ctx context.Context, r *request) error {
	id := r.chatID()
	if len(r.args) > 0 {
		var err error
		if id, err = strconv.ParseInt(r.args[0], 10, 64); err != nil {
			h.send(ctx, r.chatID(), messages.MsgInvalidID)
			return nil
		}
	} else if isPrivate(r.msg) {
		h.send(ctx, r.chatID(), messages.MsgInvalidID)
		return nil
	}

	owner := r.userID()
	if r.caller.SuperAdmin {
		owner = 0
	}
	ok, err := h.store.RemoveGroup(ctx, id, owner)
	if err != nil {
		return err
	}
	if !ok {
		h.send(ctx, r.chatID(), messages.MsgGroupNotFound)
		return nil
	}
	h.log.Info("group removed", zap.Int64("group_id", id), zap.Int64("by", r.userID()))
	h.send(ctx, r.chatID(), messages.FormatGroupRemoved(id))
	return nil
}

func (h *Handler) onListGroups(ctx context.Context, r *request) error {
	owner := r.userID()
	if r.caller.SuperAdmin {
		owner = 0
	}
	groups, err := h.store.ListGroups(ctx, owner)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		h.send(ctx, r.chatID(), messages.MsgNoGroups)
		return nil
	}
	lines := make([]messages.GroupLine, len(groups))
	for i, g := range groups {
		lines[i] = messages.GroupLine{ID: g.ID, Name: g.Name}
	}
	h.send(ctx, r.chatID(), messages.FormatGroups(lines))
	return nil
}
