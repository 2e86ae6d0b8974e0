package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"go_form_bot/database"
	"go_form_bot/intake"
	"go_form_bot/messages"
	"go_form_bot/report"
)

func (h *Handler) onStart(ctx context.Context, r *request) error {
	h.send(ctx, r.chatID(), messages.MsgWelcome)
	return nil
}

func (h *Handler) onHelp(ctx context.Context, r *request) error {
	caller, err := h.resolver.Resolve(ctx, r.userID(), r.chatID(), isPrivate(r.msg))
	if err != nil {
		return err
	}
	switch {
	case caller.SuperAdmin:
		h.send(ctx, r.chatID(), messages.MsgHelpAdmin+messages.MsgHelpSuper)
	case caller.Admin:
		h.send(ctx, r.chatID(), messages.MsgHelpAdmin)
	default:
		h.send(ctx, r.chatID(), messages.MsgHelpGuest)
	}
	return nil
}

func (h *Handler) onChatID(ctx context.Context, r *request) error {
	h.send(ctx, r.chatID(), messages.FormatChatID(r.chatID(), r.userID()))
	return nil
}

func (h *Handler) onCancel(ctx context.Context, r *request) error {
	reply, err := h.engine.Cancel(ctx, r.key())
	if err != nil {
		return err
	}
	h.sendReply(ctx, r.chatID(), reply)
	return nil
}

// ============================================
// Forms
// ============================================

func (h *Handler) onDefineForm(ctx context.Context, r *request) error {
	if len(r.args) == 0 {
		h.send(ctx, r.chatID(), messages.MsgDefineUsage)
		return nil
	}
	reply, err := h.engine.Define(ctx, r.key(), r.args[0], r.chatID())
	if err != nil {
		return err
	}
	h.sendReply(ctx, r.chatID(), reply)
	return nil
}

func (h *Handler) onEnterData(ctx context.Context, r *request) error {
	if len(r.args) == 0 {
		h.send(ctx, r.chatID(), messages.MsgEnterUsage)
		return nil
	}
	reply, err := h.engine.Enter(ctx, r.key(), r.args[0], r.inline)
	if err != nil {
		return err
	}
	h.sendReply(ctx, r.chatID(), reply)
	return nil
}

func (h *Handler) onListForms(ctx context.Context, r *request) error {
	filter := database.FormFilter{GroupID: r.chatID(), OwnerID: r.userID(), All: r.caller.SuperAdmin}
	forms, err := h.store.ListForms(ctx, filter)
	if err != nil {
		return err
	}
	if len(forms) == 0 {
		h.send(ctx, r.chatID(), messages.MsgNoForms)
		return nil
	}
	lines := make([]messages.FormLine, len(forms))
	for i, f := range forms {
		lines[i] = messages.FormLine{Name: f.Name, Fields: f.Fields}
	}
	h.send(ctx, r.chatID(), messages.FormatForms(lines))
	return nil
}

func (h *Handler) onDeleteForm(ctx context.Context, r *request) error {
	if len(r.args) == 0 {
		h.send(ctx, r.chatID(), messages.MsgDeleteFormUsage)
		return nil
	}
	name := intake.NormalizeName(r.args[0])

	var (
		form *database.Form
		err  error
	)
	if r.caller.SuperAdmin {
		form, err = intake.ResolveForm(ctx, h.store, name, r.chatID(), r.userID())
	} else {
		form, err = h.store.FindFormByOwner(ctx, name, r.userID())
	}
	if errors.Is(err, database.ErrFormNotFound) {
		h.send(ctx, r.chatID(), messages.MsgDeleteFormFailed)
		return nil
	}
	if err != nil {
		return err
	}

	ok, err := h.store.DeleteForm(ctx, form.Name, form.GroupID)
	if err != nil {
		return err
	}
	if !ok {
		h.send(ctx, r.chatID(), messages.MsgDeleteFormFailed)
		return nil
	}
	h.log.Info("form deleted",
		zap.String("form", form.Name),
		zap.Int64("group_id", form.GroupID),
		zap.Int64("by", r.userID()))
	h.send(ctx, r.chatID(), messages.FormatFormDeleted(form.Name))
	return nil
}

func (h *Handler) onReport(ctx context.Context, r *request) error {
	if len(r.args) == 0 {
		h.send(ctx, r.chatID(), messages.MsgReportUsage)
		return nil
	}
	name := intake.NormalizeName(r.args[0])
	rng, err := report.ParseRange(r.args[1:], h.now())
	if err != nil {
		h.send(ctx, r.chatID(), messages.MsgInvalidDate)
		return nil
	}

	rep, err := h.reports.Build(ctx, report.Request{
		FormName:   name,
		CallerID:   r.userID(),
		SuperAdmin: r.caller.SuperAdmin,
		Range:      rng,
	})
	switch {
	case errors.Is(err, database.ErrFormNotFound):
		h.send(ctx, r.chatID(), messages.FormatFormNotFound(name))
		return nil
	case errors.Is(err, report.ErrNoData):
		h.send(ctx, r.chatID(), messages.FormatNoReportData(name,
			rng.From.Format("02.01.2006"), rng.To.Format("02.01.2006"), rng.Explicit))
		return nil
	case err != nil:
		return err
	}

	_, err = h.sender.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   r.chatID(),
		Document: &models.InputFileUpload{Filename: rep.FileName, Data: bytes.NewReader(rep.Data)},
		Caption:  rep.Caption,
	})
	if err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}

func (h *Handler) onDeleteSubmission(ctx context.Context, r *request) error {
	if len(r.args) == 0 {
		h.send(ctx, r.chatID(), messages.MsgDeleteSubmissionUsage)
		return nil
	}
	id, err := strconv.ParseInt(r.args[0], 10, 64)
	if err != nil {
		h.send(ctx, r.chatID(), messages.MsgInvalidID)
		return nil
	}

	sub, err := h.store.GetSubmission(ctx, id)
	if err != nil {
		return err
	}
	if sub == nil {
		h.send(ctx, r.chatID(), messages.MsgSubmissionNotFound)
		return nil
	}
	if !r.caller.SuperAdmin {
		form, err := h.store.GetForm(ctx, sub.FormName, sub.GroupID)
		if errors.Is(err, database.ErrFormNotFound) || (err == nil && form.CreatedBy != r.userID()) {
			h.send(ctx, r.chatID(), messages.MsgSubmissionNotFound)
			return nil
		}
		if err != nil {
			return err
		}
	}

	ok, err := h.store.DeleteSubmission(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		h.send(ctx, r.chatID(), messages.MsgSubmissionNotFound)
		return nil
	}
	h.log.Info("submission deleted", zap.Int64("id", id), zap.Int64("by", r.userID()))
	h.send(ctx, r.chatID(), messages.FormatSubmissionDeleted(id))
	return nil
}
