package handlers

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"go_form_bot/access"
	"go_form_bot/admission"
	"go_form_bot/attach"
	"go_form_bot/config"
	"go_form_bot/database"
	"go_form_bot/intake"
	"go_form_bot/messages"
	"go_form_bot/payment"
	"go_form_bot/report"
	"go_form_bot/session"
	"go_form_bot/tglog"
)

// Sender — часть API бота, которой пользуются обработчики
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	GetChat(ctx context.Context, params *bot.GetChatParams) (*models.ChatFullInfo, error)
}

// Store — справочник, формы, баланс и заявки; его реализуют database.DB и storage.Storage
type Store interface {
	access.Directory
	intake.FormStore

	AddGroup(ctx context.Context, id int64, name string, addedBy int64) error
	ListGroups(ctx context.Context, adminID int64) ([]database.Group, error)
	RemoveGroup(ctx context.Context, id int64, adminID int64) (bool, error)
	AddAdmin(ctx context.Context, userID int64, name string, addedBy int64) error
	RemoveAdmin(ctx context.Context, userID int64) (bool, error)
	ListAdmins(ctx context.Context) ([]database.Admin, error)

	ListForms(ctx context.Context, filter database.FormFilter) ([]database.Form, error)
	DeleteForm(ctx context.Context, name string, groupID int64) (bool, error)

	Credit(ctx context.Context, adminID int64, amount database.Credits) error
	Debit(ctx context.Context, adminID int64, amount database.Credits) (bool, error)
	Balance(ctx context.Context, adminID int64) (database.Credits, error)

	GetSubmission(ctx context.Context, id int64) (*database.Submission, error)
	DeleteSubmission(ctx context.Context, id int64) (bool, error)
}

// Payments выставляет счёт на пополнение и следит за его оплатой
type Payments interface {
	Open(ctx context.Context, amount *big.Rat, adminID int64) (*payment.Invoice, error)
}

type Handler struct {
	sender      Sender
	cfg         *config.Config
	store       Store
	resolver    *access.Resolver
	engine      *intake.Engine
	reports     *report.Service
	payments    Payments
	log         *zap.Logger
	botUsername string
	now         func() time.Time

	commands map[string]command
}

func New(sender Sender, cfg *config.Config, store Store, engine *intake.Engine, reports *report.Service, log *zap.Logger, username string) *Handler {
	h := &Handler{
		sender:      sender,
		cfg:         cfg,
		store:       store,
		resolver:    access.NewResolver(store, cfg.SuperAdminID),
		engine:      engine,
		reports:     reports,
		log:         log.Named("handlers"),
		botUsername: username,
		now:         time.Now,
	}
	h.commands = h.routes()
	return h
}

// SetPayments включает /bakiyeyukle. Наблюдатель платежей сам уведомляет
// через Handler, поэтому подключается после создания.
func (h *Handler) SetPayments(p Payments) {
	h.payments = p
}

// request — разобранная команда вместе с вызывающим
type request struct {
	msg    *models.Message
	args   []string
	inline []string
	caller access.Caller
}

func (r *request) chatID() int64 { return r.msg.Chat.ID }
func (r *request) userID() int64 { return r.msg.From.ID }
func (r *request) key() session.Key {
	return session.Key{ChatID: r.chatID(), UserID: r.userID()}
}

type command struct {
	// guarded — перед запуском выполняется access.Check(op)
	guarded bool
	op      access.Operation
	run     func(ctx context.Context, r *request) error
}

func (h *Handler) routes() map[string]command {
	open := func(run func(context.Context, *request) error) command { return command{run: run} }
	guard := func(op access.Operation, run func(context.Context, *request) error) command {
		return command{guarded: true, op: op, run: run}
	}
	return map[string]command{
		"start":  open(h.onStart),
		"yardim": open(h.onHelp),
		"chatid": open(h.onChatID),
		"iptal":  open(h.onCancel),

		"formekle": guard(access.OpDefineForm, h.onDefineForm),
		"form":     guard(access.OpEnterData, h.onEnterData),
		"formlar":  guard(access.OpListForms, h.onListForms),
		"formsil":  guard(access.OpDeleteForm, h.onDeleteForm),
		"rapor":    guard(access.OpReport, h.onReport),
		"kayitsil": guard(access.OpDeleteSubmission, h.onDeleteSubmission),

		"bakiye":      guard(access.OpBalance, h.onBalance),
		"bakiyeekle":  guard(access.OpGrantCredit, h.onGrantCredit),
		"bakiyesil":   guard(access.OpGrantCredit, h.onRevokeCredit),
		"bakiyeyukle": guard(access.OpTopUp, h.onTopUp),

		"adminekle": guard(access.OpManageAdmins, h.onAddAdmin),
		"adminsil":  guard(access.OpManageAdmins, h.onRemoveAdmin),
		"adminler":  guard(access.OpManageAdmins, h.onListAdmins),

		"grupekle": guard(access.OpManageGroups, h.onAddGroup),
		"grupsil":  guard(access.OpManageGroups, h.onRemoveGroup),
		"gruplar":  guard(access.OpManageGroups, h.onListGroups),
	}
}

var aliases = map[string]string{
	"help":   "yardim",
	"baslat": "start",
}

// ParseCommand разбирает "/cmd@bot arg1 arg2\nстрока\nстрока".
// Команда, адресованная другому боту, не распознаётся.
func ParseCommand(text, botUsername string) (cmd string, args, inline []string, ok bool) {
	text = strings.TrimLeft(text, " \t\r\n")
	if !strings.HasPrefix(text, "/") {
		return "", nil, nil, false
	}
	head, rest, _ := strings.Cut(text, "\n")
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return "", nil, nil, false
	}

	cmd = strings.TrimPrefix(fields[0], "/")
	if name, target, found := strings.Cut(cmd, "@"); found {
		if !strings.EqualFold(target, botUsername) {
			return "", nil, nil, false
		}
		cmd = name
	}
	cmd = strings.ToLower(cmd)
	if cmd == "" {
		return "", nil, nil, false
	}
	if alias, ok := aliases[cmd]; ok {
		cmd = alias
	}
	return cmd, fields[1:], intake.SplitLines(rest), true
}

func (h *Handler) OnMessage(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.From.IsBot {
		return
	}
	msg := update.Message

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if cmd, args, inline, ok := ParseCommand(text, h.botUsername); ok {
		if c, known := h.commands[cmd]; known {
			h.onCommand(ctx, msg, c, args, inline)
			return
		}
	}
	h.onFreeMessage(ctx, msg, text)
}

func (h *Handler) onCommand(ctx context.Context, msg *models.Message, c command, args, inline []string) {
	r := &request{msg: msg, args: args, inline: inline}

	if c.guarded {
		caller, err := h.authorize(ctx, msg, c.op)
		if err != nil {
			h.fail(ctx, msg.Chat.ID, "resolve caller", err)
			return
		}
		if caller == nil {
			return
		}
		r.caller = *caller
	}

	if err := c.run(ctx, r); err != nil {
		h.fail(ctx, msg.Chat.ID, "command", err)
	}
}

// authorize проверяет op для автора сообщения; nil без ошибки — отказ уже отправлен
func (h *Handler) authorize(ctx context.Context, msg *models.Message, op access.Operation) (*access.Caller, error) {
	caller, err := h.resolver.Resolve(ctx, msg.From.ID, msg.Chat.ID, isPrivate(msg))
	if err != nil {
		return nil, err
	}
	if d := access.Check(caller, op); !d.Allow {
		h.log.Debug("access denied",
			zap.Int64("user_id", msg.From.ID),
			zap.Int64("chat_id", msg.Chat.ID),
			zap.String("reason", string(d.Reason)))
		h.send(ctx, msg.Chat.ID, denyText(d.Reason))
		return nil, nil
	}
	return &caller, nil
}

// dialogueOps — операция, которой начат диалог в этом состоянии
var dialogueOps = map[session.State]access.Operation{
	session.StateAwaitingFields:     access.OpDefineForm,
	session.StateAwaitingValues:     access.OpEnterData,
	session.StateAwaitingAttachment: access.OpEnterData,
	session.StateAwaitingAmount:     access.OpTopUp,
}

func (h *Handler) onFreeMessage(ctx context.Context, msg *models.Message, text string) {
	key := session.Key{ChatID: msg.Chat.ID, UserID: msg.From.ID}

	// права перепроверяются на каждом шаге диалога
	st, err := h.engine.State(ctx, key)
	if err != nil {
		h.fail(ctx, msg.Chat.ID, "dialogue state", err)
		return
	}
	if op, ok := dialogueOps[st]; ok {
		caller, err := h.authorize(ctx, msg, op)
		if err != nil {
			h.fail(ctx, msg.Chat.ID, "resolve caller", err)
			return
		}
		if caller == nil {
			if _, err := h.engine.Cancel(ctx, key); err != nil {
				h.log.Warn("clear denied session", zap.Stringer("key", key), zap.Error(err))
			}
			return
		}
	}

	in := intake.Input{Key: key, Text: text, Attachment: attachmentOf(msg)}
	reply, err := h.engine.Handle(ctx, in)
	if err != nil {
		h.fail(ctx, msg.Chat.ID, "dialogue step", err)
		return
	}
	if reply.Kind == intake.ReplyAmountAccepted {
		h.openPayment(ctx, msg.Chat.ID, msg.From.ID, reply.Amount)
		return
	}
	h.sendReply(ctx, msg.Chat.ID, reply)
}

func isPrivate(msg *models.Message) bool {
	return msg.Chat.Type == models.ChatTypePrivate
}

// attachmentOf берёт самое большое фото или документ
func attachmentOf(msg *models.Message) *attach.Attachment {
	if n := len(msg.Photo); n > 0 {
		p := msg.Photo[n-1]
		return &attach.Attachment{FileID: p.FileID, Photo: true, Size: int64(p.FileSize)}
	}
	if d := msg.Document; d != nil {
		return &attach.Attachment{FileID: d.FileID, FileName: d.FileName, MimeType: d.MimeType, Size: d.FileSize}
	}
	return nil
}

func denyText(reason access.Reason) string {
	switch reason {
	case access.ReasonPrivateChat:
		return messages.MsgPrivateChat
	case access.ReasonGroupNotAuthorized:
		return messages.MsgGroupNotAuthorized
	case access.ReasonNotSuperAdmin:
		return messages.MsgNotSuperAdmin
	}
	return messages.MsgNotAdmin
}

// replyText переводит шаг диалога в текст; пустая строка — молчать
func (h *Handler) replyText(r intake.Reply) string {
	switch r.Kind {
	case intake.ReplyFieldsPrompt:
		return messages.FormatFieldsPrompt(r.FormName)
	case intake.ReplyFormExists:
		return messages.FormatFormExists(r.FormName)
	case intake.ReplyNoFields:
		return messages.MsgNoFields
	case intake.ReplyFormCreated:
		return messages.FormatFormCreated(r.FormName)
	case intake.ReplyValuesPrompt:
		return messages.FormatValuesPrompt(r.FormName, r.Fields)
	case intake.ReplyFormNotFound:
		return messages.FormatFormNotFound(r.FormName)
	case intake.ReplyMissingValues:
		return messages.FormatMissing(r.Missing)
	case intake.ReplyExtraValues:
		return messages.FormatExtra(r.Extra, r.Fields)
	case intake.ReplyAttachmentPrompt:
		return messages.FormatAttachmentPrompt(r.Fields[len(r.Fields)-1])
	case intake.ReplyAttachmentRejected:
		return messages.MsgAttachmentRejected
	case intake.ReplyUploadFailed:
		return messages.MsgUploadFailed
	case intake.ReplyAdmitted:
		return messages.FormatReceipt(r.SubmissionID, r.FormName, r.Fields, r.Values)
	case intake.ReplyInsufficientCredit:
		return messages.MsgInsufficientCredit
	case intake.ReplyDuplicate:
		return messages.MsgDuplicate
	case intake.ReplyCancelled:
		return messages.MsgCancelled
	case intake.ReplyNothingToCancel:
		return messages.MsgNothingToCancel
	case intake.ReplyAmountPrompt:
		return messages.FormatTopUpPrompt(r.Amount, h.cfg.CreditUnitPrice)
	case intake.ReplyAmountInvalid:
		return messages.MsgTopUpInvalid
	case intake.ReplyAmountBelowMin:
		return messages.FormatTopUpBelowMin(r.Amount)
	case intake.ReplyTopUpCancelled:
		return messages.MsgTopUpCancelled
	}
	return ""
}

func (h *Handler) sendReply(ctx context.Context, chatID int64, r intake.Reply) {
	if text := h.replyText(r); text != "" {
		h.send(ctx, chatID, text)
	}
}

// fail логирует инфраструктурную ошибку и отвечает общим сообщением
func (h *Handler) fail(ctx context.Context, chatID int64, op string, err error) {
	if errors.Is(err, admission.ErrChargedNotRecorded) {
		h.log.Error("charged but not recorded", zap.Int64("chat_id", chatID), zap.Error(err))
		tglog.Send("🚨 <b>Списание без записи</b>\nchat: <code>%d</code>\n%s", chatID, tglog.Escape(err.Error()))
		h.send(ctx, chatID, messages.MsgChargedNotRecorded)
		return
	}
	h.log.Error(op+" failed", zap.Int64("chat_id", chatID), zap.Error(err))
	h.send(ctx, chatID, messages.MsgError)
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	_, err := h.sender.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		h.log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
