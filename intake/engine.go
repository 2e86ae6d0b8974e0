// Package intake ведёт многошаговые диалоги: создание формы и ввод данных.
package intake

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/big"
	"slices"
	"sync"

	"go.uber.org/zap"

	"go_form_bot/admission"
	"go_form_bot/attach"
	"go_form_bot/database"
	"go_form_bot/session"
)

type FormStore interface {
	CreateForm(ctx context.Context, f database.Form) error
	GetForm(ctx context.Context, name string, groupID int64) (*database.Form, error)
	FindFormByOwner(ctx context.Context, name string, ownerID int64) (*database.Form, error)
}

type Admitter interface {
	Admit(ctx context.Context, req admission.Request) (admission.Result, error)
}

type ReplyKind int

const (
	ReplyIgnored ReplyKind = iota
	ReplyFieldsPrompt
	ReplyFormExists
	ReplyNoFields
	ReplyFormCreated
	ReplyValuesPrompt
	ReplyFormNotFound
	ReplyMissingValues
	ReplyExtraValues
	ReplyAttachmentPrompt
	ReplyAttachmentRejected
	ReplyUploadFailed
	ReplyAdmitted
	ReplyInsufficientCredit
	ReplyDuplicate
	ReplyCancelled
	ReplyNothingToCancel
	ReplyAmountPrompt
	ReplyAmountInvalid
	ReplyAmountBelowMin
	ReplyAmountAccepted
	ReplyTopUpCancelled
)

// Reply — результат шага диалога; текст собирает транспорт
type Reply struct {
	Kind         ReplyKind
	FormName     string
	Fields       []string
	Missing      []string
	Extra        int
	Values       []string
	SubmissionID int64
	// Amount — принятая сумма пополнения или минимум для ReplyAmountBelowMin
	Amount *big.Rat
}

// Input — свободное сообщение пользователя
type Input struct {
	Key        session.Key
	Text       string
	Attachment *attach.Attachment
}

type Engine struct {
	forms    FormStore
	admitter Admitter
	uploader attach.Uploader
	sessions session.Store
	log      *zap.Logger
	minTopUp *big.Rat

	locks [64]sync.Mutex
}

type Option func(*Engine)

// WithTopUpMinimum задаёт минимальную сумму пополнения
func WithTopUpMinimum(min *big.Rat) Option {
	return func(e *Engine) {
		if min != nil {
			e.minTopUp = min
		}
	}
}

func New(forms FormStore, admitter Admitter, uploader attach.Uploader, sessions session.Store, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		forms:    forms,
		admitter: admitter,
		uploader: uploader,
		sessions: sessions,
		log:      log.Named("intake"),
		minTopUp: big.NewRat(500, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lock сериализует шаги одного ключа сессии
func (e *Engine) lock(key session.Key) func() {
	h := fnv.New64a()
	fmt.Fprint(h, key.String())
	mu := &e.locks[h.Sum64()%uint64(len(e.locks))]
	mu.Lock()
	return mu.Unlock
}

func (e *Engine) current(ctx context.Context, key session.Key) (*session.Session, error) {
	s, err := e.sessions.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", key, err)
	}
	return s, nil
}

func stateOf(s *session.Session) session.State {
	if s == nil {
		return session.StateIdle
	}
	return s.State
}

func (e *Engine) save(ctx context.Context, key session.Key, s *session.Session) error {
	if s.State == session.StateIdle {
		return e.sessions.Clear(ctx, key)
	}
	return e.sessions.Set(ctx, key, s)
}

// State — текущее состояние диалога ключа, StateIdle без сессии
func (e *Engine) State(ctx context.Context, key session.Key) (session.State, error) {
	s, err := e.current(ctx, key)
	if err != nil {
		return "", err
	}
	return stateOf(s), nil
}

// ResolveForm ищет форму в группе чата, затем среди форм вызывающего админа
func ResolveForm(ctx context.Context, forms FormStore, name string, groupID, callerID int64) (*database.Form, error) {
	f, err := forms.GetForm(ctx, name, groupID)
	if err == nil || !errors.Is(err, database.ErrFormNotFound) {
		return f, err
	}
	return forms.FindFormByOwner(ctx, name, callerID)
}

// Define начинает создание формы name в группе groupID
func (e *Engine) Define(ctx context.Context, key session.Key, name string, groupID int64) (Reply, error) {
	defer e.lock(key)()

	name = NormalizeName(name)
	for _, lookup := range []func() (*database.Form, error){
		func() (*database.Form, error) { return e.forms.FindFormByOwner(ctx, name, key.UserID) },
		func() (*database.Form, error) { return e.forms.GetForm(ctx, name, groupID) },
	} {
		_, err := lookup()
		if err == nil {
			return Reply{Kind: ReplyFormExists, FormName: name}, nil
		}
		if !errors.Is(err, database.ErrFormNotFound) {
			return Reply{}, fmt.Errorf("check form %s: %w", name, err)
		}
	}

	s, err := e.current(ctx, key)
	if err != nil {
		return Reply{}, err
	}
	st, err := next(ctx, stateOf(s), evDefine)
	if err != nil {
		return Reply{}, err
	}
	if err := e.save(ctx, key, &session.Session{State: st, FormName: name, GroupID: groupID}); err != nil {
		return Reply{}, fmt.Errorf("save session %s: %w", key, err)
	}
	return Reply{Kind: ReplyFieldsPrompt, FormName: name}, nil
}

// Enter начинает ввод данных; inline — значения из самого сообщения с командой
func (e *Engine) Enter(ctx context.Context, key session.Key, name string, inline []string) (Reply, error) {
	defer e.lock(key)()

	name = NormalizeName(name)
	form, err := ResolveForm(ctx, e.forms, name, key.ChatID, key.UserID)
	if errors.Is(err, database.ErrFormNotFound) {
		return Reply{Kind: ReplyFormNotFound, FormName: name}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("resolve form %s: %w", name, err)
	}

	s, err := e.current(ctx, key)
	if err != nil {
		return Reply{}, err
	}
	st, err := next(ctx, stateOf(s), evEnter)
	if err != nil {
		return Reply{}, err
	}
	ns := &session.Session{State: st, FormName: form.Name, GroupID: form.GroupID, Fields: form.Fields}

	if len(inline) == 0 {
		if err := e.save(ctx, key, ns); err != nil {
			return Reply{}, fmt.Errorf("save session %s: %w", key, err)
		}
		return Reply{Kind: ReplyValuesPrompt, FormName: form.Name, Fields: form.Fields}, nil
	}
	return e.values(ctx, key, ns, form, inline)
}

// Cancel сбрасывает диалог без побочных эффектов
func (e *Engine) Cancel(ctx context.Context, key session.Key) (Reply, error) {
	defer e.lock(key)()
	return e.cancel(ctx, key)
}

func (e *Engine) cancel(ctx context.Context, key session.Key) (Reply, error) {
	s, err := e.current(ctx, key)
	if err != nil {
		return Reply{}, err
	}
	if s == nil {
		return Reply{Kind: ReplyNothingToCancel}, nil
	}
	if _, err := next(ctx, s.State, evCancel); err != nil {
		return Reply{}, err
	}
	if err := e.sessions.Clear(ctx, key); err != nil {
		return Reply{}, fmt.Errorf("clear session %s: %w", key, err)
	}
	if s.State == session.StateAwaitingAmount {
		return Reply{Kind: ReplyTopUpCancelled}, nil
	}
	return Reply{Kind: ReplyCancelled, FormName: s.FormName}, nil
}

// Handle продвигает диалог свободным сообщением.
// Без активного диалога сообщение, включая «iptal», игнорируется.
func (e *Engine) Handle(ctx context.Context, in Input) (Reply, error) {
	defer e.lock(in.Key)()

	s, err := e.current(ctx, in.Key)
	if err != nil {
		return Reply{}, err
	}
	if s == nil {
		return Reply{Kind: ReplyIgnored}, nil
	}
	if IsCancel(in.Text) {
		return e.cancel(ctx, in.Key)
	}

	switch s.State {
	case session.StateAwaitingFields:
		return e.fields(ctx, in.Key, s, in.Text)

	case session.StateAwaitingValues:
		values := SplitLines(in.Text)
		if len(values) == 0 {
			return Reply{Kind: ReplyValuesPrompt, FormName: s.FormName, Fields: s.Fields}, nil
		}
		form, ok, err := e.sessionForm(ctx, in.Key, s)
		if !ok || err != nil {
			return Reply{Kind: ReplyFormNotFound, FormName: s.FormName}, err
		}
		return e.values(ctx, in.Key, s, form, values)

	case session.StateAwaitingAttachment:
		return e.attachment(ctx, in, s)

	case session.StateAwaitingAmount:
		return e.amount(ctx, in.Key, s, in.Text)
	}
	return Reply{Kind: ReplyIgnored}, nil
}

// TopUp начинает диалог пополнения баланса
func (e *Engine) TopUp(ctx context.Context, key session.Key) (Reply, error) {
	defer e.lock(key)()

	s, err := e.current(ctx, key)
	if err != nil {
		return Reply{}, err
	}
	st, err := next(ctx, stateOf(s), evTopUp)
	if err != nil {
		return Reply{}, err
	}
	if err := e.save(ctx, key, &session.Session{State: st}); err != nil {
		return Reply{}, fmt.Errorf("save session %s: %w", key, err)
	}
	return Reply{Kind: ReplyAmountPrompt, Amount: e.minTopUp}, nil
}

// amount принимает сумму с точностью до копейки не меньше минимума;
// при ошибке ввода диалог продолжается
func (e *Engine) amount(ctx context.Context, key session.Key, s *session.Session, text string) (Reply, error) {
	amount, err := database.ParseDecimal(text)
	if err != nil || amount.Sign() <= 0 || !new(big.Rat).Mul(amount, big.NewRat(100, 1)).IsInt() {
		return Reply{Kind: ReplyAmountInvalid}, nil
	}
	if amount.Cmp(e.minTopUp) < 0 {
		return Reply{Kind: ReplyAmountBelowMin, Amount: e.minTopUp}, nil
	}

	st, err := next(ctx, s.State, evAmountDone)
	if err != nil {
		return Reply{}, err
	}
	if err := e.save(ctx, key, &session.Session{State: st}); err != nil {
		return Reply{}, fmt.Errorf("clear session %s: %w", key, err)
	}
	return Reply{Kind: ReplyAmountAccepted, Amount: amount}, nil
}

func (e *Engine) fields(ctx context.Context, key session.Key, s *session.Session, text string) (Reply, error) {
	fields := SplitLines(text)
	if len(fields) == 0 {
		return Reply{Kind: ReplyNoFields, FormName: s.FormName}, nil
	}

	st, err := next(ctx, s.State, evFieldsSaved)
	if err != nil {
		return Reply{}, err
	}
	err = e.forms.CreateForm(ctx, database.Form{
		Name:      s.FormName,
		GroupID:   s.GroupID,
		Fields:    fields,
		CreatedBy: key.UserID,
	})
	if errors.Is(err, database.ErrFormExists) {
		// форму успели создать параллельно
		if err := e.sessions.Clear(ctx, key); err != nil {
			return Reply{}, fmt.Errorf("clear session %s: %w", key, err)
		}
		return Reply{Kind: ReplyFormExists, FormName: s.FormName}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("create form %s: %w", s.FormName, err)
	}

	e.log.Info("form created",
		zap.String("form", s.FormName),
		zap.Int64("group_id", s.GroupID),
		zap.Int64("admin_id", key.UserID),
		zap.Int("fields", len(fields)))

	if err := e.save(ctx, key, &session.Session{State: st}); err != nil {
		return Reply{}, fmt.Errorf("clear session %s: %w", key, err)
	}
	return Reply{Kind: ReplyFormCreated, FormName: s.FormName, Fields: fields}, nil
}

// sessionForm перечитывает форму сессии: её могли удалить, пока шёл диалог
func (e *Engine) sessionForm(ctx context.Context, key session.Key, s *session.Session) (*database.Form, bool, error) {
	form, err := e.forms.GetForm(ctx, s.FormName, s.GroupID)
	if errors.Is(err, database.ErrFormNotFound) {
		if err := e.sessions.Clear(ctx, key); err != nil {
			return nil, false, fmt.Errorf("clear session %s: %w", key, err)
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load form %s: %w", s.FormName, err)
	}
	return form, true, nil
}

// values проверяет количество значений и либо ждёт вложение, либо передаёт заявку на приём
func (e *Engine) values(ctx context.Context, key session.Key, s *session.Session, form *database.Form, values []string) (Reply, error) {
	check := CheckCount(form.Fields, values)

	switch {
	case check.AwaitAttachment:
		st, err := next(ctx, s.State, evNeedAttachment)
		if err != nil {
			return Reply{}, err
		}
		s.State = st
		s.Pending = slices.Clone(values)
		if err := e.save(ctx, key, s); err != nil {
			return Reply{}, fmt.Errorf("save session %s: %w", key, err)
		}
		return Reply{Kind: ReplyAttachmentPrompt, FormName: form.Name, Fields: form.Fields}, nil

	case len(check.Missing) > 0 || check.Extra > 0:
		// остаёмся в ожидании значений
		if err := e.save(ctx, key, s); err != nil {
			return Reply{}, fmt.Errorf("save session %s: %w", key, err)
		}
		kind := ReplyMissingValues
		if check.Extra > 0 {
			kind = ReplyExtraValues
		}
		return Reply{Kind: kind, FormName: form.Name, Fields: form.Fields, Missing: check.Missing, Extra: check.Extra}, nil
	}

	return e.admit(ctx, key, s, form, values)
}

func (e *Engine) attachment(ctx context.Context, in Input, s *session.Session) (Reply, error) {
	if in.Attachment == nil || !in.Attachment.Accepted() {
		return Reply{Kind: ReplyAttachmentRejected, FormName: s.FormName}, nil
	}

	form, ok, err := e.sessionForm(ctx, in.Key, s)
	if !ok || err != nil {
		return Reply{Kind: ReplyFormNotFound, FormName: s.FormName}, err
	}

	ref, err := e.uploader.Upload(ctx, form.Name, *in.Attachment)
	if err != nil {
		e.log.Warn("attachment upload failed",
			zap.String("form", form.Name),
			zap.String("file_id", in.Attachment.FileID),
			zap.Error(err))
		return Reply{Kind: ReplyUploadFailed, FormName: form.Name}, nil
	}

	values := append(slices.Clone(s.Pending), ref)
	return e.admit(ctx, in.Key, s, form, values)
}

func (e *Engine) admit(ctx context.Context, key session.Key, s *session.Session, form *database.Form, values []string) (Reply, error) {
	st, err := next(ctx, s.State, evFinish)
	if err != nil {
		return Reply{}, err
	}

	res, err := e.admitter.Admit(ctx, admission.Request{
		Form:   *form,
		Values: values,
		UserID: key.UserID,
		ChatID: key.ChatID,
	})
	if errors.Is(err, admission.ErrChargedNotRecorded) {
		// повтор мог бы списать второй раз, поэтому диалог закрывается
		if cerr := e.sessions.Clear(ctx, key); cerr != nil {
			e.log.Warn("clear session", zap.Stringer("key", key), zap.Error(cerr))
		}
		return Reply{}, err
	}
	if err != nil {
		return Reply{}, err
	}

	if err := e.save(ctx, key, &session.Session{State: st}); err != nil {
		return Reply{}, fmt.Errorf("clear session %s: %w", key, err)
	}

	reply := Reply{FormName: form.Name, Fields: form.Fields, Values: values}
	switch res.Outcome {
	case admission.OutcomeAdmitted:
		reply.Kind = ReplyAdmitted
		reply.SubmissionID = res.SubmissionID
	case admission.OutcomeInsufficientCredit:
		reply.Kind = ReplyInsufficientCredit
	case admission.OutcomeDuplicate:
		reply.Kind = ReplyDuplicate
	}
	return reply, nil
}
