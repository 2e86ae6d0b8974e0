package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"go_form_bot/session"
)

const (
	evDefine         = "define"
	evEnter          = "enter"
	evFieldsSaved    = "fields_saved"
	evNeedAttachment = "need_attachment"
	evFinish         = "finish"
	evCancel         = "cancel"
	evTopUp          = "topup"
	evAmountDone     = "amount_done"
)

var (
	stIdle       = string(session.StateIdle)
	stFields     = string(session.StateAwaitingFields)
	stValues     = string(session.StateAwaitingValues)
	stAttachment = string(session.StateAwaitingAttachment)
	stAmount     = string(session.StateAwaitingAmount)

	anyState = []string{stIdle, stFields, stValues, stAttachment, stAmount}
)

// Повторная команда из любого состояния заменяет текущий диалог
var transitions = fsm.Events{
	{Name: evDefine, Src: anyState, Dst: stFields},
	{Name: evEnter, Src: anyState, Dst: stValues},
	{Name: evFieldsSaved, Src: []string{stFields}, Dst: stIdle},
	{Name: evNeedAttachment, Src: []string{stValues}, Dst: stAttachment},
	{Name: evFinish, Src: []string{stValues, stAttachment}, Dst: stIdle},
	{Name: evTopUp, Src: anyState, Dst: stAmount},
	{Name: evAmountDone, Src: []string{stAmount}, Dst: stIdle},
	{Name: evCancel, Src: anyState, Dst: stIdle},
}

// next применяет событие к состоянию; переход в то же состояние не ошибка
func next(ctx context.Context, from session.State, event string) (session.State, error) {
	if from == "" {
		from = session.StateIdle
	}
	m := fsm.NewFSM(string(from), transitions, nil)
	if err := m.Event(ctx, event); err != nil {
		var same fsm.NoTransitionError
		if !errors.As(err, &same) {
			return from, fmt.Errorf("%s from %s: %w", event, from, err)
		}
	}
	return session.State(m.Current()), nil
}
