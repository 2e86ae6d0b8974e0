// Package session хранит состояние многошаговых диалогов по паре (чат, пользователь).
package session

import (
	"context"
	"fmt"
	"time"
)

type State string

const (
	StateIdle               State = "idle"
	StateAwaitingFields     State = "awaiting_fields"
	StateAwaitingValues     State = "awaiting_values"
	StateAwaitingAttachment State = "awaiting_attachment"
	StateAwaitingAmount     State = "awaiting_amount"
)

type Key struct {
	ChatID int64
	UserID int64
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.ChatID, k.UserID)
}

type Session struct {
	State    State  `json:"state"`
	FormName string `json:"form_name,omitempty"`
	GroupID  int64  `json:"group_id,omitempty"`
	// Fields — поля формы, для которой идёт ввод
	Fields []string `json:"fields,omitempty"`
	// Pending — уже введённые значения в ожидании вложения
	Pending   []string  `json:"pending,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store — Get возвращает nil без ошибки, если сессии нет или она истекла
type Store interface {
	Get(ctx context.Context, key Key) (*Session, error)
	Set(ctx context.Context, key Key, s *Session) error
	Clear(ctx context.Context, key Key) error
}
