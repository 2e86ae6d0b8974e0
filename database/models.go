package database

import (
	"errors"
	"time"
)

var (
	ErrFormExists    = errors.New("form already exists")
	ErrFormNotFound  = errors.New("form not found")
	ErrGroupExists   = errors.New("group already exists")
	ErrGroupNotFound = errors.New("group not found")
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrCommit — исход транзакции неизвестен: списание могло пройти без записи
	ErrCommit = errors.New("commit failed")
)

type Group struct {
	ID      int64
	Name    string
	AddedBy int64
	AddedAt time.Time
}

type Admin struct {
	UserID  int64
	Name    string
	AddedBy int64
	Credits Credits
	AddedAt time.Time
}

// Form — поля позиционные, порядок не меняется после создания
type Form struct {
	Name      string
	GroupID   int64
	Fields    []string
	CreatedBy int64
	CreatedAt time.Time
}

type Submission struct {
	ID          int64
	FormName    string
	GroupID     int64
	UserID      int64
	ChatID      int64
	Data        []byte
	Fingerprint []byte
	CreatedAt   time.Time
}

// NewSubmission — зашифрованная заявка до вставки
type NewSubmission struct {
	FormName    string
	GroupID     int64
	UserID      int64
	ChatID      int64
	Data        []byte
	Fingerprint []byte
}

// Payment — Amount хранится в записи шлюза, без перевода в float
type Payment struct {
	ID        int64
	PaymentID string
	AdminID   int64
	AdminName string
	Amount    string
	Currency  string
	Credited  Credits
	CreatedAt time.Time
}

// ReportQuery — OwnerID == 0 означает все группы (суперадмин)
type ReportQuery struct {
	FormName string
	OwnerID  int64
	From     time.Time
	To       time.Time
}

