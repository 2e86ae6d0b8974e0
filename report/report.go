// Package report собирает Excel-выгрузку заявок формы за период.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"go_form_bot/database"
	"go_form_bot/messages"
)

const dayLayout = "02.01.2006"

var (
	ErrNoData      = errors.New("no submissions in range")
	ErrInvalidDate = errors.New("invalid date, expected GG.AA.YYYY")
)

type Store interface {
	FindFormByOwner(ctx context.Context, name string, ownerID int64) (*database.Form, error)
	ListForms(ctx context.Context, filter database.FormFilter) ([]database.Form, error)
	ReportSubmissions(ctx context.Context, q database.ReportQuery) ([]database.Submission, error)
}

type Opener interface {
	Open(data []byte) ([]byte, error)
}

type Range struct {
	From time.Time
	To   time.Time
	// Explicit — период задан пользователем, а не "сегодня"
	Explicit bool
}

// ParseRange разбирает пару дат GG.AA.YYYY; без аргументов — текущий день
func ParseRange(args []string, now time.Time) (Range, error) {
	loc := now.Location()
	if len(args) < 2 {
		y, m, d := now.Date()
		from := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return Range{From: from, To: endOfDay(from)}, nil
	}
	from, err := time.ParseInLocation(dayLayout, args[0], loc)
	if err != nil {
		return Range{}, ErrInvalidDate
	}
	to, err := time.ParseInLocation(dayLayout, args[1], loc)
	if err != nil {
		return Range{}, ErrInvalidDate
	}
	if to.Before(from) {
		from, to = to, from
	}
	return Range{From: from, To: endOfDay(to), Explicit: true}, nil
}

func endOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

type Request struct {
	FormName   string
	CallerID   int64
	SuperAdmin bool
	Range      Range
}

type Report struct {
	FileName string
	Caption  string
	Rows     int
	Data     []byte
}

type Service struct {
	store  Store
	opener Opener
	log    *zap.Logger
}

func NewService(store Store, opener Opener, log *zap.Logger) *Service {
	return &Service{store: store, opener: opener, log: log.Named("report")}
}

func (s *Service) Build(ctx context.Context, req Request) (*Report, error) {
	form, err := s.form(ctx, req)
	if err != nil {
		return nil, err
	}

	q := database.ReportQuery{FormName: form.Name, From: req.Range.From, To: req.Range.To}
	if !req.SuperAdmin {
		q.OwnerID = req.CallerID
	}
	subs, err := s.store.ReportSubmissions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load submissions %s: %w", form.Name, err)
	}
	if len(subs) == 0 {
		return nil, ErrNoData
	}

	rows := make([]Row, 0, len(subs))
	for _, sub := range subs {
		plain, err := s.opener.Open(sub.Data)
		if err != nil {
			// повреждённая запись не должна ломать весь отчёт
			s.log.Warn("skip undecryptable submission", zap.Int64("id", sub.ID), zap.Error(err))
			continue
		}
		rows = append(rows, Row{ID: sub.ID, Values: strings.Split(string(plain), "\n"), CreatedAt: sub.CreatedAt})
	}

	buf, err := Render(form.Name, form.Fields, rows)
	if err != nil {
		return nil, err
	}
	return &Report{
		FileName: FileName(form.Name, req.Range),
		Caption:  Caption(form.Name, req.Range),
		Rows:     len(rows),
		Data:     buf.Bytes(),
	}, nil
}

func (s *Service) form(ctx context.Context, req Request) (*database.Form, error) {
	if !req.SuperAdmin {
		return s.store.FindFormByOwner(ctx, req.FormName, req.CallerID)
	}
	forms, err := s.store.ListForms(ctx, database.FormFilter{All: true})
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	for i := range forms {
		if forms[i].Name == req.FormName {
			return &forms[i], nil
		}
	}
	return nil, database.ErrFormNotFound
}

func FileName(formName string, r Range) string {
	name := formName + "_rapor"
	if r.Explicit {
		name += "_" + r.From.Format("02012006") + "-" + r.To.Format("02012006")
	}
	return name + ".xlsx"
}

func Caption(formName string, r Range) string {
	c := "📊 " + messages.Title(formName) + " Raporu"
	if r.Explicit {
		c += " (" + r.From.Format(dayLayout) + " - " + r.To.Format(dayLayout) + ")"
	}
	return c
}
