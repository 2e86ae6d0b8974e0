// Package admission принимает заполненную заявку: списание, проверка дубля и
// запись выполняются как одна единица работы.
package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"go_form_bot/database"
)

// ErrChargedNotRecorded — списание прошло, но исход записи неизвестен
var ErrChargedNotRecorded = errors.New("charged but not recorded")

type Outcome int

const (
	OutcomeAdmitted Outcome = iota
	OutcomeInsufficientCredit
	OutcomeDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdmitted:
		return "admitted"
	case OutcomeInsufficientCredit:
		return "insufficient_credit"
	case OutcomeDuplicate:
		return "duplicate"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

type Store interface {
	RunAdmission(ctx context.Context, fn func(database.AdmissionTx) error) error
}

type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Fingerprint(payload string) []byte
}

type Request struct {
	Form   database.Form
	Values []string
	UserID int64
	ChatID int64
}

type Result struct {
	Outcome      Outcome
	SubmissionID int64
	Charged      bool
}

type Options struct {
	// Cost — списание за одну заявку
	Cost database.Credits
	// ChargeDuplicates сохраняет исходный порядок: сначала списание, потом проверка дубля
	ChargeDuplicates bool
}

type Protocol struct {
	store  Store
	sealer Sealer
	opts   Options
	log    *zap.Logger
}

func New(store Store, sealer Sealer, opts Options, log *zap.Logger) *Protocol {
	if opts.Cost <= 0 {
		opts.Cost = database.Rights(1)
	}
	return &Protocol{store: store, sealer: sealer, opts: opts, log: log.Named("admission")}
}

// Payload — каноническое содержимое: значения в порядке полей через \n
func Payload(values []string) string {
	return strings.Join(values, "\n")
}

func (p *Protocol) Admit(ctx context.Context, req Request) (Result, error) {
	payload := Payload(req.Values)
	fingerprint := p.sealer.Fingerprint(payload)
	data, err := p.sealer.Seal([]byte(payload))
	if err != nil {
		return Result{}, fmt.Errorf("seal payload: %w", err)
	}

	form := req.Form
	var res Result
	err = p.store.RunAdmission(ctx, func(tx database.AdmissionTx) error {
		res = Result{}

		if !p.opts.ChargeDuplicates {
			dup, err := tx.SubmissionExists(ctx, form.Name, form.GroupID, fingerprint)
			if err != nil {
				return err
			}
			if dup {
				res.Outcome = OutcomeDuplicate
				return nil
			}
		}

		ok, err := tx.Debit(ctx, form.CreatedBy, p.opts.Cost)
		if err != nil {
			return err
		}
		if !ok {
			res.Outcome = OutcomeInsufficientCredit
			return nil
		}
		res.Charged = true

		if p.opts.ChargeDuplicates {
			dup, err := tx.SubmissionExists(ctx, form.Name, form.GroupID, fingerprint)
			if err != nil {
				return err
			}
			if dup {
				// списание фиксируется вместе с отказом
				res.Outcome = OutcomeDuplicate
				return nil
			}
		}

		id, inserted, err := tx.InsertSubmission(ctx, database.NewSubmission{
			FormName:    form.Name,
			GroupID:     form.GroupID,
			UserID:      req.UserID,
			ChatID:      req.ChatID,
			Data:        data,
			Fingerprint: fingerprint,
		})
		if err != nil {
			return err
		}
		if !inserted {
			// параллельная заявка с тем же содержимым успела раньше
			res.Outcome = OutcomeDuplicate
			if !p.opts.ChargeDuplicates {
				return errRefund
			}
			return nil
		}
		res.Outcome = OutcomeAdmitted
		res.SubmissionID = id
		return nil
	})

	if errors.Is(err, errRefund) {
		return Result{Outcome: OutcomeDuplicate}, nil
	}
	if err != nil {
		if res.Charged && errors.Is(err, database.ErrCommit) {
			p.log.Error("submission charged but not recorded",
				zap.String("form", form.Name),
				zap.Int64("group_id", form.GroupID),
				zap.Int64("admin_id", form.CreatedBy),
				zap.Error(err))
			return res, fmt.Errorf("%w: %v", ErrChargedNotRecorded, err)
		}
		return Result{}, fmt.Errorf("admit %s: %w", form.Name, err)
	}

	p.log.Info("submission processed",
		zap.String("form", form.Name),
		zap.Int64("group_id", form.GroupID),
		zap.Int64("user_id", req.UserID),
		zap.Stringer("outcome", res.Outcome),
		zap.Int64("submission_id", res.SubmissionID))
	return res, nil
}

// errRefund откатывает транзакцию, когда дубль обнаружен после списания в режиме без оплаты дублей
var errRefund = errors.New("duplicate after debit")
