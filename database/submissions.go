package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AdmissionTx — операции, которые протокол приёма выполняет как одну единицу работы
type AdmissionTx interface {
	Debit(ctx context.Context, adminID int64, amount Credits) (bool, error)
	SubmissionExists(ctx context.Context, formName string, groupID int64, fingerprint []byte) (bool, error)
	// InsertSubmission возвращает false, если такой отпечаток уже записан
	InsertSubmission(ctx context.Context, s NewSubmission) (int64, bool, error)
}

type admissionTx struct {
	tx pgx.Tx
}

// RunAdmission выполняет fn в одной транзакции: списание и вставка
// фиксируются вместе или не фиксируются вовсе.
func (db *DB) RunAdmission(ctx context.Context, fn func(AdmissionTx) error) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		return fn(&admissionTx{tx: tx})
	})
}

func (a *admissionTx) Debit(ctx context.Context, adminID int64, amount Credits) (bool, error) {
	if err := ValidateAmount(amount); err != nil {
		return false, err
	}
	return debit(ctx, a.tx, adminID, amount)
}

func (a *admissionTx) SubmissionExists(ctx context.Context, formName string, groupID int64, fingerprint []byte) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM form_submissions
			WHERE form_name = $1 AND group_id = $2 AND fingerprint = $3
		)`
	var ok bool
	if err := a.tx.QueryRow(ctx, query, formName, groupID, fingerprint).Scan(&ok); err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return ok, nil
}

func (a *admissionTx) InsertSubmission(ctx context.Context, s NewSubmission) (int64, bool, error) {
	query := `
		INSERT INTO form_submissions (form_name, group_id, user_id, chat_id, data, fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (form_name, group_id, fingerprint) DO NOTHING
		RETURNING id`

	var id int64
	err := a.tx.QueryRow(ctx, query, s.FormName, s.GroupID, s.UserID, s.ChatID, s.Data, s.Fingerprint).Scan(&id)
	if isNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert submission: %w", err)
	}
	return id, true, nil
}

// ============================================
// Submissions
// ============================================

// ReportSubmissions возвращает заявки формы за [From, To] по возрастанию id
func (db *DB) ReportSubmissions(ctx context.Context, q ReportQuery) ([]Submission, error) {
	query := `
		SELECT s.id, s.form_name, s.group_id, s.user_id, s.chat_id, s.data, s.fingerprint, s.created_at
		FROM form_submissions s
		JOIN forms f ON f.form_name = s.form_name AND f.group_id = s.group_id
		WHERE s.form_name = $1
		  AND ($2::bigint = 0 OR f.created_by = $2::bigint)
		  AND s.created_at BETWEEN $3 AND $4
		ORDER BY s.id ASC`

	rows, err := db.Pool.Query(ctx, query, q.FormName, q.OwnerID, q.From, q.To)
	if err != nil {
		return nil, fmt.Errorf("report query: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.FormName, &s.GroupID, &s.UserID, &s.ChatID, &s.Data, &s.Fingerprint, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (db *DB) GetSubmission(ctx context.Context, id int64) (*Submission, error) {
	query := `
		SELECT id, form_name, group_id, user_id, chat_id, data, fingerprint, created_at
		FROM form_submissions
		WHERE id = $1`

	var s Submission
	err := db.Pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.FormName, &s.GroupID, &s.UserID, &s.ChatID, &s.Data, &s.Fingerprint, &s.CreatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) DeleteSubmission(ctx context.Context, id int64) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM form_submissions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
