package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// FormFilter — All игнорирует остальные условия
type FormFilter struct {
	GroupID int64
	OwnerID int64
	All     bool
}

const formColumns = `form_name, group_id, fields, created_by, created_at`

func (db *DB) CreateForm(ctx context.Context, f Form) error {
	query := `
		INSERT INTO forms (form_name, group_id, fields, created_by)
		VALUES ($1, $2, $3, $4)`
	_, err := db.Pool.Exec(ctx, query, f.Name, f.GroupID, f.Fields, f.CreatedBy)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrFormExists
	}
	return err
}

func (db *DB) GetForm(ctx context.Context, name string, groupID int64) (*Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE form_name = $1 AND group_id = $2`

	var f Form
	err := db.Pool.QueryRow(ctx, query, name, groupID).Scan(
		&f.Name, &f.GroupID, &f.Fields, &f.CreatedBy, &f.CreatedAt,
	)
	if isNoRows(err) {
		return nil, ErrFormNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FindFormByOwner — имя формы уникально в пределах админа
func (db *DB) FindFormByOwner(ctx context.Context, name string, ownerID int64) (*Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE form_name = $1 AND created_by = $2 ORDER BY created_at LIMIT 1`

	var f Form
	err := db.Pool.QueryRow(ctx, query, name, ownerID).Scan(
		&f.Name, &f.GroupID, &f.Fields, &f.CreatedBy, &f.CreatedAt,
	)
	if isNoRows(err) {
		return nil, ErrFormNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (db *DB) ListForms(ctx context.Context, filter FormFilter) ([]Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE group_id = $1 OR created_by = $2 ORDER BY form_name`
	args := []any{filter.GroupID, filter.OwnerID}
	if filter.All {
		query = `SELECT ` + formColumns + ` FROM forms ORDER BY form_name`
		args = nil
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forms []Form
	for rows.Next() {
		var f Form
		if err := rows.Scan(&f.Name, &f.GroupID, &f.Fields, &f.CreatedBy, &f.CreatedAt); err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

// DeleteForm удаляет форму вместе с заявками (ON DELETE CASCADE)
func (db *DB) DeleteForm(ctx context.Context, name string, groupID int64) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM forms WHERE form_name = $1 AND group_id = $2`, name, groupID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
