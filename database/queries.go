package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ============================================
// Groups
// ============================================

// AddGroup регистрирует группу; addedBy != 0 привязывает её к админу
func (db *DB) AddGroup(ctx context.Context, id int64, name string, addedBy int64) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO groups (group_id, group_name, added_by)
			VALUES ($1, $2, $3)
			ON CONFLICT (group_id) DO NOTHING`, id, name, addedBy)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrGroupExists
		}
		if addedBy == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO admin_groups (admin_id, group_id)
			SELECT $1, $2 WHERE EXISTS (SELECT 1 FROM group_admins WHERE user_id = $1)
			ON CONFLICT DO NOTHING`, addedBy, id)
		return err
	})
}

func (db *DB) GetGroup(ctx context.Context, id int64) (*Group, error) {
	query := `
		SELECT group_id, group_name, added_by, added_at
		FROM groups
		WHERE group_id = $1`

	var g Group
	err := db.Pool.QueryRow(ctx, query, id).Scan(&g.ID, &g.Name, &g.AddedBy, &g.AddedAt)
	if isNoRows(err) {
		return nil, ErrGroupNotFound
	}
	return &g, err
}

// ListGroups — adminID == 0 возвращает все группы
func (db *DB) ListGroups(ctx context.Context, adminID int64) ([]Group, error) {
	query := `
		SELECT g.group_id, g.group_name, g.added_by, g.added_at
		FROM groups g
		ORDER BY g.added_at`
	args := []any{}
	if adminID != 0 {
		query = `
			SELECT g.group_id, g.group_name, g.added_by, g.added_at
			FROM groups g
			JOIN admin_groups ag ON ag.group_id = g.group_id
			WHERE ag.admin_id = $1
			ORDER BY g.added_at`
		args = append(args, adminID)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.AddedBy, &g.AddedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// RemoveGroup отвязывает группу от админа и удаляет её, когда управляющих не осталось.
// adminID == 0 удаляет группу без проверок.
func (db *DB) RemoveGroup(ctx context.Context, id int64, adminID int64) (bool, error) {
	removed := false
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		if adminID != 0 {
			tag, err := tx.Exec(ctx, `DELETE FROM admin_groups WHERE admin_id = $1 AND group_id = $2`, adminID, id)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			var left int
			if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM admin_groups WHERE group_id = $1`, id).Scan(&left); err != nil {
				return err
			}
			removed = true
			if left > 0 {
				return nil
			}
		}
		tag, err := tx.Exec(ctx, `DELETE FROM groups WHERE group_id = $1`, id)
		if err != nil {
			return err
		}
		removed = removed || tag.RowsAffected() > 0
		return nil
	})
	return removed, err
}

func (db *DB) IsAuthorizedGroup(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM groups WHERE group_id = $1)`, id).Scan(&ok)
	return ok, err
}

// ============================================
// Admins
// ============================================

func (db *DB) AddAdmin(ctx context.Context, userID int64, name string, addedBy int64) error {
	query := `
		INSERT INTO group_admins (user_id, admin_name, added_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			admin_name = COALESCE(NULLIF(EXCLUDED.admin_name, ''), group_admins.admin_name)`
	_, err := db.Pool.Exec(ctx, query, userID, name, addedBy)
	return err
}

func (db *DB) RemoveAdmin(ctx context.Context, userID int64) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM group_admins WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (db *DB) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM group_admins WHERE user_id = $1)`, userID).Scan(&ok)
	return ok, err
}

func (db *DB) ListAdmins(ctx context.Context) ([]Admin, error) {
	query := `
		SELECT ga.user_id, ga.admin_name, ga.added_by, COALESCE(ac.credits, 0), ga.added_at
		FROM group_admins ga
		LEFT JOIN admin_credits ac ON ac.admin_id = ga.user_id
		ORDER BY ga.user_id`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []Admin
	for rows.Next() {
		var (
			a       Admin
			credits int64
		)
		if err := rows.Scan(&a.UserID, &a.Name, &a.AddedBy, &credits, &a.AddedAt); err != nil {
			return nil, err
		}
		a.Credits = Credits(credits)
		admins = append(admins, a)
	}
	return admins, rows.Err()
}
