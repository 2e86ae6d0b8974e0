package database

import (
	"context"
	"fmt"
)

// ============================================
// Admin credits
// ============================================

// Credit увеличивает баланс, создавая строку при первом пополнении
func (db *DB) Credit(ctx context.Context, adminID int64, amount Credits) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	query := `
		INSERT INTO admin_credits (admin_id, credits)
		VALUES ($1, $2)
		ON CONFLICT (admin_id) DO UPDATE SET
			credits = admin_credits.credits + EXCLUDED.credits,
			updated_at = NOW()`
	if _, err := db.Pool.Exec(ctx, query, adminID, int64(amount)); err != nil {
		return fmt.Errorf("credit admin %d: %w", adminID, err)
	}
	return nil
}

// Debit списывает amount одной командой UPDATE: проверка и списание
// выполняются под блокировкой строки. false — недостаточно средств или строки нет.
func (db *DB) Debit(ctx context.Context, adminID int64, amount Credits) (bool, error) {
	if err := ValidateAmount(amount); err != nil {
		return false, err
	}
	return debit(ctx, db.Pool, adminID, amount)
}

func (db *DB) Balance(ctx context.Context, adminID int64) (Credits, error) {
	var balance int64
	err := db.Pool.QueryRow(ctx, `SELECT credits FROM admin_credits WHERE admin_id = $1`, adminID).Scan(&balance)
	if isNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance admin %d: %w", adminID, err)
	}
	return Credits(balance), nil
}

func debit(ctx context.Context, q querier, adminID int64, amount Credits) (bool, error) {
	query := `
		UPDATE admin_credits
		SET credits = credits - $2, updated_at = NOW()
		WHERE admin_id = $1 AND credits >= $2`
	tag, err := q.Exec(ctx, query, adminID, int64(amount))
	if err != nil {
		return false, fmt.Errorf("debit admin %d: %w", adminID, err)
	}
	return tag.RowsAffected() == 1, nil
}
