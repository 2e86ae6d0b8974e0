package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ============================================
// Payments
// ============================================

// RecordPayment сохраняет подтверждённый платёж, назначает плательщика админом
// и начисляет p.Credited в одной транзакции. Повтор того же PaymentID не начисляет
// ничего и возвращает false.
func (db *DB) RecordPayment(ctx context.Context, p Payment) (bool, error) {
	if err := ValidateAmount(p.Credited); err != nil {
		return false, err
	}
	credited := false
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO payments (payment_id, admin_id, amount, currency, credited)
			VALUES ($1, $2, $3::text::numeric, $4, $5)
			ON CONFLICT (payment_id) DO NOTHING`,
			p.PaymentID, p.AdminID, p.Amount, p.Currency, int64(p.Credited))
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO group_admins (user_id, admin_name, added_by)
			VALUES ($1, $2, $1)
			ON CONFLICT (user_id) DO NOTHING`, p.AdminID, p.AdminName)
		if err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO admin_credits (admin_id, credits)
			VALUES ($1, $2)
			ON CONFLICT (admin_id) DO UPDATE SET
				credits = admin_credits.credits + EXCLUDED.credits,
				updated_at = NOW()`, p.AdminID, int64(p.Credited))
		if err != nil {
			return fmt.Errorf("credit admin: %w", err)
		}
		credited = true
		return nil
	})
	return credited, err
}
