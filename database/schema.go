package database

// admin_credits.credits и payments.credited — в единицах Credits (1/10000 права)
var schema = []string{
	`CREATE TABLE IF NOT EXISTS groups (
		group_id   BIGINT PRIMARY KEY,
		group_name TEXT NOT NULL,
		added_by   BIGINT NOT NULL DEFAULT 0,
		added_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS group_admins (
		user_id    BIGINT PRIMARY KEY,
		admin_name TEXT NOT NULL DEFAULT '',
		added_by   BIGINT NOT NULL DEFAULT 0,
		added_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS admin_groups (
		admin_id BIGINT REFERENCES group_admins(user_id) ON DELETE CASCADE,
		group_id BIGINT REFERENCES groups(group_id) ON DELETE CASCADE,
		added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (admin_id, group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS forms (
		form_name  TEXT NOT NULL,
		group_id   BIGINT NOT NULL,
		fields     TEXT[] NOT NULL,
		created_by BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (form_name, group_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_forms_created_by ON forms (created_by, form_name)`,
	`CREATE TABLE IF NOT EXISTS admin_credits (
		admin_id   BIGINT PRIMARY KEY,
		credits    BIGINT NOT NULL DEFAULT 0 CHECK (credits >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS form_submissions (
		id          BIGSERIAL PRIMARY KEY,
		form_name   TEXT NOT NULL,
		group_id    BIGINT NOT NULL,
		user_id     BIGINT NOT NULL,
		chat_id     BIGINT NOT NULL,
		data        BYTEA NOT NULL,
		fingerprint BYTEA NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		FOREIGN KEY (form_name, group_id) REFERENCES forms (form_name, group_id) ON DELETE CASCADE,
		UNIQUE (form_name, group_id, fingerprint)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_form_submissions_created ON form_submissions (form_name, created_at)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id         BIGSERIAL PRIMARY KEY,
		payment_id TEXT NOT NULL UNIQUE,
		admin_id   BIGINT NOT NULL,
		amount     NUMERIC(20, 8) NOT NULL,
		currency   TEXT NOT NULL,
		credited   BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
