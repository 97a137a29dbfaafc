package store

// DDL shared by PostgreSQL and SQLite: TEXT uuids, TIMESTAMP times, BIGINT
// permission bit sets. The unique indexes are what make select-then-insert
// provisioning safe under concurrency.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS realms (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS realms_name_idx ON realms (name)`,

	`CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		realm_id       TEXT NOT NULL REFERENCES realms (id),
		username       TEXT NOT NULL,
		email          TEXT NOT NULL,
		firstname      TEXT NOT NULL DEFAULT '',
		lastname       TEXT NOT NULL DEFAULT '',
		enabled        BOOLEAN NOT NULL DEFAULT TRUE,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMP NOT NULL,
		updated_at     TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_realm_username_idx ON users (realm_id, username)`,

	`CREATE TABLE IF NOT EXISTS device_profiles (
		id         TEXT PRIMARY KEY,
		realm_id   TEXT NOT NULL REFERENCES realms (id),
		device_id  TEXT NOT NULL,
		user_id    TEXT NOT NULL REFERENCES users (id),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		created_by TEXT,
		updated_by TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS device_profiles_realm_device_idx ON device_profiles (realm_id, device_id)`,

	`CREATE TABLE IF NOT EXISTS roles (
		id          TEXT PRIMARY KEY,
		realm_id    TEXT NOT NULL REFERENCES realms (id),
		name        TEXT NOT NULL,
		permissions BIGINT NOT NULL DEFAULT 0,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS roles_realm_name_idx ON roles (realm_id, name)`,

	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id TEXT NOT NULL REFERENCES users (id),
		role_id TEXT NOT NULL REFERENCES roles (id),
		PRIMARY KEY (user_id, role_id)
	)`,
}
