// Package store implements the relational persistence layer using
// database/sql. The SQL is kept portable between Postgres and SQLite via
// standard drivers, the same way across every store in this package.
package store

import (
	"context"
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT UNIQUE,
	first_name TEXT,
	last_name TEXT,
	position TEXT,
	role TEXT NOT NULL,
	created_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	correlative_number TEXT,
	title TEXT,
	direction TEXT NOT NULL,
	requires_response BOOLEAN NOT NULL DEFAULT FALSE,
	response_received BOOLEAN NOT NULL DEFAULT FALSE,
	current_stage TEXT,
	workflow_completed BOOLEAN NOT NULL DEFAULT FALSE,
	workflow_completed_at TIMESTAMP,
	signed_at TIMESTAMP,
	signed_by TEXT,
	digital_signature_url TEXT,
	physical_signature_url TEXT,
	physical_seal_file TEXT,
	seal_applied_at TIMESTAMP,
	response_deadline TIMESTAMP,
	reminders_sent INTEGER NOT NULL DEFAULT 0,
	last_reminder_sent_at TIMESTAMP,
	created_by TEXT,
	responsible_id TEXT,
	responsible_email TEXT
);

CREATE TABLE IF NOT EXISTS workflow_stages (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	stage TEXT NOT NULL,
	status TEXT NOT NULL,
	due_date TIMESTAMP,
	custom_deadline TIMESTAMP,
	deadline_hours INTEGER,
	notes TEXT,
	metadata TEXT,
	completed_at TIMESTAMP,
	completed_by TEXT,
	is_skipped BOOLEAN NOT NULL DEFAULT FALSE,
	skip_reason TEXT,
	skip_approved_by TEXT,
	skip_approved_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	UNIQUE (document_id, stage)
);

CREATE TABLE IF NOT EXISTS deadlines (
	id TEXT PRIMARY KEY,
	title TEXT,
	due_date TIMESTAMP NOT NULL,
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	document_id TEXT,
	expediente_id TEXT,
	responsible_id TEXT,
	created_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	title TEXT,
	message TEXT,
	related_id TEXT,
	related_type TEXT,
	is_read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS reminder_log (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	reminder_type TEXT NOT NULL,
	recipient_ids TEXT,
	method TEXT,
	sent_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	actor_id TEXT,
	action TEXT NOT NULL,
	resource_type TEXT,
	resource_id TEXT,
	changes TEXT,
	recorded_at TIMESTAMP NOT NULL
);
`

// Init creates the schema when missing. Safe to call on every start.
func Init(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
