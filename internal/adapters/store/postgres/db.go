// Package postgres implements the identity and meeting stores on
// database/sql with the pgx driver. Refresh-token and membership changes are
// single conditional UPDATE statements.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const pgErrUniqueViolation = "23505"

const schema = `
create table if not exists identities (
	id             uuid primary key,
	name           text not null,
	email          text not null unique,
	phone_number   text unique,
	wallet_id      text unique,
	google_id      text unique,
	avatar         text not null default '',
	password_hash  text not null default '',
	refresh_digest text not null default '',
	created_at     timestamptz not null,
	updated_at     timestamptz not null
);
create table if not exists meetings (
	id              uuid primary key,
	name            text not null,
	organisation_id text not null default '',
	host            jsonb not null,
	members         jsonb not null default '[]'::jsonb,
	created_by      uuid not null,
	permissions     jsonb not null,
	waiting_room    boolean not null default true,
	start_at        timestamptz not null,
	end_at          timestamptz,
	created_at      timestamptz not null
);`

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// Migrate creates the tables when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// exists is used after a conditional update touched no row, to tell a
// missing row from a failed condition. table is always a constant.
func exists(ctx context.Context, db *sql.DB, table, id string) (bool, error) {
	var ok bool
	err := db.QueryRowContext(ctx, `select exists(select 1 from `+table+` where id=$1)`, id).Scan(&ok)
	return ok, err
}
