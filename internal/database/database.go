package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB is the SQL store. The same queries serve SQLite and PostgreSQL; they
// are written with ? placeholders and rebound for the backend.
type DB struct {
	conn     *sql.DB
	name     string
	numbered bool
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

// Open opens the store for driver "sqlite" (source is a file path or
// ":memory:") or "postgres" (source is a connection string).
func Open(driver, source string) (*DB, error) {
	switch driver {
	case "sqlite", "":
		return New(source)
	case "postgres":
		return NewPostgres(source)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and every
	// connection to ":memory:" would otherwise see its own empty database.
	conn.SetMaxOpenConns(1)
	// Enable WAL mode for better concurrency.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{conn: conn, name: "SQLite"}
	if err := db.migrate(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		owner_name TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		karat INTEGER NOT NULL,
		weight REAL NOT NULL,
		district TEXT NOT NULL,
		images TEXT NOT NULL,
		image_alts TEXT NOT NULL,
		highest_bid REAL NOT NULL DEFAULT 0,
		bids_count INTEGER NOT NULL DEFAULT 0,
		sold INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS items_district_created ON items(district, created_at DESC, id DESC);
	CREATE INDEX IF NOT EXISTS items_owner ON items(owner_id);
	CREATE TABLE IF NOT EXISTS bids (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		user_name TEXT NOT NULL DEFAULT '',
		contact TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		amount REAL NOT NULL,
		description TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS bids_item ON bids(item_id);
	CREATE TABLE IF NOT EXISTS shops (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL UNIQUE,
		owner_name TEXT NOT NULL DEFAULT '',
		shop_name TEXT NOT NULL,
		description TEXT NOT NULL,
		district TEXT NOT NULL,
		address TEXT NOT NULL,
		contact_phone TEXT NOT NULL,
		contact_email TEXT NOT NULL,
		facebook TEXT NOT NULL DEFAULT '',
		whatsapp TEXT NOT NULL DEFAULT '',
		logo_url TEXT NOT NULL,
		cover_url TEXT NOT NULL,
		lat REAL,
		lng REAL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS shops_district_created ON shops(district, created_at DESC, id DESC);
	CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		shop_id TEXT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		user_name TEXT NOT NULL DEFAULT '',
		rating INTEGER NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		reply TEXT NOT NULL DEFAULT '',
		replied_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER,
		UNIQUE(shop_id, user_id)
	);
	CREATE TABLE IF NOT EXISTS forum_posts (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		user_name TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS forum_replies (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL REFERENCES forum_posts(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		user_name TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS forum_replies_post ON forum_replies(post_id, created_at);
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		photo_url TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	`

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return db.name
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate(schema string) error {
	_, err := db.conn.Exec(schema)
	return err
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (db *DB) rebind(query string) string {
	if !db.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) exec(ctx context.Context, q querier, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, db.rebind(query), args...)
}

func (db *DB) query(ctx context.Context, q querier, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, db.rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, q querier, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, db.rebind(query), args...)
}

// withTx runs fn in a transaction, committing when it returns nil.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// checkOwner resolves a zero-row owner-scoped write into ErrNotFound or
// ErrForbidden.
func (db *DB) checkOwner(ctx context.Context, q querier, table, id, ownerID string) error {
	var owner string
	err := db.queryRow(ctx, q, "SELECT owner_id FROM "+table+" WHERE id = ?", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != ownerID {
		return ErrForbidden
	}
	return nil
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Timestamps are stored as Unix microseconds so keyset comparisons are
// exact on both backends.
func toMicro(t time.Time) int64 {
	return t.UnixMicro()
}

func fromMicro(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

func nullMicro(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMicro(v.Int64)
	return &t
}

// stamp returns t truncated to storage precision, or now if t is zero.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Truncate(time.Microsecond)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
