package database

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goldlanka/goldmarket/internal/feed"
	"github.com/goldlanka/goldmarket/internal/model"
)

// MaxPageSize caps the limit a caller may request.
const MaxPageSize = 100

// cursorKey is the keyset position after which the next page starts,
// bound to the filter it was issued under.
type cursorKey struct {
	Filter  string `json:"f"`
	Created int64  `json:"c"`
	ID      string `json:"i"`
}

func encodeCursor(filter string, rec feed.Record) feed.Cursor {
	b, _ := json.Marshal(cursorKey{Filter: filter, Created: toMicro(rec.Created()), ID: rec.RecordID()})
	return feed.Cursor(base64.RawURLEncoding.EncodeToString(b))
}

func decodeCursor(c feed.Cursor, filter string) (cursorKey, error) {
	var k cursorKey
	b, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return k, fmt.Errorf("%w: %v", ErrCursorMismatch, err)
	}
	if err := json.Unmarshal(b, &k); err != nil {
		return k, fmt.Errorf("%w: %v", ErrCursorMismatch, err)
	}
	if k.Filter != filter || k.ID == "" {
		return k, ErrCursorMismatch
	}
	return k, nil
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return feed.DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

// pageSpec describes how to page through one collection.
type pageSpec[T feed.Record] struct {
	selectFrom string // "SELECT <cols> FROM <table>"
	filterCol  string // empty if the collection cannot be filtered
	createdCol string
	idCol      string
	scan       func(rowScanner) (T, error)
}

// queryPage runs a keyset-paginated query:
// WHERE filter AND (created, id) < cursor ORDER BY created DESC, id DESC.
func queryPage[T feed.Record](ctx context.Context, db *DB, spec pageSpec[T], q feed.Query) (feed.Page[T], error) {
	var page feed.Page[T]
	filter := model.NormalizeFilter(q.Filter)
	if spec.filterCol == "" {
		filter = ""
	}
	limit := clampLimit(q.Limit)

	var where []string
	var args []any
	if filter != "" {
		where = append(where, spec.filterCol+" = ?")
		args = append(args, filter)
	}
	if q.After != "" {
		k, err := decodeCursor(q.After, filter)
		if err != nil {
			return page, err
		}
		where = append(where, fmt.Sprintf("(%s < ? OR (%s = ? AND %s < ?))", spec.createdCol, spec.createdCol, spec.idCol))
		args = append(args, k.Created, k.Created, k.ID)
	}

	query := spec.selectFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s DESC, %s DESC LIMIT ?", spec.createdCol, spec.idCol)
	args = append(args, limit)

	rows, err := db.query(ctx, db.conn, query, args...)
	if err != nil {
		return page, err
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := spec.scan(rows)
		if err != nil {
			return page, err
		}
		page.Records = append(page.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return page, err
	}
	if n := len(page.Records); n > 0 {
		page.Cursor = encodeCursor(filter, page.Records[n-1])
	}
	return page, nil
}

// scanAll reads every row of a query with scan.
func scanAll[T any](ctx context.Context, db *DB, q querier, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.query(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
