// Package feed keeps an ordered, cursor-paginated view over a collection of
// records, filterable by one equality attribute, together with a separately
// computed per-filter tally.
package feed

import (
	"context"
	"time"
)

// DefaultPageSize is the number of records requested per page.
const DefaultPageSize = 10

// Record is the view of a stored record that the feed needs.
type Record interface {
	RecordID() string
	// FilterValue is the normalized value matched by the feed's filter.
	FilterValue() string
	// Created is the sort key; records are listed newest first.
	Created() time.Time
}

// Cursor is an opaque pagination token referencing the last record of a
// page. It is only valid for the filter it was issued under. The empty
// cursor means "from the beginning".
type Cursor string

// Query asks a Source for one page.
type Query struct {
	// Filter restricts results to records whose FilterValue equals it.
	// Empty means no filter.
	Filter string
	After  Cursor
	Limit  int
}

// Page is one bounded batch of records, newest first.
type Page[T Record] struct {
	Records []T    `json:"records"`
	Cursor  Cursor `json:"cursor"`
}

// Source is the record store as seen by a Feed.
type Source[T Record] interface {
	// Query returns up to q.Limit records matching q.Filter ordered by
	// creation time descending, starting after q.After.
	Query(ctx context.Context, q Query) (Page[T], error)
	// GetAll returns the whole collection, unfiltered. Used for tallies.
	GetAll(ctx context.Context) ([]T, error)
}

// Limiter is implemented by sources that cap the number of records a
// single Query returns. A Feed never asks for more than MaxLimit, so a full
// page is never mistaken for the last one.
type Limiter interface {
	MaxLimit() int
}

// Tally maps a filter value to the number of matching records. The empty
// key holds the total.
type Tally map[string]int

// CountByFilter builds a Tally from a full collection scan. Records without
// a filter value only contribute to the total.
func CountByFilter[T Record](records []T) Tally {
	t := make(Tally)
	for _, r := range records {
		if v := r.FilterValue(); v != "" {
			t[v]++
		}
	}
	t[""] = len(records)
	return t
}

// Total returns the record count across all filter values.
func (t Tally) Total() int {
	return t[""]
}
