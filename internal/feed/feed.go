package feed

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Snapshot is a copy of a feed's state, safe to keep after the feed moves on.
type Snapshot[T Record] struct {
	Filter  string
	Records []T
	HasMore bool
	Loading bool
	Tally   Tally
}

// Option configures a Feed.
type Option func(*options)

type options struct {
	pageSize int
	logger   *zap.Logger
}

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithLogger sets the logger used for fetch failures and stale pages.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Feed is a paginated, filterable, read-only projection of a Source.
//
// At most one page fetch is in flight at a time; triggers arriving while one
// is outstanding are dropped. Every fetch is tagged with the generation it
// was issued under and Reset bumps the generation, so a page requested for
// an old filter is discarded instead of leaking into the new one.
type Feed[T Record] struct {
	src      Source[T]
	pageSize int
	logger   *zap.Logger

	mu         sync.Mutex
	filter     string
	records    []T
	cursor     Cursor
	hasMore    bool
	generation uint64
	inFlight   chan struct{} // closed when the running fetch lands
	tally      Tally
	tallySeq   uint64
	tallyShown uint64
	closed     bool

	subMu   sync.Mutex
	subs    map[int]func(Snapshot[T])
	nextSub int

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// New creates an unfiltered feed over src. Nothing is fetched until Reset,
// FetchPage or Advance is called.
func New[T Record](src Source[T], opts ...Option) *Feed[T] {
	o := options{pageSize: DefaultPageSize, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if l, ok := src.(Limiter); ok && l.MaxLimit() > 0 {
		o.pageSize = min(o.pageSize, l.MaxLimit())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Feed[T]{
		src:      src,
		pageSize: o.pageSize,
		logger:   o.logger,
		hasMore:  true,
		subs:     make(map[int]func(Snapshot[T])),
		bgCtx:    ctx,
		bgCancel: cancel,
	}
}

// PageSize returns the number of records requested per page.
func (f *Feed[T]) PageSize() int { return f.pageSize }

// Filter returns the current filter value.
func (f *Feed[T]) Filter() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter
}

// Snapshot returns a copy of the current state.
func (f *Feed[T]) Snapshot() Snapshot[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot[T]{
		Filter:  f.filter,
		Records: slices.Clone(f.records),
		HasMore: f.hasMore,
		Loading: f.inFlight != nil,
		Tally:   maps.Clone(f.tally),
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function unsubscribes.
func (f *Feed[T]) Subscribe(fn func(Snapshot[T])) func() {
	f.subMu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.subMu.Lock()
			delete(f.subs, id)
			f.subMu.Unlock()
		})
	}
}

func (f *Feed[T]) notify() {
	f.subMu.Lock()
	if len(f.subs) == 0 {
		f.subMu.Unlock()
		return
	}
	fns := make([]func(Snapshot[T]), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.subMu.Unlock()

	snap := f.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// Reset switches to filter (empty for none), discards the loaded records
// and the cursor, and loads the first page. If a fetch is in flight, Reset
// waits for it to land (its page is then discarded as stale) before
// issuing its own.
func (f *Feed[T]) Reset(ctx context.Context, filter string) error {
	f.mu.Lock()
	f.filter = normalizeFilter(filter)
	f.records = nil
	f.cursor = ""
	f.hasMore = true
	f.generation++
	f.mu.Unlock()
	f.notify()

	for {
		res, wait, err := f.fetch(ctx, true)
		if res != fetchBusy {
			return err
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// FetchPage loads one page under the current filter. With reset the page
// replaces the loaded records and no cursor is applied; otherwise it is
// appended after the current cursor.
//
// It reports whether a query was issued and applied. It is a no-op when a
// fetch is already in flight, and, for non-reset calls, when the feed is
// exhausted. A failed query marks the feed exhausted; the error is returned
// but not retained.
func (f *Feed[T]) FetchPage(ctx context.Context, reset bool) (bool, error) {
	res, _, err := f.fetch(ctx, reset)
	return res == fetchApplied || res == fetchFailed, err
}

// Advance is the infinite-scroll trigger, called when the last loaded
// record becomes visible. It fetches the next page only if more pages may
// exist and nothing is in flight.
func (f *Feed[T]) Advance(ctx context.Context) (bool, error) {
	f.mu.Lock()
	ready := f.hasMore && f.inFlight == nil
	f.mu.Unlock()
	if !ready {
		return false, nil
	}
	return f.FetchPage(ctx, false)
}

type fetchResult int

const (
	fetchApplied fetchResult = iota
	fetchFailed
	fetchBusy
	fetchExhausted
	fetchStale
)

func (f *Feed[T]) fetch(ctx context.Context, reset bool) (fetchResult, <-chan struct{}, error) {
	f.mu.Lock()
	if f.inFlight != nil {
		wait := f.inFlight
		f.mu.Unlock()
		return fetchBusy, wait, nil
	}
	if !reset && !f.hasMore {
		f.mu.Unlock()
		return fetchExhausted, nil, nil
	}
	q := Query{Filter: f.filter, Limit: f.pageSize}
	if !reset {
		q.After = f.cursor
	}
	gen := f.generation
	done := make(chan struct{})
	f.inFlight = done
	f.mu.Unlock()
	f.notify()

	page, err := f.src.Query(ctx, q)

	f.mu.Lock()
	f.inFlight = nil
	close(done)

	if gen != f.generation {
		f.mu.Unlock()
		f.logger.Debug("discarding stale page",
			zap.String("filter", q.Filter),
			zap.Int("records", len(page.Records)))
		f.notify()
		return fetchStale, nil, nil
	}

	if err != nil {
		f.hasMore = false
		f.mu.Unlock()
		f.logger.Warn("page fetch failed",
			zap.String("filter", q.Filter),
			zap.Bool("reset", reset),
			zap.Error(err))
		f.notify()
		return fetchFailed, nil, err
	}

	before := len(f.records)
	if reset {
		f.records = slices.Clone(page.Records)
	} else {
		f.records = append(f.records, page.Records...)
	}
	if len(page.Records) > 0 {
		f.cursor = page.Cursor
	} else {
		f.cursor = ""
	}
	// A short page means exhaustion. When the collection size is a multiple
	// of the page size this costs one extra, empty fetch.
	f.hasMore = len(page.Records) == f.pageSize
	changed := len(f.records) != before
	f.mu.Unlock()

	if changed {
		f.refreshTally()
	}
	f.notify()
	return fetchApplied, nil, nil
}

// ComputeTally scans the whole collection once and counts records per
// filter value, independent of the current filter and cursor. On failure
// the previous tally is kept.
func (f *Feed[T]) ComputeTally(ctx context.Context) (Tally, error) {
	f.mu.Lock()
	f.tallySeq++
	seq := f.tallySeq
	f.mu.Unlock()

	all, err := f.src.GetAll(ctx)
	if err != nil {
		f.logger.Warn("tally scan failed", zap.Error(err))
		return nil, err
	}
	t := CountByFilter(all)

	f.mu.Lock()
	// An older scan finishing late must not overwrite a newer one.
	if seq > f.tallyShown {
		f.tally = t
		f.tallyShown = seq
	}
	f.mu.Unlock()
	f.notify()
	return maps.Clone(t), nil
}

func (f *Feed[T]) refreshTally() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.bg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.bg.Done()
		_, _ = f.ComputeTally(f.bgCtx)
	}()
}

// Replace patches a loaded record in place, matched by ID. It reports
// whether the record was loaded.
func (f *Feed[T]) Replace(rec T) bool {
	f.mu.Lock()
	i := f.indexOf(rec.RecordID())
	if i >= 0 {
		f.records[i] = rec
	}
	f.mu.Unlock()
	if i >= 0 {
		f.notify()
	}
	return i >= 0
}

// Remove drops a loaded record by ID. It reports whether it was loaded.
func (f *Feed[T]) Remove(id string) bool {
	f.mu.Lock()
	i := f.indexOf(id)
	if i >= 0 {
		f.records = slices.Delete(f.records, i, i+1)
	}
	f.mu.Unlock()
	if i >= 0 {
		f.notify()
	}
	return i >= 0
}

func (f *Feed[T]) indexOf(id string) int {
	return slices.IndexFunc(f.records, func(r T) bool { return r.RecordID() == id })
}

// Close stops background tally scans and waits for them to exit.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.bgCancel()
	f.bg.Wait()
}

func normalizeFilter(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
