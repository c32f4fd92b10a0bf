package rss

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// DefaultInterval is used when the watcher is given no interval.
const DefaultInterval = 5 * time.Minute

// Listing is one entry read back from a listings feed.
type Listing struct {
	GUID      string
	Title     string
	Link      string
	Summary   string
	Published time.Time
}

// Watcher polls a listings feed and reports entries it has not seen.
type Watcher struct {
	url      string
	interval time.Duration
	parser   *gofeed.Parser
	logger   *zap.Logger
	onNew    func(Listing)

	mu   sync.Mutex
	seen map[string]bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for the feed at feedURL. onNew is called for
// every unseen listing, oldest first.
func NewWatcher(feedURL string, interval time.Duration, logger *zap.Logger, onNew func(Listing)) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		url:      feedURL,
		interval: interval,
		parser:   gofeed.NewParser(),
		logger:   logger,
		onNew:    onNew,
		seen:     make(map[string]bool),
		stopChan: make(chan struct{}),
	}
}

// Fetch downloads and parses the feed.
func (w *Watcher) Fetch(ctx context.Context) ([]Listing, error) {
	parsed, err := w.parser.ParseURLWithContext(w.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", w.url, err)
	}
	now := time.Now()
	out := make([]Listing, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			continue
		}
		published := now
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}
		out = append(out, Listing{
			GUID:      guid,
			Title:     item.Title,
			Link:      item.Link,
			Summary:   item.Description,
			Published: published,
		})
	}
	return out, nil
}

// Check fetches the feed once and returns the unseen listings, oldest
// first, calling onNew for each.
func (w *Watcher) Check(ctx context.Context) ([]Listing, error) {
	listings, err := w.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	var fresh []Listing
	for _, l := range listings {
		if !w.seen[l.GUID] {
			w.seen[l.GUID] = true
			fresh = append(fresh, l)
		}
	}
	w.mu.Unlock()

	slices.SortStableFunc(fresh, func(a, b Listing) int {
		return a.Published.Compare(b.Published)
	})
	if w.onNew != nil {
		for _, l := range fresh {
			w.onNew(l)
		}
	}
	return fresh, nil
}

// Start begins the polling loop.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			ctx, cancel := context.WithTimeout(context.Background(), w.interval)
			fresh, err := w.Check(ctx)
			cancel()
			if err != nil {
				w.logger.Warn("watch feed failed", zap.String("url", w.url), zap.Error(err))
			} else {
				w.logger.Debug("watched feed", zap.String("url", w.url), zap.Int("new", len(fresh)))
			}

			select {
			case <-w.stopChan:
				return
			case <-time.After(w.interval):
			}
		}
	}()
}

// Stop stops the watcher gracefully.
func (w *Watcher) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}
