package rss

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goldlanka/goldmarket/internal/model"
)

var now = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func sampleItems() []model.Item {
	return []model.Item{
		{ID: "b2", Title: "24K Bar", OwnerName: "Kamal", Karat: 24, Weight: 10, District: "colombo",
			HighestBid: 250000, BidsCount: 2, CreatedAt: now.Add(-time.Hour)},
		{ID: "a1", Title: "22K Ring", OwnerName: "Nimal", Karat: 22, Weight: 4.5, District: "nuwara eliya",
			Sold: true, CreatedAt: now.Add(-2 * time.Hour)},
	}
}

func TestBuildParsesWithGofeed(t *testing.T) {
	out, err := Build("https://gold.lk/", sampleItems(), now)
	require.NoError(t, err)

	parsed, err := gofeed.NewParser().ParseString(out)
	require.NoError(t, err)
	assert.Equal(t, "Gold Market: new listings", parsed.Title)
	require.Len(t, parsed.Items, 2)

	first := parsed.Items[0]
	assert.Equal(t, "24K Bar", first.Title)
	assert.Equal(t, "b2", first.GUID)
	assert.Equal(t, "https://gold.lk/item/24k-bar-b2", first.Link)
	assert.Contains(t, first.Description, "Highest bid Rs. 250000 from 2 bids.")
	assert.Contains(t, parsed.Items[1].Description, "Nuwara Eliya")
	assert.Contains(t, parsed.Items[1].Description, "Sold.")
}

func TestBuildCapsListings(t *testing.T) {
	items := make([]model.Item, FeedLimit+5)
	for i := range items {
		items[i] = model.Item{ID: model.NewID(), Title: "x", CreatedAt: now}
	}
	out, err := Build("http://x", items, now)
	require.NoError(t, err)
	assert.Equal(t, FeedLimit, strings.Count(out, "<item>"))
}

type feedServer struct {
	mu    sync.Mutex
	items []model.Item
}

func (s *feedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out, err := Build("http://gold.test", s.items, now)
	s.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml")
	w.Write([]byte(out))
}

func TestWatcherReportsOnlyUnseen(t *testing.T) {
	fs := &feedServer{items: sampleItems()}
	srv := httptest.NewServer(fs)
	defer srv.Close()

	var got []string
	w := NewWatcher(srv.URL, time.Minute, zap.NewNop(), func(l Listing) { got = append(got, l.GUID) })

	fresh, err := w.Check(t.Context())
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
	assert.Equal(t, []string{"a1", "b2"}, got, "oldest first")

	fs.mu.Lock()
	fs.items = append([]model.Item{{ID: "c3", Title: "Chain", CreatedAt: now}}, fs.items...)
	fs.mu.Unlock()

	fresh, err = w.Check(t.Context())
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "c3", fresh[0].GUID)
	assert.Equal(t, []string{"a1", "b2", "c3"}, got)
}

func TestWatcherStartStop(t *testing.T) {
	srv := httptest.NewServer(&feedServer{items: sampleItems()})
	defer srv.Close()

	var mu sync.Mutex
	count := 0
	w := NewWatcher(srv.URL, 10*time.Millisecond, nil, func(Listing) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	w.Start()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 2
	}, time.Second, 5*time.Millisecond)
	w.Stop()
}

func TestWatcherFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewWatcher(srv.URL, 0, nil, nil).Check(t.Context())
	assert.Error(t, err)
}
