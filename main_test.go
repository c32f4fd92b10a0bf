package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldlanka/goldmarket/internal/model"
	"github.com/goldlanka/goldmarket/internal/rss"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestMigrateCreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.db")
	_, err := execute(t, "migrate", "--db-path", path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, path, cfg.Database.Path)
}

func TestUnknownDriverFailsValidation(t *testing.T) {
	_, err := execute(t, "migrate", "--db-driver", "mysql")
	assert.ErrorContains(t, err, "database.driver")
	// Restore for later tests sharing the flag set.
	require.NoError(t, rootCmd.PersistentFlags().Set("db-driver", "sqlite"))
}

func TestBrowseRejectsUnknownCollection(t *testing.T) {
	_, err := execute(t, "browse", "auctions")
	assert.Error(t, err)
}

func TestBrowseLogsToFile(t *testing.T) {
	_, err := execute(t, "migrate", "--db-path", filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)

	log, err := browseLogger()
	require.NoError(t, err)
	log.Error("feed query failed")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(browseLogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "feed query failed")
}

func TestWatchOnce(t *testing.T) {
	items := []model.Item{
		{ID: "b2", Title: "Newer bangle", Karat: 22, Weight: 8, District: "kandy", CreatedAt: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)},
		{ID: "a1", Title: "Older chain", Karat: 22, Weight: 4, District: "colombo", CreatedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)},
	}
	doc, err := rss.Build("http://gold.test", items, time.Now())
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(doc))
	}))
	defer srv.Close()

	out, err := execute(t, "watch", "--once", "--url", srv.URL)
	require.NoError(t, err)
	older := bytes.Index([]byte(out), []byte("Older chain"))
	newer := bytes.Index([]byte(out), []byte("Newer bangle"))
	require.GreaterOrEqual(t, older, 0, out)
	require.GreaterOrEqual(t, newer, 0, out)
	assert.Less(t, older, newer, "listings are printed oldest first")
	assert.Contains(t, out, "http://gold.test/item/older-chain-a1")
}
