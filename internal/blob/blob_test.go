package blob

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, maxBytes int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "blobs", "blobs.db"), maxBytes)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t, 0)
	data := []byte{0x89, 'P', 'N', 'G'}

	key, err := s.Put(context.Background(), "items", "My Ring.PNG", "image/png", data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "items/"))
	assert.True(t, strings.HasSuffix(key, "-my-ring.png"))

	obj, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, data, obj.Data)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, 4, obj.Size)

	require.NoError(t, s.Delete(key))
	_, err = s.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(key))
}

func TestPutRejects(t *testing.T) {
	s := openTestStore(t, 3)
	ctx := context.Background()

	_, err := s.Put(ctx, "shops", "logo.png", "image/png", []byte("toolong"))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = s.Put(ctx, "shops", "notes.txt", "text/plain", []byte("a"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Put(cancelled, "shops", "a.png", "image/png", []byte("a"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeyAndURL(t *testing.T) {
	k := Key("", "../../etc/passwd")
	assert.True(t, strings.HasPrefix(k, "misc/"))
	assert.True(t, strings.HasSuffix(k, "-passwd"))
	assert.True(t, strings.HasSuffix(Key("/covers/", "???"), "-upload"))
	assert.Equal(t, "http://x/blobs/a/b.png", URL("http://x/", "a/b.png"))
}
