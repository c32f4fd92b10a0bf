// Package blob stores uploaded images in a BoltDB file and serves them back
// by key.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/goldlanka/goldmarket/internal/model"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketData = []byte("data")
	bucketMeta = []byte("meta")
)

var (
	ErrNotFound        = errors.New("blob not found")
	ErrTooLarge        = errors.New("blob exceeds size limit")
	ErrUnsupportedType = errors.New("only image uploads are accepted")
)

// Object is a stored blob and its metadata.
type Object struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	Data        []byte    `json:"-"`
}

// Store keeps blobs in two buckets: raw bytes and JSON metadata, both
// keyed by the blob key.
type Store struct {
	db       *bolt.DB
	maxBytes int
}

// Open opens or creates the blob database at path. maxBytes <= 0 disables
// the size limit.
func Open(dbPath string, maxBytes int) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketData, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, maxBytes: maxBytes}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var unsafeName = regexp.MustCompile(`[^a-z0-9._]+`)

// Key builds a blob key of the form <prefix>/<id>-<name>.
func Key(prefix, filename string) string {
	name := unsafeName.ReplaceAllString(strings.ToLower(path.Base(filename)), "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		name = "upload"
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "misc"
	}
	return prefix + "/" + model.NewID() + "-" + name
}

// Put stores data under a fresh key and returns the key.
func (s *Store) Put(ctx context.Context, prefix, filename, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrUnsupportedType
	}
	if s.maxBytes > 0 && len(data) > s.maxBytes {
		return "", ErrTooLarge
	}
	obj := Object{
		Key:         Key(prefix, filename),
		ContentType: contentType,
		Size:        len(data),
		CreatedAt:   time.Now().UTC(),
	}
	meta, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketData).Put([]byte(obj.Key), data); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put([]byte(obj.Key), meta)
	})
	if err != nil {
		return "", fmt.Errorf("put blob: %w", err)
	}
	return obj.Key, nil
}

// Get returns a blob with its data.
func (s *Store) Get(key string) (*Object, error) {
	var obj Object
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta).Get([]byte(key))
		if meta == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(meta, &obj); err != nil {
			return err
		}
		// Bolt memory is only valid inside the transaction.
		obj.Data = append([]byte(nil), tx.Bucket(bucketData).Get([]byte(key))...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

// Delete removes a blob. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketData).Delete([]byte(key)); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Delete([]byte(key))
	})
}

// URL returns the public address of a key under baseURL.
func URL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/blobs/" + key
}
