// Package cache keeps the property lines of converted YAML inputs in a bbolt
// database so unchanged files are not parsed again.
package cache

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	msgpack "github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"github.com/mscno/yaml2props/pkg/yaml"
)

// Bucket: "conversions" -> key: sha256(schema, content), value: msgpack-encoded Entry
const bucketName = "conversions"

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache is closed")

// Entry is a stored conversion result.
type Entry struct {
	Lines    []string  `msgpack:"lines"`
	Schema   string    `msgpack:"schema"`
	StoredAt time.Time `msgpack:"stored_at"`
}

// BoltCache stores entries in a single bbolt file.
type BoltCache struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open opens or creates the cache database at path.
func Open(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}
	return &BoltCache{db: db, now: time.Now}, nil
}

// Key derives the cache key for data parsed with schema.
func Key(schema yaml.Schema, data []byte) []byte {
	h := sha256.New()
	h.Write([]byte(schema.String()))
	h.Write([]byte{0})
	h.Write(data)
	return h.Sum(nil)
}

// Lookup returns the lines stored for data parsed with schema.
func (c *BoltCache) Lookup(schema yaml.Schema, data []byte) ([]string, bool, error) {
	entry, ok, err := c.Get(Key(schema, data))
	if err != nil || !ok {
		return nil, false, err
	}
	return entry.Lines, true, nil
}

// Get returns the entry stored under key.
func (c *BoltCache) Get(key []byte) (Entry, bool, error) {
	var (
		entry Entry
		found bool
	)
	err := c.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket([]byte(bucketName)).Get(key)
		if val == nil {
			return nil
		}
		found = true
		return msgpack.Unmarshal(val, &entry)
	})
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return Entry{}, false, ErrClosed
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return entry, found, nil
}

// Store records lines as the result of parsing data with schema.
func (c *BoltCache) Store(schema yaml.Schema, data []byte, lines []string) error {
	val, err := msgpack.Marshal(Entry{
		Lines:    lines,
		Schema:   schema.String(),
		StoredAt: c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	err = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put(Key(schema, data), val)
	})
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

// Len returns the number of stored entries.
func (c *BoltCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	return n, err
}

// Purge removes every entry stored before cutoff and returns how many were
// removed.
func (c *BoltCache) Purge(cutoff time.Time) (int, error) {
	removed := 0
	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := msgpack.Unmarshal(v, &entry); err != nil {
				stale = append(stale, append([]byte(nil), k...))
				return nil
			}
			if entry.StoredAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}
