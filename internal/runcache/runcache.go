// Package runcache is a bbolt-backed memo of completed verification runs.
//
// The verification core itself is stateless per call: every
// Verify invocation regenerates its state space from scratch and derives a
// verdict purely from the machine, the property, and the strategy. Repeated
// CLI invocations over the same (machine, property, strategy) triple are
// common during interactive use, though, and regenerating and refining a
// state space from nothing every time is wasted work when the answer
// cannot have changed — so results are memoized here in a single bbolt.DB,
// one bucket per concern, ACID single-writer transactions, opened once at
// startup.
//
// Schema (bbolt bucket layout):
//
//	/runs
//	    key:   sha256(machine | "\x00" | property | "\x00" | strategy flags)
//	    value: JSON-encoded Result
//
//	/meta
//	    key:   "schema_version"
//	    value: "1"
//
// Failure modes:
//   - Database file corruption: bbolt detects via CRC and returns an error
//     on Open(). mckverify logs a warning and proceeds without a cache
//     rather than refusing to verify anything.
//   - Disk full: Put returns an error, logged but not fatal — the result
//     is simply not memoized for next time.
package runcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/onderjan/machine-check-sub001/internal/framework"
)

const (
	// SchemaVersion is the current database schema version.
	SchemaVersion = "1"

	bucketRuns = "runs"
	bucketMeta = "meta"
)

// Result is the persisted outcome of one Verify call.
type Result struct {
	Verdict  bool            `json:"verdict"`
	Stats    framework.Stats `json:"stats"`
	CachedAt time.Time       `json:"cached_at"`
}

// Cache wraps a bbolt instance with typed accessors for run results.
type Cache struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at the given path, verifying
// its schema version.
func Open(path string) (*Cache, error) {
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt.Open(%q): %w", path, err)
	}

	c := &Cache{db: bdb}

	if err := c.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketRuns, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("CreateBucketIfNotExists(%q): %w", name, err)
			}
		}
		meta := tx.Bucket([]byte(bucketMeta))
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(SchemaVersion)); err != nil {
				return fmt.Errorf("write schema_version: %w", err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("database initialisation failed: %w", err)
	}

	if err := c.checkSchemaVersion(); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return c, nil
}

func (c *Cache) checkSchemaVersion() error {
	return c.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(bucketMeta))
		v := meta.Get([]byte("schema_version"))
		if string(v) != SchemaVersion {
			return fmt.Errorf("schema version mismatch: database has %q, mckverify requires %q", string(v), SchemaVersion)
		}
		return nil
	})
}

// Close closes the underlying bbolt file.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key derives the cache key for a (machine, property, strategy) triple.
// Two invocations with the same machine name, property source, and
// strategy flags always share one cached result.
func Key(machineName, property string, strategy framework.Strategy) string {
	raw := fmt.Sprintf("%s\x00%s\x00naive=%t\x00decay=%t", machineName, property, strategy.NaiveInputs, strategy.UseDecay)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Get retrieves a cached result, reporting false if no entry exists.
func (c *Cache) Get(key string) (*Result, bool, error) {
	var res Result
	found := false

	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &res)
	})
	if err != nil {
		return nil, false, fmt.Errorf("runcache.Get(%q): %w", key, err)
	}
	if !found {
		return nil, false, nil
	}
	return &res, true, nil
}

// Put writes or overwrites the cached result for key.
func (c *Cache) Put(key string, res Result) error {
	res.CachedAt = time.Now().UTC()

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("runcache.Put marshal: %w", err)
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		if err := b.Put([]byte(key), data); err != nil {
			return fmt.Errorf("runcache.Put bolt.Put: %w", err)
		}
		return nil
	})
}
