package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/recon/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketSettings = []byte("settings")
	bucketRuns     = []byte("runs")
)

// DefaultMaxRuns is how many runs the history keeps.
const DefaultMaxRuns = 50

// Store implements domain.SettingsStore and domain.RunHistory using BoltDB.
type Store struct {
	db      *bolt.DB
	maxRuns int
	mu      sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access). In
	// memory-only mode it is the only storage.
	cache map[string][]byte
}

// Open opens the store under baseDir, scoped to serverURL. An empty
// baseDir gives a memory-only store.
func Open(baseDir, serverURL string) (*Store, error) {
	if baseDir == "" {
		// Memory-only mode (no persistence)
		return &Store{cache: make(map[string][]byte), maxRuns: DefaultMaxRuns}, nil
	}

	dir := baseDir
	if serverURL != "" {
		dir = filepath.Join(baseDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "recon.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketSettings, bucketRuns} {
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

	return &Store{db: db, cache: make(map[string][]byte), maxRuns: DefaultMaxRuns}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// SetMaxRuns changes how many runs SaveRun keeps.
func (s *Store) SetMaxRuns(n int) {
	if n > 0 {
		s.maxRuns = n
	}
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *Store) get(bucket []byte, key string, dest any) bool {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *Store) set(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[string(bucket)+":"+key] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

// === Settings ===

func (s *Store) GetInt(key string) (int, bool) {
	var v int
	ok := s.get(bucketSettings, key, &v)
	return v, ok
}

func (s *Store) SetInt(key string, value int) error {
	return s.set(bucketSettings, key, value)
}

// === Run history (key: big-endian start nanos + run id, oldest first) ===

func runKey(rec domain.RunRecord) string {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(rec.StartedAt.UnixNano()))
	return hex.EncodeToString(ts[:]) + ":" + rec.ID
}

// SaveRun stores rec and prunes the oldest runs beyond the limit.
func (s *Store) SaveRun(rec domain.RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := runKey(rec)

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cache[string(bucketRuns)+":"+key] = data
		keys := s.memoryRunKeys()
		for len(keys) > s.maxRuns {
			delete(s.cache, keys[0])
			keys = keys[1:]
		}
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		if err := b.Put([]byte(key), data); err != nil {
			return err
		}
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for i := 0; i < len(keys)-s.maxRuns; i++ {
			if err := b.Delete(keys[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// memoryRunKeys returns cache keys of stored runs, oldest first. Callers
// hold s.mu.
func (s *Store) memoryRunKeys() []string {
	prefix := string(bucketRuns) + ":"
	var keys []string
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = s.maxRuns
	}
	var raw [][]byte

	if s.db == nil {
		s.mu.RLock()
		keys := s.memoryRunKeys()
		for i := len(keys) - 1; i >= 0 && len(raw) < limit; i-- {
			raw = append(raw, s.cache[keys[i]])
		}
		s.mu.RUnlock()
	} else {
		err := s.db.View(func(tx *bolt.Tx) error {
			c := tx.Bucket(bucketRuns).Cursor()
			for k, v := c.Last(); k != nil && len(raw) < limit; k, v = c.Prev() {
				raw = append(raw, append([]byte(nil), v...))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	runs := make([]domain.RunRecord, 0, len(raw))
	for _, data := range raw {
		var rec domain.RunRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, nil
}
