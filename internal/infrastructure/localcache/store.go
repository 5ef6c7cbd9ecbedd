package localcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketPrefs  = []byte("prefs")
	bucketImport = []byte("import")
)

// Store wraps a BoltDB file holding the small bits of local state that
// survive without the remote backend: per-user theme preference and, until
// the first authenticated session drains it, a cached task list used as a
// one-time import source.
type Store struct {
	db *bolt.DB
}

// Open initializes the BoltDB file and ensures both buckets exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketPrefs); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketImport)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Theme returns the stored theme preference for the user, empty if unset.
func (s *Store) Theme(userID string) (string, error) {
	if s == nil || s.db == nil {
		return "", bolt.ErrDatabaseNotOpen
	}
	var theme string
	err := s.db.View(func(tx *bolt.Tx) error {
		theme = string(tx.Bucket(bucketPrefs).Get([]byte(userID)))
		return nil
	})
	return theme, err
}

// SetTheme persists the theme preference for the user.
func (s *Store) SetTheme(userID, theme string) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPrefs).Put([]byte(userID), []byte(theme))
	})
}

// CachedTasks returns the raw cached task entries awaiting import for the
// user. Entries are kept raw so the importer can drop malformed ones
// individually instead of failing the whole list.
func (s *Store) CachedTasks(userID string) ([]json.RawMessage, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var entries []json.RawMessage
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketImport).Get([]byte(userID))
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, &entries)
	})
	return entries, err
}

// SaveCachedTasks stores a pending import list for the user.
func (s *Store) SaveCachedTasks(userID string, entries []json.RawMessage) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketImport).Put([]byte(userID), payload)
	})
}

// ClearCachedTasks drops the pending import list for the user.
func (s *Store) ClearCachedTasks(userID string) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketImport).Delete([]byte(userID))
	})
}

// PendingImports returns the number of users with a cached list still
// waiting to be drained.
func (s *Store) PendingImports() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketImport).Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
