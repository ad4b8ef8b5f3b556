// Package store persists session snapshots in pebble.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	pebble "github.com/cockroachdb/pebble"
	json "github.com/goccy/go-json"

	"github.com/BolvicBolvicovic/feather/pkg/session"
)

const sessionPrefix = "session:"

// Record is the stored form of a session.
type Record struct {
	ID      string         `json:"id"`
	SavedAt time.Time      `json:"saved_at"`
	Data    map[string]any `json:"data"`
}

// Store is a pebble-backed session.Backend.
type Store struct {
	db  *pebble.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	return open(path, &pebble.Options{})
}

// OpenReadOnly opens an existing database for inspection.
func OpenReadOnly(path string) (*Store, error) {
	return open(path, &pebble.Options{ReadOnly: true})
}

func open(path string, opts *pebble.Options) (*Store, error) {
	if !opts.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open session store %s: %w", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func key(id string) []byte { return []byte(sessionPrefix + id) }

// Save writes a snapshot of sess under id.
func (s *Store) Save(id string, sess session.Session) error {
	b, err := json.Marshal(Record{ID: id, SavedAt: s.now().UTC(), Data: session.Snapshot(sess)})
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	return s.db.Set(key(id), b, pebble.Sync)
}

// Load returns the session stored under id. Values come back in their
// JSON-decoded form.
func (s *Store) Load(id string) (session.Session, bool, error) {
	rec, ok, err := s.Get(id)
	if err != nil || !ok {
		return nil, ok, err
	}
	return session.NewCookieSession(rec.Data), true, nil
}

// Get returns the raw record stored under id.
func (s *Store) Get(id string) (Record, bool, error) {
	v, closer, err := s.db.Get(key(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	defer closer.Close()
	var rec Record
	if err := json.Unmarshal(v, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode session %s: %w", id, err)
	}
	return rec, true, nil
}

// Delete removes id. Deleting a missing id is not an error.
func (s *Store) Delete(id string) error {
	return s.db.Delete(key(id), pebble.Sync)
}

// Iterate calls fn for every stored record in key order.
func (s *Store) Iterate(fn func(Record) error) error {
	prefix := []byte(sessionPrefix)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix})
	if err != nil {
		return err
	}
	defer it.Close()
	for ok := it.First(); ok; ok = it.Next() {
		if !bytes.HasPrefix(it.Key(), prefix) {
			break
		}
		var rec Record
		if err := json.Unmarshal(it.Value(), &rec); err != nil {
			return fmt.Errorf("decode %s: %w", it.Key(), err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of stored sessions.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.Iterate(func(Record) error {
		n++
		return nil
	})
	return n, err
}

// Expire deletes records saved before cutoff and returns how many went.
func (s *Store) Expire(cutoff time.Time) (int, error) {
	var ids []string
	err := s.Iterate(func(rec Record) error {
		if rec.SavedAt.Before(cutoff) {
			ids = append(ids, rec.ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	b := s.db.NewBatch()
	defer b.Close()
	for _, id := range ids {
		if err := b.Delete(key(id), nil); err != nil {
			return 0, err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	return len(ids), nil
}
