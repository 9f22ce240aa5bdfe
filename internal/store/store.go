// Package store persists the schedule set and the timer gateway's armed
// registrations in a single badger database. The key space is partitioned
// by prefix: sched/ for schedule records, alarm/ for registrations, pref/
// for display preferences unrelated to scheduling.
//
// Records are JSON with an explicit schema version. An unparsable record
// is treated as absent rather than fatal; the store self-heals on the
// next successful Save.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/tunsel/tunsel/internal/alarm"
	"github.com/tunsel/tunsel/pkg/logger"
	"github.com/tunsel/tunsel/pkg/schedule"
)

const (
	schedPrefix = "sched/"
	alarmPrefix = "alarm/"
	prefPrefix  = "pref/"
)

// schemaVersion is written into every schedule record envelope.
const schemaVersion = 1

// ErrNotFound is returned by Get for an unknown or unreadable id.
var ErrNotFound = errors.New("schedule not found")

// record is the persisted envelope around a schedule.
type record struct {
	Version  int                `json:"version"`
	Sealed   bool               `json:"sealed,omitempty"`
	Schedule *schedule.Schedule `json:"schedule"`
}

// Options configures Open.
type Options struct {
	// Dir is the badger data directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in memory; used by tests.
	InMemory bool

	// SealKey, when 16, 24 or 32 bytes long, enables AES-GCM sealing of
	// credentials at rest. Nil stores credentials in the clear.
	SealKey []byte

	Logger logger.Logger
}

// Store is the durable schedule set. All mutating operations are
// serialized; the whole-set read-modify-write of the engine relies on
// that plus the engine's own mutex.
type Store struct {
	db  *badger.DB
	mu  sync.Mutex
	key []byte
	log logger.Logger
}

// Open opens (creating if needed) the store.
func Open(opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	bopts := badger.DefaultOptions(opts.Dir)
	bopts.Logger = nil
	if opts.InMemory {
		bopts = bopts.WithInMemory(true)
	} else {
		// Writes are rare and Save promises durability, so pay the
		// fsync on every commit.
		bopts.SyncWrites = true
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Store{db: db, key: opts.SealKey, log: opts.Logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the schedule by id, durable before returning.
func (s *Store) Save(sch *schedule.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := record{Version: schemaVersion, Schedule: sch}
	if len(s.key) > 0 && sch.Password != "" {
		sealed, err := sealValue(sch.Password, s.key)
		if err != nil {
			return fmt.Errorf("seal credentials: %w", err)
		}
		cp := *sch
		cp.Password = sealed
		rec.Sealed = true
		rec.Schedule = &cp
	}
	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encode schedule %s: %w", sch.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schedPrefix+sch.ID), data)
	})
	if err != nil {
		return fmt.Errorf("persist schedule %s: %w", sch.ID, err)
	}
	return nil
}

// Get returns the schedule for id, or ErrNotFound. A record that cannot
// be decoded also reads as not found.
func (s *Store) Get(id string) (*schedule.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schedPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read schedule %s: %w", id, err)
	}
	sch, err := s.decode(id, data)
	if err != nil {
		s.log.Warning("store: dropping unreadable record for %s: %v", id, err)
		return nil, ErrNotFound
	}
	return sch, nil
}

// Remove deletes the schedule if present; removing an unknown id is a
// no-op, not an error.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(schedPrefix + id))
	})
}

// List returns the full schedule set, order not significant. Unreadable
// records are skipped with a warning.
func (s *Store) List() ([]*schedule.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*schedule.Schedule
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(schedPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				sch, err := s.decode(id, val)
				if err != nil {
					s.log.Warning("store: skipping unreadable record for %s: %v", id, err)
					return nil
				}
				out = append(out, sch)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return out, nil
}

// decode unwraps a record envelope and unseals credentials.
func (s *Store) decode(id string, data []byte) (*schedule.Schedule, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Schedule == nil {
		return nil, fmt.Errorf("record %s has no schedule body", id)
	}
	if rec.Sealed {
		if len(s.key) == 0 {
			return nil, fmt.Errorf("record %s is sealed but no key is configured", id)
		}
		plain, err := openValue(rec.Schedule.Password, s.key)
		if err != nil {
			return nil, fmt.Errorf("unseal record %s: %w", id, err)
		}
		rec.Schedule.Password = plain
	}
	return rec.Schedule, nil
}

// SetPref stores a display preference, outside the scheduling key space.
func (s *Store) SetPref(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefPrefix+name), []byte(value))
	})
}

// GetPref returns a display preference, or "" if unset.
func (s *Store) GetPref(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefPrefix + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	return value, err
}

var _ alarm.RegistrationStore = (*Store)(nil)
