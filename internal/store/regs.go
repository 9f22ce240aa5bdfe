package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v3"

	"github.com/tunsel/tunsel/internal/alarm"
)

func regKey(code int64) []byte {
	return []byte(alarmPrefix + strconv.FormatInt(code, 10))
}

// PutRegistration upserts an armed timer registration.
func (s *Store) PutRegistration(r alarm.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(&r)
	if err != nil {
		return fmt.Errorf("encode registration %d: %w", r.Code, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(regKey(r.Code), data)
	})
}

// DeleteRegistration removes a registration; unknown codes are a no-op.
func (s *Store) DeleteRegistration(code int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(regKey(code))
	})
}

// Registrations returns all persisted registrations. Unreadable records
// are skipped with a warning, mirroring the schedule set.
func (s *Store) Registrations() ([]alarm.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []alarm.Registration
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(alarmPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(val []byte) error {
				var r alarm.Registration
				if err := json.Unmarshal(val, &r); err != nil {
					s.log.Warning("store: skipping unreadable registration %s: %v", key, err)
					return nil
				}
				out = append(out, r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return out, nil
}
