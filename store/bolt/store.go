// Package bolt provides a single-file embedded Store backed by bbolt.
// It suits single-node deployments that need durability without running a
// database server.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/xraph/unlocker"
	"github.com/xraph/unlocker/schedule"
	"github.com/xraph/unlocker/store"
	"github.com/xraph/unlocker/types"
	"github.com/xraph/unlocker/vault"
)

var (
	bucketVaults        = []byte("vaults")
	bucketSchedules     = []byte("schedules")
	bucketScheduleUsers = []byte("schedule_users")
	bucketAggregates    = []byte("aggregates")
	bucketNonces        = []byte("nonces")
)

// Store wraps a bbolt database.
type Store struct {
	db *bbolt.DB
}

var _ store.Store = (*Store)(nil)

// Open opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("bolt: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("bolt: open db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketVaults, bucketSchedules, bucketScheduleUsers, bucketAggregates, bucketNonces} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("bolt: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt: create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// u64key encodes an id as an 8-byte big-endian key for sorted storage.
func u64key(v uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, v)
	return k
}

// userKey is the composite key user address + schedule id, so one prefix
// scan yields a user's schedules in id order.
func userKey(user types.Address, scheduleID uint64) []byte {
	addr := []byte(user.Addr())
	k := make([]byte, len(addr)+1+8)
	copy(k, addr)
	k[len(addr)] = '|'
	binary.BigEndian.PutUint64(k[len(addr)+1:], scheduleID)
	return k
}

func aggKey(kind store.AggregateKind, key types.Address) []byte {
	return []byte(fmt.Sprintf("%s|%s", kind, key.Addr()))
}

func nonceKey(signer types.Address, nonce uint64) []byte {
	return []byte(fmt.Sprintf("%s|%d", signer.Addr(), nonce))
}

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Vault Store implementation
func (s *Store) GetVault(_ context.Context, vaultID uint64) (*vault.Vault, error) {
	var v vault.Vault
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketVaults).Get(u64key(vaultID))
		if data == nil {
			return unlocker.ErrInvalidVaultID
		}
		if err := decodeGob(data, &v); err != nil {
			return fmt.Errorf("bolt: decode vault: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) CountVaults(_ context.Context) (uint64, error) {
	var count uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = uint64(tx.Bucket(bucketVaults).Stats().KeyN)
		return nil
	})
	return count, err
}

// Schedule Store implementation
func (s *Store) GetSchedule(_ context.Context, scheduleID uint64) (*schedule.Schedule, error) {
	var sc schedule.Schedule
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSchedules).Get(u64key(scheduleID))
		if data == nil {
			return unlocker.ErrInvalidScheduleID
		}
		if err := decodeGob(data, &sc); err != nil {
			return fmt.Errorf("bolt: decode schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *Store) CountSchedules(_ context.Context) (uint64, error) {
	var count uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = uint64(tx.Bucket(bucketSchedules).Stats().KeyN)
		return nil
	})
	return count, err
}

func (s *Store) ListSchedulesByUser(_ context.Context, user types.Address, opts schedule.ListOpts) ([]*schedule.Schedule, uint64, error) {
	prefix := append([]byte(user.Addr()), '|')

	var ids []uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketScheduleUsers).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			ids = append(ids, binary.BigEndian.Uint64(k[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("bolt: scan user schedules: %w", err)
	}

	total := uint64(len(ids))
	lo, hi := opts.Window(len(ids))

	result := make([]*schedule.Schedule, 0, hi-lo)
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSchedules)
		for _, scheduleID := range ids[lo:hi] {
			data := b.Get(u64key(scheduleID))
			if data == nil {
				continue // stale index entry
			}
			var sc schedule.Schedule
			if err := decodeGob(data, &sc); err != nil {
				return fmt.Errorf("bolt: decode schedule in list: %w", err)
			}
			result = append(result, &sc)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// Aggregate Store implementation
func (s *Store) Aggregate(_ context.Context, kind store.AggregateKind, key types.Address) (int64, error) {
	var value int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketAggregates).Get(aggKey(kind, key))
		if data != nil {
			value = int64(binary.BigEndian.Uint64(data))
		}
		return nil
	})
	return value, err
}

// Nonce Store implementation
func (s *Store) NonceUsed(_ context.Context, signer types.Address, nonce uint64) (bool, error) {
	var used bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		used = tx.Bucket(bucketNonces).Get(nonceKey(signer, nonce)) != nil
		return nil
	})
	return used, err
}

// Commit applies the batch in one write transaction.
func (s *Store) Commit(_ context.Context, b *store.Batch) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		nonceBucket := tx.Bucket(bucketNonces)

		// Nonces first: reject the whole batch before mutating anything.
		for _, n := range b.Nonces {
			if nonceBucket.Get(nonceKey(n.Signer, n.Nonce)) != nil {
				return unlocker.ErrNonceHasBeenUsed
			}
		}
		for _, n := range b.Nonces {
			if err := nonceBucket.Put(nonceKey(n.Signer, n.Nonce), []byte{}); err != nil {
				return fmt.Errorf("bolt: put nonce: %w", err)
			}
		}

		vb := tx.Bucket(bucketVaults)
		for _, v := range b.Vaults {
			data, err := encodeGob(v)
			if err != nil {
				return fmt.Errorf("bolt: encode vault: %w", err)
			}
			if err := vb.Put(u64key(v.ID), data); err != nil {
				return fmt.Errorf("bolt: put vault: %w", err)
			}
		}

		sb := tx.Bucket(bucketSchedules)
		ub := tx.Bucket(bucketScheduleUsers)
		for _, sc := range b.Schedules {
			data, err := encodeGob(sc)
			if err != nil {
				return fmt.Errorf("bolt: encode schedule: %w", err)
			}
			if err := sb.Put(u64key(sc.ID), data); err != nil {
				return fmt.Errorf("bolt: put schedule: %w", err)
			}
			if err := ub.Put(userKey(sc.UserAddress, sc.ID), []byte{}); err != nil {
				return fmt.Errorf("bolt: put schedule user index: %w", err)
			}
		}

		ab := tx.Bucket(bucketAggregates)
		for _, d := range b.Aggregates {
			var current int64
			if data := ab.Get(aggKey(d.Kind, d.Key)); data != nil {
				current = int64(binary.BigEndian.Uint64(data))
			}
			next := make([]byte, 8)
			binary.BigEndian.PutUint64(next, uint64(current+d.Delta))
			if err := ab.Put(aggKey(d.Kind, d.Key), next); err != nil {
				return fmt.Errorf("bolt: put aggregate: %w", err)
			}
		}

		return nil
	})
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // Buckets are created at Open
}

func (s *Store) Ping(_ context.Context) error {
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

func (s *Store) Close() error {
	return s.db.Close()
}
