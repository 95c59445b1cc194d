// Package memory provides an in-memory Store for tests and embedded use.
// All data is lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/unlocker"
	"github.com/xraph/unlocker/schedule"
	"github.com/xraph/unlocker/store"
	"github.com/xraph/unlocker/types"
	"github.com/xraph/unlocker/vault"
)

type Store struct {
	mu sync.RWMutex

	// Vault storage
	vaults map[uint64]*vault.Vault

	// Schedule storage
	schedules map[uint64]*schedule.Schedule

	// Aggregate counters, keyed by kind plus address
	aggregates map[string]int64

	// Consumed nonces
	nonces map[string]struct{}
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		vaults:     make(map[uint64]*vault.Vault),
		schedules:  make(map[uint64]*schedule.Schedule),
		aggregates: make(map[string]int64),
		nonces:     make(map[string]struct{}),
	}
}

func aggKey(kind store.AggregateKind, key types.Address) string {
	return fmt.Sprintf("%s|%s", kind, key.Addr())
}

func nonceKey(signer types.Address, nonce uint64) string {
	return fmt.Sprintf("%s|%d", signer.Addr(), nonce)
}

// Vault Store implementation
func (s *Store) GetVault(_ context.Context, vaultID uint64) (*vault.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.vaults[vaultID]; ok {
		return v.Clone(), nil
	}
	return nil, unlocker.ErrInvalidVaultID
}

func (s *Store) CountVaults(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.vaults)), nil
}

// Schedule Store implementation
func (s *Store) GetSchedule(_ context.Context, scheduleID uint64) (*schedule.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sc, ok := s.schedules[scheduleID]; ok {
		return sc.Clone(), nil
	}
	return nil, unlocker.ErrInvalidScheduleID
}

func (s *Store) CountSchedules(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.schedules)), nil
}

func (s *Store) ListSchedulesByUser(_ context.Context, user types.Address, opts schedule.ListOpts) ([]*schedule.Schedule, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*schedule.Schedule, 0)
	for _, sc := range s.schedules {
		if sc.UserAddress == user.Addr() {
			matched = append(matched, sc)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := uint64(len(matched))
	lo, hi := opts.Window(len(matched))
	page := make([]*schedule.Schedule, 0, hi-lo)
	for _, sc := range matched[lo:hi] {
		page = append(page, sc.Clone())
	}
	return page, total, nil
}

// Aggregate Store implementation
func (s *Store) Aggregate(_ context.Context, kind store.AggregateKind, key types.Address) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aggregates[aggKey(kind, key)], nil
}

// Nonce Store implementation
func (s *Store) NonceUsed(_ context.Context, signer types.Address, nonce uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, used := s.nonces[nonceKey(signer, nonce)]
	return used, nil
}

// Commit applies the batch under one lock acquisition.
func (s *Store) Commit(_ context.Context, b *store.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Nonces first: reject the whole batch before mutating anything.
	for _, n := range b.Nonces {
		if _, used := s.nonces[nonceKey(n.Signer, n.Nonce)]; used {
			return unlocker.ErrNonceHasBeenUsed
		}
	}

	for _, n := range b.Nonces {
		s.nonces[nonceKey(n.Signer, n.Nonce)] = struct{}{}
	}
	for _, v := range b.Vaults {
		s.vaults[v.ID] = v.Clone()
	}
	for _, sc := range b.Schedules {
		s.schedules[sc.ID] = sc.Clone()
	}
	for _, d := range b.Aggregates {
		s.aggregates[aggKey(d.Kind, d.Key)] += d.Delta
	}
	return nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}
