package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/unlocker"
	"github.com/xraph/unlocker/schedule"
	"github.com/xraph/unlocker/store"
	"github.com/xraph/unlocker/types"
	"github.com/xraph/unlocker/vault"
)

func testVault(id uint64) *vault.Vault {
	return &vault.Vault{
		Entity:       types.NewEntity(),
		ID:           id,
		Name:         "test",
		Type:         vault.TypeLinearUnlocked,
		TokenAddress: "0xaaaa",
		Balance:      types.Tokens("0xaaaa", 1000),
	}
}

func testSchedule(id uint64, user types.Address) *schedule.Schedule {
	return &schedule.Schedule{
		Entity:           types.NewEntity(),
		ID:               id,
		VaultID:          1,
		UserAddress:      user,
		AllocationAmount: types.Tokens("0xaaaa", 100),
	}
}

func TestVaultRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.GetVault(ctx, 1)
	assert.ErrorIs(t, err, unlocker.ErrInvalidVaultID)

	require.NoError(t, s.Commit(ctx, new(store.Batch).PutVault(testVault(1))))

	got, err := s.GetVault(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.ID)
	assert.Equal(t, int64(1000), got.Balance.Units)

	count, err := s.CountVaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestGetVaultReturnsClone(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Commit(ctx, new(store.Batch).PutVault(testVault(1))))

	got, err := s.GetVault(ctx, 1)
	require.NoError(t, err)
	got.Balance = types.Tokens("0xaaaa", 0)

	// Mutating the returned value must not touch stored state.
	again, err := s.GetVault(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), again.Balance.Units)
}

func TestScheduleListPagination(t *testing.T) {
	s := New()
	ctx := context.Background()

	user := types.Address("0x1111")
	other := types.Address("0x2222")
	b := new(store.Batch)
	for i := uint64(1); i <= 7; i++ {
		b.PutSchedule(testSchedule(i, user))
	}
	b.PutSchedule(testSchedule(8, other))
	require.NoError(t, s.Commit(ctx, b))

	page, total, err := s.ListSchedulesByUser(ctx, user, schedule.ListOpts{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), total)
	require.Len(t, page, 3)
	assert.Equal(t, uint64(4), page[0].ID)
	assert.Equal(t, uint64(6), page[2].ID)

	page, total, err = s.ListSchedulesByUser(ctx, user, schedule.ListOpts{Page: 3, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), total)
	assert.Len(t, page, 1)
}

func TestAggregateAccumulates(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := types.Address("0x1111")

	v, err := s.Aggregate(ctx, store.AggInvest, user)
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, s.Commit(ctx, new(store.Batch).AddAggregate(store.AggInvest, user, 100)))
	require.NoError(t, s.Commit(ctx, new(store.Batch).AddAggregate(store.AggInvest, user, -30)))

	v, err = s.Aggregate(ctx, store.AggInvest, user)
	require.NoError(t, err)
	assert.Equal(t, int64(70), v)

	// Kinds and keys are independent counters.
	v, err = s.Aggregate(ctx, store.AggTotalInvest, "")
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestCommitRejectsUsedNonce(t *testing.T) {
	s := New()
	ctx := context.Background()
	signer := types.Address("0x1111")

	require.NoError(t, s.Commit(ctx, new(store.Batch).UseNonce(signer, 7)))

	used, err := s.NonceUsed(ctx, signer, 7)
	require.NoError(t, err)
	assert.True(t, used)

	// A batch carrying a consumed nonce must fail without applying any of
	// its other writes.
	b := new(store.Batch).
		PutVault(testVault(2)).
		UseNonce(signer, 7)
	err = s.Commit(ctx, b)
	assert.ErrorIs(t, err, unlocker.ErrNonceHasBeenUsed)

	_, err = s.GetVault(ctx, 2)
	assert.ErrorIs(t, err, unlocker.ErrInvalidVaultID)

	// Same nonce value under another signer is fine.
	require.NoError(t, s.Commit(ctx, new(store.Batch).UseNonce("0x2222", 7)))
}

func TestScheduleNotFound(t *testing.T) {
	s := New()
	_, err := s.GetSchedule(context.Background(), 99)
	assert.ErrorIs(t, err, unlocker.ErrInvalidScheduleID)
}
