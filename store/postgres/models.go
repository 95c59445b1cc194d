package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/unlocker/schedule"
	"github.com/xraph/unlocker/types"
	"github.com/xraph/unlocker/vault"
)

// ==================== Vault models ====================

type vaultModel struct {
	grove.BaseModel `grove:"table:unlocker_vaults"`

	ID                  uint64    `grove:"id,pk"`
	Name                string    `grove:"name"`
	Type                uint8     `grove:"type"`
	TokenAddress        string    `grove:"token_address"`
	PaymentTokenAddress string    `grove:"payment_token_address"`
	Operator            string    `grove:"operator"`
	CanShareRevenue     bool      `grove:"can_share_revenue"`
	UnlockedSince       int64     `grove:"unlocked_since"`
	UnlockedDuration    int64     `grove:"unlocked_duration"`
	TotalDeposit        int64     `grove:"total_deposit"`
	Balance             int64     `grove:"balance"`
	TotalPayout         int64     `grove:"total_payout"`
	AllocatedAmount     int64     `grove:"allocated_amount"`
	PaymentAmount       int64     `grove:"payment_amount"`
	ClaimedAmount       int64     `grove:"claimed_amount"`
	CreatedAt           time.Time `grove:"created_at"`
	UpdatedAt           time.Time `grove:"updated_at"`
}

func toVaultModel(v *vault.Vault) *vaultModel {
	return &vaultModel{
		ID:                  v.ID,
		Name:                v.Name,
		Type:                uint8(v.Type),
		TokenAddress:        v.TokenAddress.String(),
		PaymentTokenAddress: v.PaymentTokenAddress.String(),
		Operator:            v.Operator.String(),
		CanShareRevenue:     v.CanShareRevenue,
		UnlockedSince:       v.UnlockedSince,
		UnlockedDuration:    v.UnlockedDuration,
		TotalDeposit:        v.TotalDeposit.Units,
		Balance:             v.Balance.Units,
		TotalPayout:         v.TotalPayout.Units,
		AllocatedAmount:     v.AllocatedAmount.Units,
		PaymentAmount:       v.PaymentAmount.Units,
		ClaimedAmount:       v.ClaimedAmount.Units,
		CreatedAt:           v.CreatedAt,
		UpdatedAt:           v.UpdatedAt,
	}
}

func fromVaultModel(m *vaultModel) *vault.Vault {
	v := &vault.Vault{
		ID:                  m.ID,
		Name:                m.Name,
		Type:                vault.Type(m.Type),
		TokenAddress:        types.Address(m.TokenAddress),
		PaymentTokenAddress: types.Address(m.PaymentTokenAddress),
		Operator:            types.Address(m.Operator),
		CanShareRevenue:     m.CanShareRevenue,
		UnlockedSince:       m.UnlockedSince,
		UnlockedDuration:    m.UnlockedDuration,
		TotalDeposit:        types.Tokens(m.TokenAddress, m.TotalDeposit),
		Balance:             types.Tokens(m.TokenAddress, m.Balance),
		TotalPayout:         types.Tokens(m.TokenAddress, m.TotalPayout),
		AllocatedAmount:     types.Tokens(m.TokenAddress, m.AllocatedAmount),
		PaymentAmount:       types.Tokens(m.PaymentTokenAddress, m.PaymentAmount),
		ClaimedAmount:       types.Tokens(m.TokenAddress, m.ClaimedAmount),
	}
	v.CreatedAt = m.CreatedAt
	v.UpdatedAt = m.UpdatedAt
	return v
}

// ==================== Schedule models ====================

type scheduleModel struct {
	grove.BaseModel `grove:"table:unlocker_schedules"`

	ID                uint64    `grove:"id,pk"`
	VaultID           uint64    `grove:"vault_id"`
	UserAddress       string    `grove:"user_address"`
	AllocationUnits   int64     `grove:"allocation_units"`
	AllocationToken   string    `grove:"allocation_token"`
	PaymentUnits      int64     `grove:"payment_units"`
	PaymentToken      string    `grove:"payment_token"`
	IsShareRevenue    bool      `grove:"is_share_revenue"`
	CanRefund         bool      `grove:"can_refund"`
	CanRefundDuration int64     `grove:"can_refund_duration"`
	HasRefunded       bool      `grove:"has_refunded"`
	StartTime         int64     `grove:"start_time"`
	ClaimedUnits      int64     `grove:"claimed_units"`
	CreatedAt         time.Time `grove:"created_at"`
	UpdatedAt         time.Time `grove:"updated_at"`
}

func toScheduleModel(s *schedule.Schedule) *scheduleModel {
	return &scheduleModel{
		ID:                s.ID,
		VaultID:           s.VaultID,
		UserAddress:       s.UserAddress.String(),
		AllocationUnits:   s.AllocationAmount.Units,
		AllocationToken:   s.AllocationAmount.Token,
		PaymentUnits:      s.PaymentAmount.Units,
		PaymentToken:      s.PaymentAmount.Token,
		IsShareRevenue:    s.IsShareRevenue,
		CanRefund:         s.CanRefund,
		CanRefundDuration: s.CanRefundDuration,
		HasRefunded:       s.HasRefunded,
		StartTime:         s.StartTime,
		ClaimedUnits:      s.ClaimedAmount.Units,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func fromScheduleModel(m *scheduleModel) *schedule.Schedule {
	s := &schedule.Schedule{
		ID:                m.ID,
		VaultID:           m.VaultID,
		UserAddress:       types.Address(m.UserAddress),
		AllocationAmount:  types.Tokens(m.AllocationToken, m.AllocationUnits),
		PaymentAmount:     types.Tokens(m.PaymentToken, m.PaymentUnits),
		IsShareRevenue:    m.IsShareRevenue,
		CanRefund:         m.CanRefund,
		CanRefundDuration: m.CanRefundDuration,
		HasRefunded:       m.HasRefunded,
		StartTime:         m.StartTime,
		ClaimedAmount:     types.Tokens(m.AllocationToken, m.ClaimedUnits),
	}
	s.CreatedAt = m.CreatedAt
	s.UpdatedAt = m.UpdatedAt
	return s
}

// ==================== Aggregate models ====================

type aggregateModel struct {
	grove.BaseModel `grove:"table:unlocker_aggregates"`

	Kind  string `grove:"kind,pk"`
	Key   string `grove:"key,pk"`
	Value int64  `grove:"value"`
}

// ==================== Nonce models ====================

type nonceModel struct {
	grove.BaseModel `grove:"table:unlocker_nonces"`

	Signer    string    `grove:"signer,pk"`
	Nonce     uint64    `grove:"nonce,pk"`
	CreatedAt time.Time `grove:"created_at"`
}
