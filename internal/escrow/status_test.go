package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscrowStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    EscrowStatus
		to      EscrowStatus
		allowed bool
	}{
		{EscrowStatusFunded, EscrowStatusWorkSubmitted, true},
		{EscrowStatusFunded, EscrowStatusDisputed, true},
		{EscrowStatusFunded, EscrowStatusRefunded, true},
		{EscrowStatusFunded, EscrowStatusApproved, false},
		{EscrowStatusFunded, EscrowStatusReleased, false},

		// Самопереход нужен повторной сдаче после ревизии.
		{EscrowStatusWorkSubmitted, EscrowStatusWorkSubmitted, true},
		{EscrowStatusWorkSubmitted, EscrowStatusApproved, true},
		{EscrowStatusWorkSubmitted, EscrowStatusDisputed, true},
		{EscrowStatusWorkSubmitted, EscrowStatusReleased, false},

		{EscrowStatusApproved, EscrowStatusReleased, true},
		{EscrowStatusApproved, EscrowStatusDisputed, true},
		{EscrowStatusApproved, EscrowStatusWorkSubmitted, false},

		// Спор решается только релизом или возвратом.
		{EscrowStatusDisputed, EscrowStatusReleased, true},
		{EscrowStatusDisputed, EscrowStatusRefunded, true},
		{EscrowStatusDisputed, EscrowStatusWorkSubmitted, false},
		{EscrowStatusDisputed, EscrowStatusApproved, false},

		// Терминальные состояния не покидаются.
		{EscrowStatusReleased, EscrowStatusRefunded, false},
		{EscrowStatusReleased, EscrowStatusFunded, false},
		{EscrowStatusRefunded, EscrowStatusReleased, false},
		{EscrowStatusRefunded, EscrowStatusFunded, false},
	}

	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		assert.Equal(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestEscrowStatus_IsTerminal(t *testing.T) {
	assert.True(t, EscrowStatusReleased.IsTerminal())
	assert.True(t, EscrowStatusRefunded.IsTerminal())
	assert.False(t, EscrowStatusFunded.IsTerminal())
	assert.False(t, EscrowStatusDisputed.IsTerminal())
}

func TestDisputeStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, DisputeStatusNone.CanTransitionTo(DisputeStatusPending))
	assert.True(t, DisputeStatusPending.CanTransitionTo(DisputeStatusUnderReview))
	// Резолюция допустима и без формального рассмотрения.
	assert.True(t, DisputeStatusPending.CanTransitionTo(DisputeStatusResolved))
	assert.True(t, DisputeStatusUnderReview.CanTransitionTo(DisputeStatusResolved))

	assert.False(t, DisputeStatusNone.CanTransitionTo(DisputeStatusResolved))
	assert.False(t, DisputeStatusResolved.CanTransitionTo(DisputeStatusPending))
	assert.False(t, DisputeStatusUnderReview.CanTransitionTo(DisputeStatusPending))
}

func TestMilestoneStatus_CanTransitionTo(t *testing.T) {
	// Этап идёт строго по цепочке, без пропусков и откатов.
	chain := []MilestoneStatus{
		MilestoneStatusPending, MilestoneStatusInProgress,
		MilestoneStatusSubmitted, MilestoneStatusApproved, MilestoneStatusPaid,
	}
	for i := 0; i < len(chain)-1; i++ {
		assert.True(t, chain[i].CanTransitionTo(chain[i+1]), "%s -> %s", chain[i], chain[i+1])
	}

	assert.False(t, MilestoneStatusPending.CanTransitionTo(MilestoneStatusSubmitted))
	assert.False(t, MilestoneStatusSubmitted.CanTransitionTo(MilestoneStatusInProgress))
	assert.False(t, MilestoneStatusPaid.CanTransitionTo(MilestoneStatusApproved))
}

func TestDeriveOrderStatus(t *testing.T) {
	assert.Equal(t, OrderStatusPending, DeriveOrderStatus(EscrowStatusFunded, false))
	assert.Equal(t, OrderStatusInProgress, DeriveOrderStatus(EscrowStatusFunded, true))
	assert.Equal(t, OrderStatusInProgress, DeriveOrderStatus(EscrowStatusWorkSubmitted, true))
	assert.Equal(t, OrderStatusInProgress, DeriveOrderStatus(EscrowStatusApproved, true))
	assert.Equal(t, OrderStatusDisputed, DeriveOrderStatus(EscrowStatusDisputed, true))
	assert.Equal(t, OrderStatusCompleted, DeriveOrderStatus(EscrowStatusReleased, true))
	assert.Equal(t, OrderStatusCancelled, DeriveOrderStatus(EscrowStatusRefunded, true))
}

func TestNewEscrowStatus(t *testing.T) {
	s, err := NewEscrowStatus("funded")
	assert.NoError(t, err)
	assert.Equal(t, EscrowStatusFunded, s)

	_, err = NewEscrowStatus("held")
	assert.Error(t, err)
}
