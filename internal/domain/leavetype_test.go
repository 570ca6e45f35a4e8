package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leavedesk/internal/domain"
)

func TestParseLeaveType(t *testing.T) {
	t.Run("canonical values", func(t *testing.T) {
		got, ok := domain.ParseLeaveType("CASUAL")
		assert.True(t, ok)
		assert.Equal(t, domain.LeaveTypeCasual, got)
	})

	t.Run("legacy aliases resolve", func(t *testing.T) {
		for alias, want := range map[string]domain.LeaveType{
			"EARNED_LEAVE": domain.LeaveTypeEarned,
			"CL":           domain.LeaveTypeCasual,
			"SL":           domain.LeaveTypeSick,
		} {
			got, ok := domain.ParseLeaveType(alias)
			assert.True(t, ok, alias)
			assert.Equal(t, want, got, alias)
		}
	})

	t.Run("unknown value", func(t *testing.T) {
		_, ok := domain.ParseLeaveType("VACATION")
		assert.False(t, ok)
	})
}

func TestLeaveTypeHasBalance(t *testing.T) {
	for _, lt := range domain.BalanceLeaveTypes {
		assert.True(t, lt.HasBalance(), string(lt))
	}
	assert.False(t, domain.LeaveTypeMaternity.HasBalance())
	assert.False(t, domain.LeaveTypeSabbatical.HasBalance())
}

func TestLeaveTypeDisplayName(t *testing.T) {
	// Earned days live in the combined casual pool, the label says so.
	assert.Equal(t, "Casual/Earned Leave", domain.LeaveTypeEarned.DisplayName())
	assert.Equal(t, "Casual/Earned Leave", domain.LeaveTypeCasual.DisplayName())
	assert.Equal(t, "Comp Off", domain.LeaveTypeCompOff.DisplayName())
}
