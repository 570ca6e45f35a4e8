package domain

// LeaveType is the closed set of leave categories. Persisted as its string
// value, so renaming a constant is a data migration.
type LeaveType string

const (
	LeaveTypeCasual     LeaveType = "CASUAL"
	LeaveTypeSick       LeaveType = "SICK"
	LeaveTypeEarned     LeaveType = "EARNED"
	LeaveTypeWFH        LeaveType = "WFH"
	LeaveTypeCompOff    LeaveType = "COMP_OFF"
	LeaveTypeMaternity  LeaveType = "MATERNITY"
	LeaveTypeSabbatical LeaveType = "SABBATICAL"
)

// BalanceLeaveTypes are the types that carry a balance row. MATERNITY and
// SABBATICAL are status-only and never touch the ledger.
var BalanceLeaveTypes = []LeaveType{
	LeaveTypeCasual,
	LeaveTypeSick,
	LeaveTypeEarned,
	LeaveTypeWFH,
	LeaveTypeCompOff,
}

// legacyAliases maps persisted values from earlier schema generations to the
// current set. EARNED stopped being an applicable type when the casual pool
// absorbed it; stored rows still say EARNED and must keep resolving.
var legacyAliases = map[string]LeaveType{
	"EARNED_LEAVE": LeaveTypeEarned,
	"CL":           LeaveTypeCasual,
	"SL":           LeaveTypeSick,
}

func ParseLeaveType(s string) (LeaveType, bool) {
	switch LeaveType(s) {
	case LeaveTypeCasual, LeaveTypeSick, LeaveTypeEarned, LeaveTypeWFH,
		LeaveTypeCompOff, LeaveTypeMaternity, LeaveTypeSabbatical:
		return LeaveType(s), true
	}
	if alias, ok := legacyAliases[s]; ok {
		return alias, true
	}
	return "", false
}

// HasBalance reports whether the type carries a balance row.
func (t LeaveType) HasBalance() bool {
	switch t {
	case LeaveTypeCasual, LeaveTypeSick, LeaveTypeEarned, LeaveTypeWFH, LeaveTypeCompOff:
		return true
	}
	return false
}

// DisplayName is the user-facing label. EARNED renders as the combined
// casual/earned pool it now belongs to.
func (t LeaveType) DisplayName() string {
	switch t {
	case LeaveTypeCasual, LeaveTypeEarned:
		return "Casual/Earned Leave"
	case LeaveTypeSick:
		return "Sick Leave"
	case LeaveTypeWFH:
		return "Work From Home"
	case LeaveTypeCompOff:
		return "Comp Off"
	case LeaveTypeMaternity:
		return "Maternity Leave"
	case LeaveTypeSabbatical:
		return "Sabbatical Leave"
	}
	return string(t)
}

// ChangeType classifies a balance ledger entry.
type ChangeType string

const (
	ChangeDeduction        ChangeType = "DEDUCTION"
	ChangeRefund           ChangeType = "REFUND"
	ChangeAccrual          ChangeType = "ACCRUAL"
	ChangeYearlyReset      ChangeType = "YEARLY_RESET"
	ChangeManualAdjustment ChangeType = "MANUAL_ADJUSTMENT"
	ChangeInitial          ChangeType = "INITIAL"
)
