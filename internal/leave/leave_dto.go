package leave

type ApplyLeaveRequest struct {
	LeaveType string `json:"leave_type" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

type DecideRequest struct {
	Action string  `json:"action" binding:"required,oneof=APPROVE REJECT"`
	Note   *string `json:"note"`
}

type ClaimCompOffRequest struct {
	WorkDate string `json:"work_date" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

type LeaveResponse struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id"`
	LeaveType    string  `json:"leave_type"`
	StartDate    string  `json:"start_date"`
	EndDate      *string `json:"end_date,omitempty"`
	DeductedDays string  `json:"deducted_days"`
	Reason       string  `json:"reason,omitempty"`
	Status       string  `json:"status"`
	ApproverID   string  `json:"approver_id"`
	DecisionNote *string `json:"decision_note,omitempty"`
	DecidedBy    *string `json:"decided_by,omitempty"`
	DecidedAt    *string `json:"decided_at,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

type CompOffResponse struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	WorkDate   string  `json:"work_date"`
	Reason     string  `json:"reason"`
	Status     string  `json:"status"`
	ApproverID string  `json:"approver_id"`
	DecidedBy  *string `json:"decided_by,omitempty"`
	DecidedAt  *string `json:"decided_at,omitempty"`
}
