package events

import "time"

const LeaveRequestedTopic = "hr.leave.request.v1"

type LeaveRequestedEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id"`
	UserID     string    `json:"user_id"`
	LeaveType  string    `json:"leave_type"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date,omitempty"`
	ApproverID string    `json:"approver_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
