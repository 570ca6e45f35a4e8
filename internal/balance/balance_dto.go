package balance

type BalanceResponse struct {
	LeaveType   string `json:"leave_type"`
	DisplayName string `json:"display_name"`
	Balance     string `json:"balance"`
}

type HistoryResponse struct {
	ID               string  `json:"id"`
	LeaveType        string  `json:"leave_type"`
	ChangeAmount     string  `json:"change_amount"`
	PreviousBalance  string  `json:"previous_balance"`
	BalanceAfter     string  `json:"balance_after"`
	ChangeType       string  `json:"change_type"`
	Reason           string  `json:"reason,omitempty"`
	RelatedRequestID *string `json:"related_request_id,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

type SetBalanceRequest struct {
	UserID    string  `json:"user_id" binding:"required,uuid"`
	LeaveType string  `json:"leave_type" binding:"required"`
	Balance   float64 `json:"balance" binding:"min=0"`
	Reason    string  `json:"reason" binding:"required"`
}
