package policy

type UpsertPolicyRequest struct {
	Year        int     `json:"year" binding:"required"`
	CasualQuota float64 `json:"casual_quota" binding:"min=0"`
	SickQuota   float64 `json:"sick_quota" binding:"min=0"`
	WFHQuota    float64 `json:"wfh_quota" binding:"min=0"`
}

type PolicyResponse struct {
	ID          string `json:"id"`
	Year        int    `json:"year"`
	CasualQuota string `json:"casual_quota"`
	SickQuota   string `json:"sick_quota"`
	WFHQuota    string `json:"wfh_quota"`
}
