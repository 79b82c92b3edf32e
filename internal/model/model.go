package model

import "loan-advisor/internal/rules"

type ChatRequest struct {
	Message      string `json:"message"`
	SessionID    string `json:"session_id"`
	UserLanguage string `json:"user_language,omitempty"`
	// Audio is optional base64-encoded speech input, transcribed when the
	// message text is empty and an STT collaborator is configured.
	Audio string `json:"audio,omitempty"`
}

type ChatResponse struct {
	Response           string         `json:"response"`
	SessionID          string         `json:"session_id"`
	Intent             string         `json:"intent"`
	State              string         `json:"state"`
	ExtractedData      map[string]any `json:"extracted_data,omitempty"`
	EligibilityResult  *rules.Verdict `json:"eligibility_result,omitempty"`
	NeedsClarification bool           `json:"needs_clarification"`
	MissingInfo        []string       `json:"missing_info,omitempty"`
	PipelineStatus     []StageStatus  `json:"pipeline_status,omitempty"`
}

type StageStatus struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Millis int64  `json:"millis"`
}

// EligibilityCheckRequest feeds the direct verdict endpoint, bypassing
// extraction. Currency fields are rupees.
type EligibilityCheckRequest struct {
	MonthlyIncome          float64 `json:"monthly_income" binding:"required"`
	Age                    int     `json:"age" binding:"required"`
	EmploymentMonths       int     `json:"employment_months"`
	LoanType               string  `json:"loan_type" binding:"required"`
	LoanAmountRequested    float64 `json:"loan_amount_requested"`
	LoanTenureYears        int     `json:"loan_tenure_years"`
	ExistingLoansEMI       float64 `json:"existing_loans_emi"`
	ExistingCardMinPayment float64 `json:"existing_credit_cards_min_payment"`
}

type EligibilityCheckResponse struct {
	Eligibility *rules.Verdict `json:"eligibility,omitempty"`
	Missing     []string       `json:"missing,omitempty"`
	Message     string         `json:"message"`
}

// SessionSnapshot is the merged per-session view returned by the session
// endpoints. Currency fields are rupees.
type SessionSnapshot struct {
	SessionID string         `json:"session_id"`
	State     string         `json:"state"`
	Profile   map[string]any `json:"profile"`
	TurnCount int            `json:"turn_count"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}
