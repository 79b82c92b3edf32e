package model

import "time"

// TurnRecord is the durable audit row written per processed turn when the
// audit database is configured. The in-session turn log stays authoritative.
type TurnRecord struct {
	ID         int       `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"index;size:64" json:"session_id"`
	TurnID     string    `gorm:"size:36" json:"turn_id"`
	Input      string    `json:"input"`
	Intent     string    `gorm:"size:32" json:"intent"`
	Extracted  string    `json:"extracted"`
	IsEligible *bool     `json:"is_eligible"`
	Response   string    `json:"response"`
	CreatedAt  time.Time `json:"created_at"`
}

func (TurnRecord) TableName() string { return "advisor_turns" }
