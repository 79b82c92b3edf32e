package service

import (
	"context"
	"encoding/json"
	"fmt"

	"loan-advisor/internal/logger"
	"loan-advisor/internal/model"
	"loan-advisor/internal/session"

	"gorm.io/gorm"
)

// AuditRecorder writes turn records to MySQL. A nil receiver or nil db is a
// no-op, so the pipeline never depends on the database being up.
type AuditRecorder struct {
	db *gorm.DB
}

func NewAuditRecorder(db *gorm.DB) (*AuditRecorder, error) {
	if db == nil {
		return nil, nil
	}
	if err := db.AutoMigrate(&model.TurnRecord{}); err != nil {
		return nil, fmt.Errorf("migrate audit table: %w", err)
	}
	return &AuditRecorder{db: db}, nil
}

func (a *AuditRecorder) Record(ctx context.Context, sessionID string, t session.Turn) {
	if a == nil || a.db == nil {
		return
	}
	extracted, _ := json.Marshal(t.Extracted)
	rec := model.TurnRecord{
		SessionID: sessionID,
		TurnID:    t.ID,
		Input:     t.Input,
		Intent:    t.Intent,
		Extracted: string(extracted),
		Response:  t.Response,
		CreatedAt: t.CreatedAt,
	}
	if t.Verdict != nil {
		rec.IsEligible = &t.Verdict.IsEligible
	}
	if err := a.db.WithContext(ctx).Create(&rec).Error; err != nil {
		logger.Error("audit.record failed", "session_id", sessionID, "err", err)
	}
}
