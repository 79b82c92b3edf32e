package handler

import (
	"encoding/base64"
	"errors"
	"net/http"

	"loan-advisor/internal/logger"
	"loan-advisor/internal/model"
	"loan-advisor/internal/rules"
	"loan-advisor/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	orch *service.Orchestrator
}

func NewChatHandler(orch *service.Orchestrator) *ChatHandler {
	return &ChatHandler{orch: orch}
}

// Chat runs one conversational turn through the advisory pipeline.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	in := service.ChatInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		Language:  req.UserLanguage,
	}
	if req.Audio != "" {
		audio, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "audio must be base64 encoded"})
			return
		}
		in.Audio = audio
	}

	res, err := h.orch.Process(c.Request.Context(), in)
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message or audio is required"})
		return
	case errors.Is(err, service.ErrNoSpeechInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "speech input is not enabled"})
		return
	case err != nil:
		logger.Error("chat.process failed", "session_id", req.SessionID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	resp := model.ChatResponse{
		Response:           res.Reply,
		SessionID:          res.SessionID,
		Intent:             string(res.Intent),
		State:              string(res.State),
		ExtractedData:      res.Extracted,
		EligibilityResult:  res.Verdict,
		NeedsClarification: len(res.Missing) > 0,
		MissingInfo:        res.Missing,
	}
	for _, s := range res.Stages {
		resp.PipelineStatus = append(resp.PipelineStatus, model.StageStatus{
			Stage:  s.Stage,
			Status: s.Status,
			Error:  s.Error,
			Millis: s.Millis,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// CheckEligibility computes a verdict from explicit fields, bypassing the
// conversational pipeline.
func (h *ChatHandler) CheckEligibility(c *gin.Context) {
	var req model.EligibilityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "monthly_income, age and loan_type are required"})
		return
	}
	loanType, ok := rules.ParseLoanType(req.LoanType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported loan_type"})
		return
	}

	profile := rules.Profile{
		MonthlyIncome:          rules.FromRupees(req.MonthlyIncome),
		Age:                    req.Age,
		EmploymentMonths:       req.EmploymentMonths,
		LoanType:               loanType,
		LoanAmountRequested:    rules.FromRupees(req.LoanAmountRequested),
		LoanTenureMonths:       req.LoanTenureYears * 12,
		ExistingEMI:            rules.FromRupees(req.ExistingLoansEMI),
		ExistingCardMinPayment: rules.FromRupees(req.ExistingCardMinPayment),
	}

	outcome := h.orch.Evaluate(profile)
	resp := model.EligibilityCheckResponse{
		Eligibility: outcome.Verdict,
		Missing:     outcome.Missing,
	}
	switch {
	case outcome.NeedsInfo():
		resp.Message = "More information is required to compute eligibility."
	case outcome.Verdict.IsEligible:
		resp.Message = outcome.Verdict.ApprovalMessage
	default:
		resp.Message = "Not eligible under the current policy."
	}
	c.JSON(http.StatusOK, resp)
}
