package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"loan-advisor/internal/logger"
	"loan-advisor/internal/rules"
	"loan-advisor/internal/session"
)

// FallbackReply is substituted when the response generator fails or times
// out. The user never sees a raw error.
const FallbackReply = "I apologize, but I'm having trouble processing your request. Please try again."

const systemPrompt = `You are a friendly, empathetic AI loan advisor. You help users understand loan eligibility and guide them through the application process.

RULES:
- DO NOT calculate EMI, DTI, or eligibility yourself - you receive these calculations
- DO NOT make up numbers - only use the data provided to you
- If information is missing, ask ONE specific question at a time
- Keep responses concise (2-4 sentences for simple queries, up to 6 for explanations)
- Use simple conversational language; explain financial jargon when you must use it
- Respond in the user's language; follow their lead for code-mixed messages`

// EligibilityContext is the structured verdict data handed to the generator
// so the model explains rather than computes.
type EligibilityContext struct {
	Verdict   *rules.Verdict
	Profile   rules.Profile
	Requested rules.Money
	LoanType  rules.LoanType
}

// LLMClient talks to an OpenAI-compatible chat-completions endpoint. Calls
// are bounded by a timeout and retried once before the caller falls back.
type LLMClient struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
}

func NewLLMClient(baseURL, apiKey, model string, timeout time.Duration) *LLMClient {
	return &LLMClient{baseURL: baseURL, apiKey: apiKey, model: model, timeout: timeout, client: &http.Client{}}
}

func (c *LLMClient) chat(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		reply, err := c.doChat(ctx, system, user)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		logger.Warn("llm.retry", "attempt", attempt, "err", err)
	}
	return "", lastErr
}

func (c *LLMClient) doChat(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("llm status %d: %s", resp.StatusCode, data)
	}

	data, _ := io.ReadAll(resp.Body)
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return result.Choices[0].Message.Content, nil
}

// ExplainEligibility asks the model to put a computed verdict into plain
// words for the user.
func (c *LLMClient) ExplainEligibility(ctx context.Context, ec EligibilityContext, lang string) (string, error) {
	return c.chat(ctx, systemPrompt, buildEligibilityPrompt(ec, lang))
}

// AskClarification asks the model to request one missing field, given recent
// conversation context.
func (c *LLMClient) AskClarification(ctx context.Context, field string, history []session.Message, lang string) (string, error) {
	return c.chat(ctx, systemPrompt, buildClarificationPrompt(field, history, lang))
}

func buildEligibilityPrompt(ec EligibilityContext, lang string) string {
	v := ec.Verdict
	var b strings.Builder
	b.WriteString("Based on the following loan eligibility analysis, provide a clear, friendly explanation to the user.\n\n")
	b.WriteString("ELIGIBILITY RESULTS:\n")
	fmt.Fprintf(&b, "- Loan Type: %s\n", ec.LoanType)
	fmt.Fprintf(&b, "- Eligible: %v\n", v.IsEligible)
	fmt.Fprintf(&b, "- Eligible Amount: %s\n", v.EligibleAmount)
	fmt.Fprintf(&b, "- Requested Amount: %s\n", ec.Requested)
	fmt.Fprintf(&b, "- Suggested EMI: %s/month\n", v.SuggestedEMI)
	fmt.Fprintf(&b, "- Tenure: %d years\n", v.TenureYears)
	fmt.Fprintf(&b, "- Debt-to-Income Ratio: %.1f%%\n", v.DTIRatio*100)
	b.WriteString("\nUSER PROFILE:\n")
	fmt.Fprintf(&b, "- Monthly Income: %s\n", ec.Profile.MonthlyIncome)
	fmt.Fprintf(&b, "- Age: %d years\n", ec.Profile.Age)
	fmt.Fprintf(&b, "- Employment Duration: %d months\n", ec.Profile.EmploymentMonths)

	if v.IsEligible {
		b.WriteString("\nProvide a congratulatory message covering the eligible amount, the EMI and next steps.")
		if v.TenureWasDefault {
			fmt.Fprintf(&b, " The calculation assumes a standard tenure of %d years; mention they can choose a different tenure when applying. Do NOT ask for tenure now.", v.TenureYears)
		}
	} else {
		b.WriteString("\nREJECTION REASONS:\n")
		for _, r := range v.RejectionReasons {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\nProvide an empathetic explanation of why they are not eligible, what they can do to become eligible, and offer encouragement.")
	}
	for _, w := range v.Warnings {
		fmt.Fprintf(&b, "\nIMPORTANT: %s", w)
	}
	if lang != "" && lang != "english" {
		fmt.Fprintf(&b, "\n\nIMPORTANT: Respond in %s.", lang)
	}
	return b.String()
}

func buildClarificationPrompt(field string, history []session.Message, lang string) string {
	var b strings.Builder
	b.WriteString("The user is applying for a loan, but we need more information.\n\n")
	fmt.Fprintf(&b, "MISSING INFORMATION: %s\n\nRECENT CONVERSATION:\n", field)
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(m.Role), m.Content)
	}
	b.WriteString("\nAsk one short, friendly question for exactly this missing information. Do not ask about anything else.")
	if lang != "" && lang != "english" {
		fmt.Fprintf(&b, "\nRespond in %s.", lang)
	}
	return b.String()
}

// DetectLanguage is a coarse heuristic: Devanagari text is answered in
// hindi, everything else in english.
func DetectLanguage(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return "hindi"
		}
	}
	return "english"
}
