package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loan-advisor/internal/rules"
	"loan-advisor/internal/session"
)

func chatCompletion(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q}}]}`, content)
}

func TestLLMClientChat(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, chatCompletion("hello from the model"))
	}))
	defer srv.Close()

	c := NewLLMClient(srv.URL, "secret", "test-model", 5*time.Second)
	reply, err := c.chat(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "hello from the model" {
		t.Errorf("reply = %q", reply)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Errorf("model = %v", gotBody["model"])
	}
}

func TestLLMClientRetriesOnce(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, chatCompletion("second time lucky"))
	}))
	defer srv.Close()

	c := NewLLMClient(srv.URL, "", "m", 5*time.Second)
	reply, err := c.chat(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "second time lucky" || calls != 2 {
		t.Errorf("reply = %q, calls = %d", reply, calls)
	}
}

func TestLLMClientGivesUpAfterRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewLLMClient(srv.URL, "", "m", 5*time.Second)
	if _, err := c.chat(context.Background(), "s", "u"); err == nil {
		t.Fatal("want error after exhausted retries")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestLLMClientEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := NewLLMClient(srv.URL, "", "m", 5*time.Second)
	if _, err := c.chat(context.Background(), "s", "u"); err == nil {
		t.Fatal("want error on empty choices")
	}
}

func TestBuildEligibilityPrompt(t *testing.T) {
	v := &rules.Verdict{
		IsEligible:       true,
		EligibleAmount:   rules.FromRupees(500000),
		SuggestedEMI:     rules.FromRupees(10747),
		DTIRatio:         0.21,
		TenureYears:      5,
		TenureWasDefault: true,
	}
	ec := EligibilityContext{
		Verdict:  v,
		Profile:  rules.Profile{MonthlyIncome: rules.FromRupees(50000), Age: 30},
		LoanType: rules.LoanPersonal,
	}

	p := buildEligibilityPrompt(ec, "hindi")
	for _, want := range []string{"Eligible: true", "personal", "Do NOT ask for tenure", "Respond in hindi"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	p = buildEligibilityPrompt(ec, "english")
	if strings.Contains(p, "Respond in") {
		t.Error("english prompt must not carry a language directive")
	}
}

func TestBuildEligibilityPromptRejection(t *testing.T) {
	ec := EligibilityContext{
		Verdict: &rules.Verdict{
			RejectionReasons: []string{"Minimum age required: 21 years. Your age: 18 years"},
		},
		LoanType: rules.LoanPersonal,
	}
	p := buildEligibilityPrompt(ec, "")
	if !strings.Contains(p, "REJECTION REASONS") || !strings.Contains(p, "Minimum age required") {
		t.Errorf("prompt = %q", p)
	}
}

func TestBuildClarificationPrompt(t *testing.T) {
	history := []session.Message{
		{Role: "user", Content: "i want a loan"},
		{Role: "assistant", Content: "which type?"},
	}
	p := buildClarificationPrompt("monthly income", history, "english")
	for _, want := range []string{"MISSING INFORMATION: monthly income", "USER: i want a loan", "ASSISTANT: which type?"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	if got := DetectLanguage("mujhe loan chahiye"); got != "english" {
		t.Errorf("romanized text = %q, want english", got)
	}
	if got := DetectLanguage("मुझे लोन चाहिए"); got != "hindi" {
		t.Errorf("devanagari text = %q, want hindi", got)
	}
}
