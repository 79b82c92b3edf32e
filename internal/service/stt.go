package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"loan-advisor/internal/logger"
)

// Transcriber converts audio to text. Failure means "no text available"; the
// orchestrator then asks the user to type instead.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, languageHint string) (string, error)
}

// HTTPTranscriber posts audio to an OpenAI-compatible transcription
// endpoint (whisper-style). One retry, bounded timeout.
type HTTPTranscriber struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
}

func NewHTTPTranscriber(baseURL, apiKey, model string, timeout time.Duration) *HTTPTranscriber {
	return &HTTPTranscriber{baseURL: baseURL, apiKey: apiKey, model: model, timeout: timeout, client: &http.Client{}}
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte, languageHint string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		text, err := t.transcribeOnce(ctx, audio, languageHint)
		if err == nil {
			return text, nil
		}
		lastErr = err
		logger.Warn("stt.retry", "attempt", attempt, "err", err)
	}
	return "", lastErr
}

func (t *HTTPTranscriber) transcribeOnce(ctx context.Context, audio []byte, languageHint string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	mw.WriteField("model", t.model)
	if languageHint != "" {
		mw.WriteField("language", languageCode(languageHint))
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("stt status %d: %s", resp.StatusCode, data)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Text == "" {
		return "", fmt.Errorf("empty transcription")
	}
	return result.Text, nil
}

// languageCode maps friendly language names to ISO codes whisper expects.
func languageCode(hint string) string {
	switch hint {
	case "hindi":
		return "hi"
	case "english":
		return "en"
	case "tamil":
		return "ta"
	case "telugu":
		return "te"
	}
	return hint
}
