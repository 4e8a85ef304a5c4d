// Package ai generates hotspot content through an OpenAI-compatible
// chat-completions endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gearxr/gear/internal/config"
	"github.com/gearxr/gear/internal/parser"
)

var (
	// ErrNotConfigured is returned when generation is disabled or has no key.
	ErrNotConfigured = errors.New("ai generation not configured")
	// ErrInvalidJSON is returned when a quiz reply is not a JSON object.
	ErrInvalidJSON = errors.New("generated quiz is not valid JSON")
)

// APIError carries a non-200 status from the completions endpoint.
type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completions endpoint returned status %d", e.StatusCode)
}

const (
	basePrompt = "You are a helpful assistant for an Augmented/Virtual Reality learning platform. "
	quizPrompt = basePrompt +
		"Generate a multiple choice question based on the user's topic. " +
		`Return ONLY valid JSON with this structure: { "question": "Question text", "options": ["A", "B", "C"], "correct": 0, "points": 10, "explanation": "Optional explanation" }. ` +
		"Ensure correct index is 0-based. Do not include markdown formatting."
	infoPrompt = basePrompt +
		"Write a short, engaging description (max 50 words) about the topic suitable for a popup info card."

	temperature = 0.7
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Client calls the completions endpoint.
type Client struct {
	cfg        config.AIConfig
	httpClient *http.Client
}

// New creates a client from the ai config section.
func New(cfg config.AIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether generation can be attempted.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled && c.cfg.APIKey != ""
}

// Generate returns content for prompt. kind "quiz" yields a JSON object with
// code fences removed; any other kind yields a short description verbatim.
func (c *Client) Generate(ctx context.Context, prompt, kind string) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	system := infoPrompt
	if kind == "quiz" {
		system = quizPrompt
	}
	body, err := json.Marshal(completionRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: "Topic: " + prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completions request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || len(raw) == 0 {
		return "", &APIError{StatusCode: resp.StatusCode}
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	content := ""
	if len(out.Choices) > 0 {
		content = out.Choices[0].Message.Content
	}

	if kind != "quiz" {
		return content, nil
	}
	content = parser.StripCodeFence(content)
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err != nil || len(obj) == 0 {
		return "", ErrInvalidJSON
	}
	return strings.TrimSpace(content), nil
}
