// Package gemini is a minimal client for the generateContent endpoint of the
// Google Generative Language API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultTimeout = 60 * time.Second

	maxErrorBody = 4 << 10
)

var (
	ErrNoCandidate  = errors.New("no candidate content in response")
	ErrMissingKey   = errors.New("api key is empty")
	ErrMissingModel = errors.New("model name is empty")
)

type Part struct {
	Text string `json:"text"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type GenerateContentRequest struct {
	Contents []Content `json:"contents"`
}

// TextRequest wraps prompt as a single user turn.
func TextRequest(prompt string) GenerateContentRequest {
	return GenerateContentRequest{
		Contents: []Content{{Parts: []Part{{Text: prompt}}}},
	}
}

type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

type SafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
}

type PromptFeedback struct {
	BlockReason   string         `json:"blockReason,omitempty"`
	SafetyRatings []SafetyRating `json:"safetyRatings,omitempty"`
}

type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
}

// FirstText returns the text of the first part of the first candidate.
func (r *GenerateContentResponse) FirstText() (string, bool) {
	if r == nil || len(r.Candidates) == 0 {
		return "", false
	}
	content := r.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", false
	}
	return content.Parts[0].Text, true
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gemini api error (%d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini api error (%d)", e.StatusCode)
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type Client struct {
	baseURL string
	http    HTTPDoer
}

type Option func(*Client)

func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateContent performs one generateContent call. It never retries.
func (c *Client) GenerateContent(ctx context.Context, model, apiKey string, req GenerateContentRequest) (*GenerateContentResponse, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingKey
	}
	if strings.TrimSpace(model) == "" {
		return nil, ErrMissingModel
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(model), url.QueryEscape(apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", redactKey(err, apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp)
	}

	var out GenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	return &out, nil
}

// GenerateText sends prompt and returns the first candidate's text. When the
// response carries no text the error describes the safety feedback.
func (c *Client) GenerateText(ctx context.Context, model, apiKey, prompt string) (string, error) {
	resp, err := c.GenerateContent(ctx, model, apiKey, TextRequest(prompt))
	if err != nil {
		return "", err
	}
	text, ok := resp.FirstText()
	if !ok {
		return "", NoCandidate(resp)
	}
	return text, nil
}

// NoCandidateError is returned when a response carries no text. It matches
// ErrNoCandidate and names the first safety rating, printing "<nil>" for
// anything missing.
type NoCandidateError struct {
	Category    string
	Probability string
}

func (e *NoCandidateError) Error() string {
	return fmt.Sprintf("Failed to generate content. Finish reason: %s, Probability: %s", e.Category, e.Probability)
}

func (e *NoCandidateError) Is(target error) bool {
	return target == ErrNoCandidate
}

func NoCandidate(resp *GenerateContentResponse) error {
	e := &NoCandidateError{Category: "<nil>", Probability: "<nil>"}
	if resp != nil && resp.PromptFeedback != nil && len(resp.PromptFeedback.SafetyRatings) > 0 {
		rating := resp.PromptFeedback.SafetyRatings[0]
		e.Category, e.Probability = rating.Category, rating.Probability
	}
	return e
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		if envelope.Error.Status != "" {
			apiErr.Status = envelope.Error.Status
		}
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}

// redactKey keeps the api key out of url.Error messages, which embed the
// request URL.
func redactKey(err error, apiKey string) error {
	msg := err.Error()
	escaped := url.QueryEscape(apiKey)
	if !strings.Contains(msg, apiKey) && !strings.Contains(msg, escaped) {
		return err
	}
	msg = strings.ReplaceAll(msg, escaped, "REDACTED")
	msg = strings.ReplaceAll(msg, apiKey, "REDACTED")
	return errors.New(msg)
}
