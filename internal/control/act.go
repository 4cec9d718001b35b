package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/earthsim/internal/engine"
)

// ErrUnauthorized is returned when the API rejects the admin key.
var ErrUnauthorized = errors.New("unauthorized: check EARTHCTL_ADMIN_KEY")

// EventResult mirrors the response of POST /api/v1/event and /api/v1/reset.
type EventResult struct {
	Applied    bool              `json:"applied"`
	Transition engine.Transition `json:"transition"`
}

// CheckpointResult mirrors the response of POST /api/v1/checkpoint.
type CheckpointResult struct {
	Tick    uint64 `json:"tick"`
	Message string `json:"message"`
}

// Actor drives the planet through the control endpoints.
type Actor struct {
	BaseURL    string
	AdminKey   string // sent as a bearer token when set
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL.
func NewActor(baseURL, adminKey string, timeout time.Duration) *Actor {
	return &Actor{
		BaseURL:    baseURL,
		AdminKey:   adminKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Event triggers a named event. A nil intensity lets the server apply its
// default of 1.
func (a *Actor) Event(ctx context.Context, kind string, intensity *float64) (*EventResult, error) {
	body := struct {
		Kind      string   `json:"kind"`
		Intensity *float64 `json:"intensity,omitempty"`
	}{Kind: kind, Intensity: intensity}

	var result EventResult
	if err := a.post(ctx, "/api/v1/event", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetRunning pauses or resumes the scheduler and returns the new state.
func (a *Actor) SetRunning(ctx context.Context, running bool) (bool, error) {
	var result struct {
		Running bool `json:"running"`
	}
	if err := a.post(ctx, "/api/v1/running", map[string]bool{"running": running}, &result); err != nil {
		return false, err
	}
	return result.Running, nil
}

// Toggle flips the scheduler state and returns the new state.
func (a *Actor) Toggle(ctx context.Context) (bool, error) {
	var result struct {
		Running bool `json:"running"`
	}
	if err := a.post(ctx, "/api/v1/toggle", nil, &result); err != nil {
		return false, err
	}
	return result.Running, nil
}

// Reset restores the default planet.
func (a *Actor) Reset(ctx context.Context) (*EventResult, error) {
	var result EventResult
	if err := a.post(ctx, "/api/v1/reset", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Checkpoint asks the server to persist the current snapshot.
func (a *Actor) Checkpoint(ctx context.Context) (*CheckpointResult, error) {
	var result CheckpointResult
	if err := a.post(ctx, "/api/v1/checkpoint", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// post sends body as JSON (or nothing when nil) and decodes the reply into out.
func (a *Actor) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.AdminKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.AdminKey)
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("POST %s: %w", path, ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("POST %s failed (%d): %s", path, resp.StatusCode, bytes.TrimSpace(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
