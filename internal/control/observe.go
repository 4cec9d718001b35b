// Package control is the HTTP client side of the earthsim API. Observer reads
// planet state; Actor triggers events and steers the scheduler.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/talgya/earthsim/internal/display"
	"github.com/talgya/earthsim/internal/ecosystem"
)

// Status mirrors GET /api/v1/status.
type Status struct {
	Name           string                      `json:"name"`
	Tick           uint64                      `json:"tick"`
	Running        bool                        `json:"running"`
	IntervalMS     int64                       `json:"interval_ms"`
	Snapshot       ecosystem.Snapshot          `json:"snapshot"`
	Environment    ecosystem.EnvironmentFactor `json:"environment"`
	LastEvent      string                      `json:"last_event"`
	Changes        ecosystem.Changes           `json:"changes"`
	ShowEffect     bool                        `json:"show_effect"`
	Display        display.Indicators          `json:"display"`
	DisplayChanges map[string]string           `json:"display_changes"`
}

// EventKind mirrors items from GET /api/v1/events.
type EventKind struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// Observer fetches planet state from the API.
type Observer struct {
	BaseURL    string
	Lang       string // optional ?lang= for localized labels
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string, timeout time.Duration) *Observer {
	return &Observer{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Status fetches the current snapshot and presentation state.
func (o *Observer) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := o.fetchJSON(ctx, "/api/v1/status", &st); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	return &st, nil
}

// EventKinds fetches the event list with labels.
func (o *Observer) EventKinds(ctx context.Context) ([]EventKind, error) {
	var kinds []EventKind
	if err := o.fetchJSON(ctx, "/api/v1/events", &kinds); err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	return kinds, nil
}

// WaitReady polls the status endpoint with exponential backoff until it
// answers 200 or ctx is done.
func (o *Observer) WaitReady(ctx context.Context) error {
	backoff := 100 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/v1/status", nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		resp, err := o.HTTPClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		slog.Debug("earthsim not ready, retrying", "backoff", backoff)
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for API: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// fetchJSON GETs a path and decodes the JSON response into out.
func (o *Observer) fetchJSON(ctx context.Context, path string, out any) error {
	target := o.BaseURL + path
	if o.Lang != "" {
		target += "?lang=" + url.QueryEscape(o.Lang)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
