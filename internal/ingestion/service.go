package ingestion

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

	"docmgmt-backend/internal/shared/metrics"
	"docmgmt-backend/internal/shared/telemetry"
)

const (
	DefaultTimeout  = 30 * time.Second
	maxUpstreamBody = 1 << 20
)

// ErrNotConfigured is returned when no upstream URL is set.
var ErrNotConfigured = errors.New("ingestion upstream not configured")

// UpstreamError carries a non-2xx answer from the ingestion backend.
type UpstreamError struct {
	Status int
	Body   []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ingestion upstream returned %d", e.Status)
}

// Result is the relay's success body.
type Result struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Service forwards ingestion requests to the processing backend.
type Service struct {
	URL    string
	Client *http.Client
}

func NewService(url string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		URL:    strings.TrimSpace(url),
		Client: &http.Client{Timeout: timeout},
	}
}

// TriggerIngestion posts payload verbatim and returns the upstream answer.
// There are no retries.
func (s *Service) TriggerIngestion(ctx context.Context, payload json.RawMessage) (Result, error) {
	if s == nil || s.URL == "" {
		return Result{}, ErrNotConfigured
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = json.RawMessage("{}")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client().Do(req)
	metrics.ObserveIngestionDurationMs(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.IncIngestionFailed()
		telemetry.Error("ingestion.request_failed", map[string]any{"error": err})
		return Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		metrics.IncIngestionFailed()
		return Result{}, fmt.Errorf("read upstream body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IncIngestionFailed()
		telemetry.Warn("ingestion.upstream_rejected", map[string]any{"status": resp.StatusCode})
		return Result{}, &UpstreamError{Status: resp.StatusCode, Body: body}
	}

	metrics.IncIngestionRelayed()
	telemetry.Info("ingestion.triggered", map[string]any{"status": resp.StatusCode})
	return Result{Message: "Ingestion triggered successfully", Data: decodeBody(body)}, nil
}

func (s *Service) client() *http.Client {
	if s.Client == nil {
		return &http.Client{Timeout: DefaultTimeout}
	}
	return s.Client
}

// decodeBody returns JSON bodies as raw JSON and anything else as text.
func decodeBody(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	return string(body)
}
