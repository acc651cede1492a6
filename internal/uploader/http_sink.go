package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"trackbuf/internal/config"
	"trackbuf/internal/telemetry"
)

const (
	rideSecretHeader = "X-Ride-Secret"
	// metersPerSecondToKPH converts sensor speed to the collector's unit.
	metersPerSecondToKPH = 3.6
)

// HTTPSink posts each record as JSON to the collector's telemetry endpoint.
type HTTPSink struct {
	client    *http.Client
	url       string
	secret    string
	sessionID string
}

type location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type telemetryPayload struct {
	SessionID string   `json:"sessionId"`
	Location  location `json:"location"`
	Speed     float64  `json:"speed"`
	Deviation float64  `json:"deviation"`
	Accuracy  float64  `json:"accuracy"`
	Timestamp int64    `json:"timestamp"`
	IsMock    bool     `json:"isMock"`
}

// NewHTTPSink constructs a sink from uploader configuration. An empty session
// id is replaced with a fresh UUID.
func NewHTTPSink(cfg *config.Config, client *http.Client) (*HTTPSink, error) {
	if cfg == nil {
		return nil, errors.New("http sink requires config")
	}
	endpoint := strings.TrimSpace(cfg.Uploader.CollectorURL)
	if endpoint == "" {
		return nil, errors.New("uploader.collector_url is not configured")
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout()}
	}
	sessionID := cfg.Uploader.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &HTTPSink{
		client:    client,
		url:       endpoint,
		secret:    cfg.Uploader.RideSecret,
		sessionID: sessionID,
	}, nil
}

// SessionID returns the ride session reported with every record.
func (s *HTTPSink) SessionID() string {
	return s.sessionID
}

// Send posts rec to the collector. Any non-2xx response is a delivery failure.
func (s *HTTPSink) Send(ctx context.Context, rec telemetry.Record) error {
	body, err := json.Marshal(telemetryPayload{
		SessionID: s.sessionID,
		Location:  location{Lat: rec.Lat, Lon: rec.Lng},
		Speed:     rec.Speed * metersPerSecondToKPH,
		Timestamp: rec.Timestamp,
		IsMock:    rec.IsMock,
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.secret != "" {
		req.Header.Set(rideSecretHeader, s.secret)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post telemetry: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector responded %s", resp.Status)
	}
	return nil
}
