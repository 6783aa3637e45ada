// Package remotedetector implements detector.Detector against an external
// HTTP entity-recognition service (spec §6's Detector RPC shape), retrying
// transient failures with github.com/avast/retry-go/v4, grounded on the
// retry pattern in jingkaihe-kodelet's LLM API clients.
package remotedetector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/hfi/privacy-gateway/internal/detector"
	"github.com/hfi/privacy-gateway/internal/domain"
)

// Config configures a remote Detector.
type Config struct {
	BaseURL      string
	APIKey       string
	Attempts     uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
	HTTPClient   *http.Client
}

// Detector calls a remote entity-recognition service.
type Detector struct {
	cfg    Config
	client *http.Client
}

// New returns a remote Detector after probing the service: if the service
// reports api_key_required and cfg.APIKey is empty, New returns an error
// so the caller refuses to start rather than fail on the first real
// request. The error is a plain one, not wrapped around
// wrapper.ErrConfiguration.
func New(ctx context.Context, cfg Config) (*Detector, error) {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	d := &Detector{cfg: cfg, client: cfg.HTTPClient}

	info, err := d.Probe(ctx)
	if err != nil {
		return nil, fmt.Errorf("remotedetector: probing %s: %w", cfg.BaseURL, err)
	}
	if info.APIKeyRequired && cfg.APIKey == "" {
		return nil, fmt.Errorf("remotedetector: service at %s requires an api key but none is configured", cfg.BaseURL)
	}
	return d, nil
}

type detectRequest struct {
	Texts       []string `json:"texts"`
	Threshold   float64  `json:"threshold,omitempty"`
	EntityTypes []string `json:"entity_types,omitempty"`
}

type wireEntity struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Text  string  `json:"text"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type detectResponse struct {
	Entities [][]wireEntity `json:"entities"`
}

// Detect implements detector.Detector, retrying the HTTP call with
// exponential backoff and surfacing ErrDetectorUnavailable once attempts
// are exhausted.
func (d *Detector) Detect(ctx context.Context, texts []string, threshold float64) ([][]domain.Entity, error) {
	if texts == nil {
		return nil, detector.ErrInvalidInput
	}

	body, err := json.Marshal(detectRequest{Texts: texts, Threshold: threshold})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", detector.ErrInvalidInput, err)
	}

	var resp detectResponse
	err = retry.Do(
		func() error {
			return d.post(ctx, "/detect", body, &resp)
		},
		retry.Attempts(d.cfg.Attempts),
		retry.Delay(d.cfg.InitialDelay),
		retry.MaxDelay(d.cfg.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Msg("retrying remote detector call")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detector.ErrDetectorUnavailable, err)
	}

	out := make([][]domain.Entity, len(resp.Entities))
	for i, ents := range resp.Entities {
		converted := make([]domain.Entity, len(ents))
		for j, e := range ents {
			converted[j] = domain.Entity{Start: e.Start, End: e.End, Text: e.Text, Label: e.Label, Score: e.Score}
		}
		out[i] = converted
	}
	return out, nil
}

type infoResponse struct {
	SupportedLabels  []string `json:"supported_labels"`
	DefaultThreshold float64  `json:"default_threshold"`
	APIKeyRequired   bool     `json:"api_key_required"`
}

// Probe implements detector.Detector.
func (d *Detector) Probe(ctx context.Context) (detector.Info, error) {
	var resp infoResponse
	err := retry.Do(
		func() error { return d.get(ctx, "/info", &resp) },
		retry.Attempts(d.cfg.Attempts),
		retry.Delay(d.cfg.InitialDelay),
		retry.MaxDelay(d.cfg.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
	if err != nil {
		return detector.Info{}, fmt.Errorf("%w: %v", detector.ErrDetectorUnavailable, err)
	}
	return detector.Info{
		SupportedLabels:  resp.SupportedLabels,
		DefaultThreshold: resp.DefaultThreshold,
		APIKeyRequired:   resp.APIKeyRequired,
	}, nil
}

func (d *Detector) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	d.authorize(req)
	return d.do(req, out)
}

func (d *Detector) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	d.authorize(req)
	return d.do(req, out)
}

func (d *Detector) authorize(req *http.Request) {
	if d.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	}
}

func (d *Detector) do(req *http.Request, out any) error {
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("remote detector returned status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return retry.Unrecoverable(fmt.Errorf("remote detector returned status %d", resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ detector.Detector = (*Detector)(nil)
