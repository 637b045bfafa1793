// Package kvhttp talks to a generic key-value HTTP endpoint that stores one
// snapshot per opaque key:
//
//	GET  <endpoint>?gameId=<key>               -> snapshot JSON or null
//	POST <endpoint>?gameId=<key> body=snapshot -> {"success":true}
package kvhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/storage"
)

// KeyParam is the query parameter carrying the game key
const KeyParam = "gameId"

// Config holds endpoint settings
type Config struct {
	// Endpoint is the full URL of the key-value handler (e.g., https://example.com/api/game)
	Endpoint string        `env:"KV_ENDPOINT" envDefault:"http://localhost:8080/api/game"`
	Timeout  time.Duration `env:"KV_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns sensible defaults for the endpoint
func DefaultConfig() Config {
	return Config{
		Endpoint: "http://localhost:8080/api/game",
		Timeout:  10 * time.Second,
	}
}

// SaveResponse is the body returned by a successful POST
type SaveResponse struct {
	Success bool `json:"success"`
}

// Storage is a GameStore backed by the key-value endpoint
type Storage struct {
	endpoint   *url.URL
	httpClient *http.Client
}

// New creates a storage for the configured endpoint
func New(cfg Config) (*Storage, error) {
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid KV endpoint: %w", err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("invalid KV endpoint %q: scheme and host are required", cfg.Endpoint)
	}

	return &Storage{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Ensure Storage implements the interface
var _ storage.GameStore = (*Storage)(nil)

func (s *Storage) SaveGame(ctx context.Context, key string, game *model.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}

	var result SaveResponse
	if err := s.do(ctx, http.MethodPost, key, bytes.NewReader(data), &result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%w: kv endpoint did not confirm save of %q", model.ErrStorageUnavailable, key)
	}
	return nil
}

func (s *Storage) GetGame(ctx context.Context, key string) (*model.Game, error) {
	var game *model.Game
	if err := s.do(ctx, http.MethodGet, key, nil, &game); err != nil {
		return nil, err
	}
	if game == nil {
		return nil, model.ErrGameNotFound
	}
	return game, nil
}

// do performs a request against the endpoint and decodes a 2xx body into result
func (s *Storage) do(ctx context.Context, method, key string, body io.Reader, result any) error {
	u := *s.endpoint
	q := u.Query()
	q.Set(KeyParam, key)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: kv request failed: %w", model.ErrStorageUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read kv response: %w", model.ErrStorageUnavailable, err)
	}

	if resp.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("%w: kv endpoint rejected %q: %s", model.ErrValidation, key, bytes.TrimSpace(respBody))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: kv endpoint returned HTTP %d: %s", model.ErrStorageUnavailable, resp.StatusCode, bytes.TrimSpace(respBody))
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to parse kv response: %w", err)
	}
	return nil
}
