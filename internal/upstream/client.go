package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/presetworks/overseer/internal/setup/config"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("resource not found")

// APIError is a non-2xx response from the upstream API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream API error (%d): %s", e.StatusCode, e.Message)
}

// Service is the consumer-facing surface of the preset API. Handlers depend
// on this interface so tests can substitute a fake.
type Service interface {
	ListPresets(ctx context.Context, search string, status Status, limit int) ([]*Preset, error)
	GetPreset(ctx context.Context, id uuid.UUID) (*Preset, error)
	ListPending(ctx context.Context) ([]*Preset, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status, reason string, actor Actor) (*Preset, error)
	Revert(ctx context.Context, id uuid.UUID, reason string, actor Actor) (*Preset, error)
	GetStats(ctx context.Context) (*Stats, error)
	GetHistory(ctx context.Context, id uuid.UUID) ([]*HistoryEntry, error)
}

// Client talks to the preset-management API. Two transport modes are
// supported transparently: plain HTTP against a base URL, or an in-process
// http.Handler binding; callers never know which is active.
type Client struct {
	http          *http.Client
	baseURL       string
	token         string
	signingSecret string
	logger        *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithBinding routes requests to an in-process handler instead of the network.
func WithBinding(handler http.Handler) Option {
	return func(c *Client) {
		c.http = &http.Client{Transport: bindingTransport{handler: handler}}
		c.baseURL = "http://upstream.local"
	}
}

// NewClient creates a preset API client from configuration.
func NewClient(cfg *config.Upstream, logger *zap.Logger, opts ...Option) *Client {
	client := &Client{
		http: &http.Client{
			// A stalled upstream must never hold a deferred task open indefinitely
			Timeout: time.Duration(cfg.RequestTimeout) * time.Millisecond,
		},
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		token:         cfg.Token,
		signingSecret: cfg.SigningSecret,
		logger:        logger.Named("upstream"),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ListPresets returns presets matching the search term and status filter.
func (c *Client) ListPresets(ctx context.Context, search string, status Status, limit int) ([]*Preset, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}

	if status != "" {
		query.Set("status", string(status))
	}

	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var presets []*Preset
	if err := c.do(ctx, http.MethodGet, "/presets", query, nil, &presets, Actor{}); err != nil {
		return nil, err
	}

	return presets, nil
}

// GetPreset fetches a single preset. A missing preset is returned as nil, nil.
func (c *Client) GetPreset(ctx context.Context, id uuid.UUID) (*Preset, error) {
	var preset Preset

	err := c.do(ctx, http.MethodGet, "/presets/"+id.String(), nil, nil, &preset, Actor{})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &preset, nil
}

// ListPending returns all presets awaiting moderation.
func (c *Client) ListPending(ctx context.Context) ([]*Preset, error) {
	var presets []*Preset
	if err := c.do(ctx, http.MethodGet, "/presets/pending", nil, nil, &presets, Actor{}); err != nil {
		return nil, err
	}

	return presets, nil
}

// SetStatus requests an approved/rejected transition for a preset.
func (c *Client) SetStatus(ctx context.Context, id uuid.UUID, status Status, reason string, actor Actor) (*Preset, error) {
	body := map[string]string{"status": string(status)}
	if reason != "" {
		body["reason"] = reason
	}

	var preset Preset
	if err := c.do(ctx, http.MethodPatch, "/presets/"+id.String()+"/status", nil, body, &preset, actor); err != nil {
		return nil, err
	}

	return &preset, nil
}

// Revert rolls a preset back to its previous moderation state.
func (c *Client) Revert(ctx context.Context, id uuid.UUID, reason string, actor Actor) (*Preset, error) {
	var preset Preset

	body := map[string]string{"reason": reason}
	if err := c.do(ctx, http.MethodPatch, "/presets/"+id.String()+"/revert", nil, body, &preset, actor); err != nil {
		return nil, err
	}

	return &preset, nil
}

// GetStats fetches moderation queue statistics.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &stats, Actor{}); err != nil {
		return nil, err
	}

	return &stats, nil
}

// GetHistory fetches the moderation history of a preset.
func (c *Client) GetHistory(ctx context.Context, id uuid.UUID) ([]*HistoryEntry, error) {
	var entries []*HistoryEntry
	if err := c.do(ctx, http.MethodGet, "/presets/"+id.String()+"/history", nil, nil, &entries, Actor{}); err != nil {
		return nil, err
	}

	return entries, nil
}

func (c *Client) do(
	ctx context.Context, method, path string, query url.Values, body, out any, actor Actor,
) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader

	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if actor.ID != "" {
		req.Header.Set("X-Actor-ID", actor.ID)
	}

	if actor.Name != "" {
		req.Header.Set("X-Actor-Name", actor.Name)
	}

	if c.signingSecret != "" {
		timestamp := time.Now().Unix()
		req.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
		req.Header.Set(HeaderSignature, Sign(timestamp, actor.ID, actor.Name, c.signingSecret))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}

		message := strings.TrimSpace(string(data))
		if err := sonic.Unmarshal(data, &apiErr); err == nil {
			if apiErr.Error != "" {
				message = apiErr.Error
			} else if apiErr.Message != "" {
				message = apiErr.Message
			}
		}

		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil && len(data) > 0 {
		if err := sonic.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
