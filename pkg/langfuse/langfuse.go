// Package langfuse is a minimal client for the Langfuse ingestion API, used
// as the external tracing collector. Delivery is fire-and-forget: callers
// must never fail a user-facing turn on a collector error.
package langfuse

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

	"github.com/google/uuid"
)

type Config struct {
	Host      string        `envconfig:"HOST" split_words:"true" default:"https://cloud.langfuse.com"`
	PublicKey string        `envconfig:"PUBLIC_KEY" split_words:"true" required:"true"`
	SecretKey string        `envconfig:"SECRET_KEY" split_words:"true" required:"true"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type Client struct {
	baseURL    string
	publicKey  string
	secretKey  string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if baseURL == "" {
		return nil, errors.New("langfuse host is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid langfuse host: %w", err)
	}
	if strings.TrimSpace(cfg.PublicKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("langfuse keys are required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		publicKey:  strings.TrimSpace(cfg.PublicKey),
		secretKey:  strings.TrimSpace(cfg.SecretKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

type ingestionItem struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Body      any       `json:"body"`
}

type ingestionBatch struct {
	Batch []ingestionItem `json:"batch"`
}

// SendEvent posts one named event to the ingestion endpoint.
func (c *Client) SendEvent(ctx context.Context, name string, at time.Time, payload any) error {
	body, err := json.Marshal(ingestionBatch{
		Batch: []ingestionItem{{
			ID:        uuid.NewString(),
			Type:      "event-create",
			Timestamp: at.UTC(),
			Body: map[string]any{
				"id":        uuid.NewString(),
				"name":      name,
				"startTime": at.UTC(),
				"metadata":  payload,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("marshal ingestion batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/public/ingestion", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ingestion request: %w", err)
	}
	req.SetBasicAuth(c.publicKey, c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute ingestion request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("langfuse ingestion status=%d", resp.StatusCode)
	}
	return nil
}
