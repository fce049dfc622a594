// Package metadata resolves asset decimal precision from the off-chain
// token registry. Freshly minted assets may not be published yet, so
// callers must tolerate partial responses.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxBatchSize is the largest number of units one query may carry.
const MaxBatchSize = 50

// DefaultTimeout bounds a single registry request.
const DefaultTimeout = 30 * time.Second

// Decimals is one unit's resolved precision. A nil value means the
// registry has no decimals entry for the unit (fetched, nothing found).
type Decimals struct {
	Unit     string
	Decimals *int
}

// Service answers batched decimal-precision lookups.
type Service interface {
	// Decimals resolves up to MaxBatchSize units. Units the registry
	// does not know are absent from the result (partial response).
	Decimals(ctx context.Context, units []string) ([]Decimals, error)
}

// HTTPClient implements Service against the token-registry batch
// query endpoint.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.client.Timeout = d }
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) { c.client = client }
}

// NewHTTPClient creates a registry client for the given base endpoint.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Service = (*HTTPClient)(nil)

type queryRequest struct {
	Subjects   []string `json:"subjects"`
	Properties []string `json:"properties"`
}

type queryResponse struct {
	Subjects []struct {
		Subject  string `json:"subject"`
		Decimals *struct {
			Value int `json:"value"`
		} `json:"decimals"`
	} `json:"subjects"`
}

// Decimals queries the registry for decimal precision of the units.
func (c *HTTPClient) Decimals(ctx context.Context, units []string) ([]Decimals, error) {
	if len(units) == 0 {
		return nil, nil
	}
	if len(units) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d units exceeds limit %d", len(units), MaxBatchSize)
	}

	body, err := json.Marshal(queryRequest{Subjects: units, Properties: []string{"decimals"}})
	if err != nil {
		return nil, fmt.Errorf("marshal metadata query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("metadata service returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode metadata response: %w", err)
	}

	result := make([]Decimals, 0, len(parsed.Subjects))
	for _, s := range parsed.Subjects {
		d := Decimals{Unit: s.Subject}
		if s.Decimals != nil {
			v := s.Decimals.Value
			d.Decimals = &v
		}
		result = append(result, d)
	}
	return result, nil
}
