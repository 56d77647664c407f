// Package armor is a REST client for the cloud content-safety classifier.
package armor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
)

// Scope is the OAuth scope requested for application default credentials.
const Scope = "https://www.googleapis.com/auth/cloud-platform"

// Request is the screenContent request body.
type Request struct {
	Parent     string   `json:"parent"`
	Content    string   `json:"content"`
	Categories []string `json:"categories"`
}

// Detection is one classifier finding.
type Detection struct {
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// Response is the screenContent response body.
type Response struct {
	Detections []Detection `json:"detections"`
}

// Config configures a Client.
type Config struct {
	Project  string
	Location string
	// Endpoint overrides the regional API base URL.
	Endpoint string
	Timeout  time.Duration
	// HTTPClient skips credential discovery when set.
	HTTPClient *http.Client
}

// Client calls POST {endpoint}/{parent}:screenContent.
type Client struct {
	endpoint string
	parent   string
	http     *http.Client
}

// Parent returns the resource path for project and location.
func Parent(project, location string) string {
	return fmt.Sprintf("projects/%s/locations/%s", project, location)
}

// DefaultEndpoint returns the API base URL for location.
func DefaultEndpoint(location string) string {
	if location == "" || location == "global" {
		return "https://modelarmor.googleapis.com/v1"
	}
	return fmt.Sprintf("https://modelarmor.%s.rep.googleapis.com/v1", location)
}

// NewClient builds a client. Without an injected HTTP client it uses Google
// application default credentials.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("armor: project is required")
	}
	if cfg.Location == "" {
		cfg.Location = "global"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint(cfg.Location)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	hc := cfg.HTTPClient
	if hc == nil {
		var err error
		hc, err = google.DefaultClient(ctx, Scope)
		if err != nil {
			return nil, fmt.Errorf("armor: credentials: %w", err)
		}
	}
	if hc.Timeout == 0 {
		copied := *hc
		copied.Timeout = cfg.Timeout
		hc = &copied
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		parent:   Parent(cfg.Project, cfg.Location),
		http:     hc,
	}, nil
}

// Parent returns the resource path requests are sent under.
func (c *Client) Parent() string { return c.parent }

// Classify screens req.Content. An empty req.Parent uses the client's parent.
func (c *Client) Classify(ctx context.Context, req Request) (*Response, error) {
	if req.Parent == "" {
		req.Parent = c.parent
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("armor: encode request: %w", err)
	}
	url := fmt.Sprintf("%s/%s:screenContent", c.endpoint, req.Parent)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("armor: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("armor: request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("armor: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var out Response
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("armor: decode response: %w", err)
	}
	return &out, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// APIError is a non-2xx reply from the classifier.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("armor: HTTP %d: %s", e.StatusCode, body)
}
