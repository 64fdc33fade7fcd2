// Package genapi is the HTTP boundary to the remote image generation
// service. The client performs one POST per attempt and hands the raw
// status and body back to the caller; retry decisions live in classify,
// not here.
package genapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultGenerateTimeout bounds one generation call. The server renders
// before responding, so this is deliberately long.
const DefaultGenerateTimeout = 120 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// Request carries the inputs for one generation attempt. It is immutable
// once constructed; one Request per API call. A non-empty Endpoint
// overrides the client default, so per-worker endpoint selection is read
// at call time rather than baked in at construction.
type Request struct {
	Model      string
	Prompt     string
	Ratio      string
	Resolution string
	Credential string
	Endpoint   string
}

// Result is the raw outcome of one HTTP attempt, prior to classification.
// Err covers transport-level failures only; an HTTP error status is
// reported through StatusCode with Err nil.
type Result struct {
	Err        error
	StatusCode int
	Body       []byte
}

// Generator issues generation attempts. The production implementation is
// Client; tests substitute a scripted fake.
type Generator interface {
	Generate(ctx context.Context, req Request) Result
}

// wireRequest is the JSON body shape the service expects.
type wireRequest struct {
	Model      string `json:"model"`
	Prompt     string `json:"prompt"`
	Ratio      string `json:"ratio"`
	Resolution string `json:"resolution"`
}

// Client calls the generation endpoint over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a Client for the given endpoint. A zero timeout uses
// DefaultGenerateTimeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = DefaultGenerateTimeout
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Generate performs one POST to the generation endpoint with the rotating
// credential in the Authorization header. Timeouts and connection failures
// surface through Result.Err.
func (c *Client) Generate(ctx context.Context, req Request) Result {
	payload, err := json.Marshal(wireRequest{
		Model:      req.Model,
		Prompt:     req.Prompt,
		Ratio:      req.Ratio,
		Resolution: req.Resolution,
	})
	if err != nil {
		return Result{Err: fmt.Errorf("marshal request: %w", err)}
	}

	endpoint := c.endpoint
	if req.Endpoint != "" {
		endpoint = req.Endpoint
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer sg-"+req.Credential)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{Err: fmt.Errorf("post %s: %w", endpoint, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{Err: fmt.Errorf("read response: %w", err)}
	}

	return Result{StatusCode: resp.StatusCode, Body: body}
}
