// Package syncapi is a typed client for the sync lipsync generation API.
//
// The client authenticates with an API key (x-api-key header), validates
// request payloads before they leave the process, and retries idempotent
// reads with exponential backoff.
package syncapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/ybbus/httpretry"
)

// DefaultBaseURL is the production endpoint of the sync API.
const DefaultBaseURL = "https://api.sync.so"

const (
	defaultTimeout    = 60 * time.Second
	defaultUserAgent  = "cashwave-lipsync-backend/1.0"
	maxErrorBodyBytes = 2048
)

// Client talks to the sync API. Zero value is not usable; construct with
// NewClient.
type Client struct {
	httpClient  *http.Client
	retryClient *http.Client
	baseURL     string
	apiKey      string
	userAgent   string
	logger      zerolog.Logger
	validate    *validator.Validate

	Generations *GenerationsService
}

type Option func(*Client)

// WithBaseURL points the client at a different endpoint, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(u), "/") }
}

// WithHTTPClient replaces the underlying transport for non-retried calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = strings.TrimSpace(ua) }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		userAgent:  defaultUserAgent,
		logger:     zerolog.Nop(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(c)
	}
	// Reads go through a retrying client; writes are never replayed.
	c.retryClient = httpretry.NewCustomClient(
		&http.Client{Timeout: c.httpClient.Timeout, Transport: c.httpClient.Transport},
		httpretry.WithMaxRetryCount(3),
		httpretry.WithBackoffPolicy(httpretry.ExponentialBackoff(500*time.Millisecond, 10*time.Second, 100*time.Millisecond)),
	)
	c.Generations = &GenerationsService{client: c}
	return c, nil
}

func (c *Client) validateStruct(s any) error {
	if err := c.validate.Struct(s); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// do sends one JSON request and decodes the JSON response into out.
// GETs use the retrying client.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.httpClient
	if method == http.MethodGet {
		hc = c.retryClient
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("sync api call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
		RequestID:  resp.Header.Get("x-request-id"),
	}
	var parsed struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Code != "" {
			apiErr.Code = parsed.Code
		}
		if parsed.Message != "" {
			apiErr.Message = parsed.Message
		}
	}

	// Client mistakes won't resolve with a retry; rate limits might.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusRequestTimeout {
		return NewPermanentError(apiErr)
	}
	return apiErr
}
