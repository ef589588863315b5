// Package api implements the HTTP client for the fleet backend: the auth
// endpoints, the current-user endpoint, and the item collections. All
// responses arrive wrapped in a {"data": ...} envelope.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/JHMR18/truck-drive/internal/config"
	apperrors "github.com/JHMR18/truck-drive/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is the low-level backend client. The http.Client it wraps is
// expected to carry the bearer token (see session.Manager's TokenSource);
// unauthenticated endpoints pass an explicit token or none at all.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a new backend client
func NewClient(baseURL string, httpClient *http.Client, cfg config.HTTPConfig, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  logger,
	}
}

// envelope is the backend's standard response wrapper
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []apiError      `json:"errors"`
}

type apiError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// do performs a JSON request and decodes the data envelope into out.
// bearer, when non-empty, overrides whatever the transport would attach.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, bearer string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.errorFromResponse(method, path, resp)
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("response has no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}

	return nil
}

func (c *Client) errorFromResponse(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := http.StatusText(resp.StatusCode)
	code := apperrors.ErrCodeRequestFailed

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Errors) > 0 {
		if env.Errors[0].Message != "" {
			message = env.Errors[0].Message
		}
		if env.Errors[0].Extensions.Code != "" {
			code = env.Errors[0].Extensions.Code
		}
	}

	c.logger.Warn("backend request failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("code", code),
	)

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NewAppError(apperrors.ErrCodeNotFound, message, resp.StatusCode)
	}
	return apperrors.NewAppError(code, message, resp.StatusCode)
}
