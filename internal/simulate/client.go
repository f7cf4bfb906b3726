package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/okian/intramurals/pkg/logger"
)

// StatusError is a non-2xx API response.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Status, e.Code, e.Message)
}

// Response is a decoded API response.
type Response struct {
	Status int
	Body   gjson.Result
}

// Client talks JSON to the API, retrying on transport errors, 429 and 5xx.
// Every mutating request carries a fresh Idempotency-Key that is reused
// across its retries, so a retried write is applied at most once.
type Client struct {
	base string
	http *retryablehttp.Client
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config, log logger.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = leveled{log: log, verbose: cfg.Verbose}
	rc.RetryMax = cfg.Retries
	rc.RetryWaitMin = 50 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return &Client{base: strings.TrimRight(cfg.BaseURL, "/"), http: rc}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Do sends body as JSON and parses the reply. A status of 400 or above is
// returned as a *StatusError alongside the parsed response.
func (c *Client) Do(ctx context.Context, method, path string, body any) (Response, error) {
	var raw any
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Response{}, fmt.Errorf("failed to marshal request body: %w", err)
		}
		raw = data
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.base+path, raw)
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > 0 && !gjson.ValidBytes(data) {
		return Response{Status: resp.StatusCode}, fmt.Errorf("%s %s: invalid JSON response", method, path)
	}

	res := Response{Status: resp.StatusCode, Body: gjson.ParseBytes(data)}
	if resp.StatusCode >= http.StatusBadRequest {
		return res, &StatusError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Code:    res.Body.Get("code").String(),
			Message: res.Body.Get("message").String(),
		}
	}
	return res, nil
}

// leveled adapts logger.Logger to retryablehttp.LeveledLogger.
type leveled struct {
	log     logger.Logger
	verbose bool
}

func (l leveled) Error(msg string, kv ...interface{}) {
	l.log.Error(context.Background(), msg, fields(kv)...)
}

func (l leveled) Info(msg string, kv ...interface{}) {
	if l.verbose {
		l.log.Info(context.Background(), msg, fields(kv)...)
	}
}

func (l leveled) Debug(msg string, kv ...interface{}) {
	if l.verbose {
		l.log.Debug(context.Background(), msg, fields(kv)...)
	}
}

func (l leveled) Warn(msg string, kv ...interface{}) {
	l.log.Warn(context.Background(), msg, fields(kv)...)
}

func fields(kv []interface{}) []logger.Field {
	out := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
