// Package client talks to the dashboard HTTP API and unwraps its response
// envelope.
package client

import (
	"apexfolio-bot-go/internal/models"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const fallbackMessage = "API request failed"

// API is the set of remote calls the client store depends on.
type API interface {
	GetDashboardData(ctx context.Context) (*models.DashboardData, error)
	GetTrades(ctx context.Context) ([]models.Trade, error)
	GetSettings(ctx context.Context) (*models.BotSettings, error)
	GetLogs(ctx context.Context) ([]models.LogEntry, error)
	UpdateSettings(ctx context.Context, settings models.BotSettings) (*models.BotSettings, error)
	StartBot(ctx context.Context) (*models.StatusAck, error)
	StopBot(ctx context.Context) (*models.StatusAck, error)
}

// APIError is a failure reported by the server, either as a failure envelope
// or as a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	return e.Message
}

// Result is the outcome of a single call: a value or an error, never both.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the call produced a value.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Unwrap returns the value and error as a pair.
func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

// Client is a resty-backed API implementation.
type Client struct {
	rest   *resty.Client
	logger *zap.Logger
}

var _ API = (*Client)(nil)

// New creates a client for the API at cfg.BaseURL.
func New(cfg models.ClientConfig, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rest := resty.New()
	rest.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	rest.SetTimeout(timeout)
	rest.SetHeader("Accept", "application/json")

	return &Client{rest: rest, logger: logger}
}

func (c *Client) GetDashboardData(ctx context.Context) (*models.DashboardData, error) {
	return pointer(call[models.DashboardData](ctx, c, http.MethodGet, "/api/dashboard", nil))
}

func (c *Client) GetTrades(ctx context.Context) ([]models.Trade, error) {
	return call[[]models.Trade](ctx, c, http.MethodGet, "/api/trades", nil).Unwrap()
}

func (c *Client) GetSettings(ctx context.Context) (*models.BotSettings, error) {
	return pointer(call[models.BotSettings](ctx, c, http.MethodGet, "/api/settings", nil))
}

func (c *Client) GetLogs(ctx context.Context) ([]models.LogEntry, error) {
	return call[[]models.LogEntry](ctx, c, http.MethodGet, "/api/logs", nil).Unwrap()
}

func (c *Client) UpdateSettings(ctx context.Context, settings models.BotSettings) (*models.BotSettings, error) {
	return pointer(call[models.BotSettings](ctx, c, http.MethodPost, "/api/settings", settings))
}

func (c *Client) StartBot(ctx context.Context) (*models.StatusAck, error) {
	return pointer(call[models.StatusAck](ctx, c, http.MethodPost, "/api/bot/start", nil))
}

func (c *Client) StopBot(ctx context.Context) (*models.StatusAck, error) {
	return pointer(call[models.StatusAck](ctx, c, http.MethodPost, "/api/bot/stop", nil))
}

func pointer[T any](r Result[T]) (*T, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return &r.Value, nil
}

// call performs one request and decodes the envelope into a Result.
func call[T any](ctx context.Context, c *Client, method, path string, body any) Result[T] {
	r := decode[T](c.send(ctx, method, path, body))
	if r.Err != nil {
		c.logger.Error("[API Client] fetch error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(r.Err))
	}
	return r
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*resty.Response, error) {
	req := c.rest.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decode[T any](resp *resty.Response, err error) Result[T] {
	if err != nil {
		return Result[T]{Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(resp.Body(), &env)

	if !resp.IsSuccess() {
		apiErr := &APIError{
			StatusCode: resp.StatusCode(),
			Message:    "API error: " + http.StatusText(resp.StatusCode()),
		}
		if decodeErr == nil && env.Error != "" {
			apiErr.Message = env.Error
			apiErr.Fields = env.Fields
		}
		return Result[T]{Err: apiErr}
	}
	if decodeErr != nil {
		return Result[T]{Err: fmt.Errorf("decode response: %w", decodeErr)}
	}

	if !env.Success || isNull(env.Data) {
		msg := env.Error
		if msg == "" {
			msg = fallbackMessage
		}
		return Result[T]{Err: &APIError{StatusCode: resp.StatusCode(), Message: msg, Fields: env.Fields}}
	}

	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return Result[T]{Err: fmt.Errorf("decode data: %w", err)}
	}
	return Result[T]{Value: v}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
