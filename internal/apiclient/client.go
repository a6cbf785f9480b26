// AngelaMos | 2026
// client.go

package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/events"
)

const maxResponseBytes = 4 << 20

var (
	ErrNoSession    = errors.New("no active session")
	ErrUnauthorized = errors.New("session rejected by server")
)

// TokenSource hands out the current access token, empty when logged out.
type TokenSource interface {
	AccessToken() string
}

// StatusError is a non-2xx answer other than 401.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Tokens            TokenSource
	Bus               *events.Bus
	Tracer            trace.Tracer
	HTTPClient        *http.Client
}

// Client issues authenticated requests. It never redirects on its own: a
// 401 is published on the bus and reported as ErrUnauthorized.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	tokens  TokenSource
	bus     *events.Bus
	tracer  trace.Tracer
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = core.NoopTracer()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		tokens:  cfg.Tokens,
		bus:     cfg.Bus,
		tracer:  tracer,
	}
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// List fetches a collection endpoint. It accepts either a bare JSON array or
// an envelope with the rows under "data".
func (c *Client) List(ctx context.Context, path string) ([]map[string]any, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, path, &raw); err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err == nil {
		return rows, nil
	}

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return envelope.Data, nil
}

func (c *Client) Do(
	ctx context.Context,
	method, path string,
	body io.Reader,
	out any,
) error {
	ctx, span := c.tracer.Start(ctx, "api "+method+" "+path)
	defer span.End()

	token := ""
	if c.tokens != nil {
		token = c.tokens.AccessToken()
	}
	if token == "" {
		return ErrNoSession
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		core.SetSpanError(ctx, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		core.AddSpanEvent(ctx, "session.rejected", attribute.String("http.path", path))
		if c.bus != nil {
			c.bus.Publish(ctx, events.Unauthorized{
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
			})
		}
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &StatusError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(payload, resp.Status),
		}
		core.SetSpanError(ctx, err)
		return err
	}

	if out == nil || len(payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func errorMessage(payload []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return fallback
	}
	if body.Message != "" {
		return body.Message
	}
	if body.Error != nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return fallback
}
