// AngelaMos | 2026
// authenticator.go

package session

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
)

const (
	LoginPath        = "/api/auth/login"
	maxResponseBytes = 1 << 20
)

// LoginResult is the decoded success body of the login endpoint.
type LoginResult struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	User         Identity `json:"user"`
	StatusCode   int      `json:"-"`
}

type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*LoginResult, error)
}

type HTTPAuthenticator struct {
	endpoint string
	client   *http.Client
}

func NewHTTPAuthenticator(baseURL string, timeout time.Duration) *HTTPAuthenticator {
	return &HTTPAuthenticator{
		endpoint: strings.TrimRight(baseURL, "/") + LoginPath,
		client:   &http.Client{Timeout: timeout},
	}
}

// WithClient swaps the transport, mainly for tests and tracing wrappers.
func (a *HTTPAuthenticator) WithClient(client *http.Client) *HTTPAuthenticator {
	a.client = client
	return a
}

func (a *HTTPAuthenticator) Endpoint() string {
	return a.endpoint
}

func (a *HTTPAuthenticator) Authenticate(
	ctx context.Context,
	creds Credentials,
) (*LoginResult, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		a.endpoint,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &AuthError{
			Message:    fmt.Sprintf("cannot reach %s: %v", a.endpoint, unwrapURLError(err)),
			StatusCode: StatusUnreachable,
			Err:        err,
		}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &AuthError{
			Message:    fmt.Sprintf("read response from %s: %v", a.endpoint, err),
			StatusCode: StatusUnreachable,
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AuthError{
			Message:    failureMessage(payload),
			StatusCode: resp.StatusCode,
		}
	}

	var result LoginResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, &AuthError{
			Message:    "invalid login response",
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}
	result.StatusCode = resp.StatusCode

	return &result, nil
}

// failureMessage reads either a flat {"message"} body or the
// {"error":{"message"}} envelope.
func failureMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return defaultLoginFailure
	}
	if msg := strings.TrimSpace(body.Message); msg != "" {
		return msg
	}
	if body.Error != nil {
		if msg := strings.TrimSpace(body.Error.Message); msg != "" {
			return msg
		}
	}
	return defaultLoginFailure
}

// unwrapURLError drops the "Post <url>:" prefix net/http adds, since the
// message already names the endpoint.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}
