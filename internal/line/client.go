// Package line verifies LIFF ID tokens against the LINE Login API.
package line

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultBaseURL is the LINE Login API endpoint.
const DefaultBaseURL = "https://api.line.me"

// ErrInvalidIDToken is returned when LINE rejects the ID token.
var ErrInvalidIDToken = errors.New("invalid LINE ID token")

// Profile is the identity contained in a verified ID token.
type Profile struct {
	UserID      string
	DisplayName string
	PictureURL  string
}

// Verifier verifies LIFF ID tokens.
type Verifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (Profile, error)
}

// Client calls the LINE Login verify endpoint.
// It is safe for concurrent use.
type Client struct {
	session   *http.Client
	baseURL   string
	channelID string

	maxAttempts int
	backoff     time.Duration
}

// NewClient creates a verifier for the given LINE Login channel.
// An empty baseURL selects DefaultBaseURL.
func NewClient(channelID, baseURL string) (*Client, error) {
	if channelID == "" {
		return nil, errors.New("LINE channel id is empty")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		session:     &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		channelID:   channelID,
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}, nil
}

type verifyResponse struct {
	Iss     string `json:"iss"`
	Sub     string `json:"sub"`
	Aud     string `json:"aud"`
	Exp     int64  `json:"exp"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// VerifyIDToken asks LINE to verify idToken and returns the profile it carries.
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (Profile, error) {
	if strings.TrimSpace(idToken) == "" {
		return Profile{}, fmt.Errorf("verify id token: %w: empty token", ErrInvalidIDToken)
	}

	form := url.Values{}
	form.Set("id_token", idToken)
	form.Set("client_id", c.channelID)
	body := form.Encode()

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, c.baseURL+"/oauth2/v2.1/verify", strings.NewReader(body))
	})
	if err != nil {
		var he *httpStatusError
		if errors.As(err, &he) && (he.Code == http.StatusBadRequest || he.Code == http.StatusUnauthorized) {
			return Profile{}, fmt.Errorf("verify id token: %w: %s", ErrInvalidIDToken, he.description())
		}
		return Profile{}, fmt.Errorf("verify id token: %w", err)
	}
	defer resp.Body.Close()

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return Profile{}, fmt.Errorf("verify id token: decode response: %w", err)
	}
	if vr.Sub == "" || vr.Aud != c.channelID {
		return Profile{}, fmt.Errorf("verify id token: %w: unexpected subject or audience", ErrInvalidIDToken)
	}

	return Profile{UserID: vr.Sub, DisplayName: vr.Name, PictureURL: vr.Picture}, nil
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// description extracts LINE's error_description when the body is JSON.
func (e *httpStatusError) description() string {
	var er errorResponse
	if json.Unmarshal([]byte(e.Body), &er) == nil && er.Description != "" {
		return er.Description
	}
	return e.Body
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries network errors, 429 and 5xx responses with
// exponential backoff while respecting context cancellation.
func (c *Client) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	backoff := c.backoff
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
				http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				retry = true
			}
		}

		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}

		if !retry || attempt == c.maxAttempts {
			return nil, lastErr
		}

		log.WithFields(log.Fields{
			"attempt": attempt,
			"backoff": backoff.String(),
		}).WithError(err).Warn("LINE verify failed, retrying")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return nil, lastErr
}
