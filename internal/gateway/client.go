// Package gateway is the HTTP boundary between the engine and the club
// platform's tracker API. It owns transport concerns only: endpoint shapes,
// capability-link invocation, error taxonomy mapping, timeouts and retry.
// It never interprets aggregates; that is the finder package's job.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/courtlink/playerfinder/internal/finder"
	appErrors "github.com/courtlink/playerfinder/pkg/errors"
	"github.com/courtlink/playerfinder/pkg/logger"
)

const (
	// DefaultTimeout bounds every tracker call so no operation blocks
	// indefinitely; callers surface a retryable error instead of hanging.
	DefaultTimeout = 10 * time.Second

	defaultRetryMax      = 3
	defaultRetryInterval = 250 * time.Millisecond
)

// Config bundles the options required to build a Client.
type Config struct {
	// BaseURL is the root of the tracker API, e.g. https://club.example/api.
	BaseURL string
	// Token is the bearer token attached to authenticated mutations
	// (cancel, withdraw). Reads and capability links need no token.
	Token string
	// Timeout bounds each individual HTTP call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Option customises Client behaviour.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client, primarily for testing.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithRetry overrides the retry budget for read endpoints.
func WithRetry(maxRetries uint64, initialInterval time.Duration) Option {
	return func(c *Client) {
		c.retryMax = maxRetries
		if initialInterval > 0 {
			c.retryInterval = initialInterval
		}
	}
}

// WithLogger replaces the default module logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// Client talks to the tracker API.
type Client struct {
	baseURL       string
	token         string
	timeout       time.Duration
	retryMax      uint64
	retryInterval time.Duration
	http          *http.Client
	log           *zap.Logger
}

// New constructs a Client for the given tracker endpoint.
func New(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("gateway: invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := &Client{
		baseURL:       base,
		token:         cfg.Token,
		timeout:       timeout,
		retryMax:      defaultRetryMax,
		retryInterval: defaultRetryInterval,
		http:          &http.Client{},
		log:           logger.WithModule("gateway"),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// RequestRows fetches every invitee row of one request.
func (c *Client) RequestRows(ctx context.Context, requestID string) ([]finder.InviteeResponse, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, appErrors.NewBadRequest("requestId is required")
	}
	return c.fetchRows(ctx, "/tracker/request", url.Values{"requestId": {requestID}})
}

// IncomingInvitations fetches all rows addressed to a user across requests.
func (c *Client) IncomingInvitations(ctx context.Context, userID string) ([]finder.InviteeResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, appErrors.NewBadRequest("userId is required")
	}
	return c.fetchRows(ctx, "/invitations", url.Values{"userId": {userID}})
}

// SentInvitations fetches the rows of requests the user organised. The
// platform keys this endpoint by the organiser's email under the historical
// parameter name inviteeEmail; the quirk is preserved on the wire here and
// nowhere else.
func (c *Client) SentInvitations(ctx context.Context, organizerEmail string) ([]finder.InviteeResponse, error) {
	if strings.TrimSpace(organizerEmail) == "" {
		return nil, appErrors.NewBadRequest("organizer email is required")
	}
	return c.fetchRows(ctx, "/invitations-sent", url.Values{"inviteeEmail": {organizerEmail}})
}

// Respond invokes an accept/decline capability link. The URL is treated as
// an opaque token: the only permitted modification is attaching the optional
// comment as a query parameter. The call is made exactly once; capability
// links can be single-use, so an automatic retry after an ambiguous failure
// could fire the action twice. Callers re-fetch and re-evaluate instead.
func (c *Client) Respond(ctx context.Context, capabilityURL, comment string) error {
	target, err := url.Parse(strings.TrimSpace(capabilityURL))
	if err != nil || target.Scheme == "" || target.Host == "" {
		return appErrors.ErrMalformed.WithMessage("invitation carries an unusable response link").WithInternal(err)
	}

	if comment != "" {
		query := target.Query()
		query.Set("comments", comment)
		target.RawQuery = query.Encode()
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		return appErrors.ErrMalformed.WithInternal(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.ErrTransient.WithInternal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("capability link refused",
			zap.Int("status", resp.StatusCode))
		return appErrors.FromStatusCode(resp.StatusCode)
	}

	return nil
}

// Cancel reverses the caller's prior acceptance of a request.
func (c *Client) Cancel(ctx context.Context, requestID, userID, comment string) error {
	return c.mutate(ctx, "/tracker/cancel", map[string]string{
		"requestId": requestID,
		"userId":    userID,
		"comment":   comment,
	})
}

// Withdraw terminates the whole request for every invitee in one call. The
// server applies it atomically; the client never loops over rows.
func (c *Client) Withdraw(ctx context.Context, requestID, organizerID, comment string) error {
	return c.mutate(ctx, "/tracker/withdraw", map[string]string{
		"requestId":   requestID,
		"organizerId": organizerID,
		"comment":     comment,
	})
}

// fetchRows performs a read with transient-failure retry. Reads are safe to
// repeat, unlike mutations.
func (c *Client) fetchRows(ctx context.Context, path string, query url.Values) ([]finder.InviteeResponse, error) {
	endpoint := c.baseURL + path + "?" + query.Encode()

	var rows []finder.InviteeResponse
	operation := func() error {
		fetched, err := c.fetchOnce(ctx, endpoint)
		if err != nil {
			if appErrors.IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		rows = fetched
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval

	// Retry unwraps Permanent errors, so callers always see the taxonomy error.
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.retryMax), ctx)); err != nil {
		return nil, err
	}

	return rows, nil
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string) ([]finder.InviteeResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, appErrors.ErrMalformed.WithInternal(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErrors.ErrTransient.WithInternal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, appErrors.FromStatusCode(resp.StatusCode)
	}

	var rows []finder.InviteeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		if errors.Is(err, finder.ErrInvalidDate) {
			return nil, appErrors.ErrInvalidDate.WithInternal(err)
		}
		return nil, appErrors.ErrMalformed.WithInternal(err)
	}

	return rows, nil
}

// mutate performs an authenticated POST exactly once. The tracker's mutation
// endpoints are not idempotent at the transport layer, so ambiguous failures
// are surfaced as retryable errors for the user to decide, never replayed
// automatically.
func (c *Client) mutate(ctx context.Context, path string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return appErrors.ErrMalformed.WithInternal(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return appErrors.ErrMalformed.WithInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.ErrTransient.WithInternal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("mutation refused",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return appErrors.FromStatusCode(resp.StatusCode)
	}

	return nil
}
