package homeassistant

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

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
)

// Defaults applied by NewClient for zero-valued Config fields.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultLightDomain     = "switch"
	DefaultHVACMode        = "cool"
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 200 * time.Millisecond
	DefaultMaxInterval     = 2 * time.Second

	// maxErrorBody bounds how much of an error response is kept for logs.
	maxErrorBody = 1024
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Config holds configuration for the Home Assistant client.
type Config struct {
	// BaseURL is the Home Assistant root, e.g. "http://homeassistant.local:8123".
	BaseURL string

	// Token is a long-lived access token.
	Token string

	// LightDomain is the service domain used for light commands.
	// Default: "switch".
	LightDomain string

	// HVACMode is set when the climate entity turns on.
	// Default: "cool".
	HVACMode string

	// Timeout bounds each HTTP attempt. Default: 10 seconds.
	Timeout time.Duration

	// MaxAttempts is the total number of attempts per call. Default: 3.
	MaxAttempts int

	// InitialInterval and MaxInterval shape the retry backoff.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Transport overrides the underlying round tripper. Used by tests.
	Transport http.RoundTripper

	// Logger is optional.
	Logger Logger
}

// Client calls Home Assistant REST services.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	lightDomain string
	hvacMode    string
	maxAttempts int
	initial     time.Duration
	maxInterval time.Duration
	logger      Logger
}

// NewClient creates a Home Assistant client.
//
// The bearer token is attached by an oauth2 transport so it never appears
// in request construction code or logs.
//
// Parameters:
//   - cfg: Client configuration (BaseURL and Token required)
//
// Returns:
//   - *Client: Ready to use
//   - error: ErrInvalidConfig if required fields are missing or malformed
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidConfig)
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q is not absolute", ErrInvalidConfig, cfg.BaseURL)
	}

	c := &Client{
		baseURL:     base,
		lightDomain: valueOr(cfg.LightDomain, DefaultLightDomain),
		hvacMode:    valueOr(cfg.HVACMode, DefaultHVACMode),
		maxAttempts: cfg.MaxAttempts,
		initial:     cfg.InitialInterval,
		maxInterval: cfg.MaxInterval,
		logger:      cfg.Logger,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.initial <= 0 {
		c.initial = DefaultInitialInterval
	}
	if c.maxInterval <= 0 {
		c.maxInterval = DefaultMaxInterval
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	c.http = &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: cfg.Token,
				TokenType:   "Bearer",
			}),
			Base: transport,
		},
	}

	return c, nil
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// TurnOnLight calls {light_domain}.turn_on for the entity.
func (c *Client) TurnOnLight(ctx context.Context, entityID string) error {
	return c.CallService(ctx, c.lightDomain, "turn_on", map[string]any{"entity_id": entityID})
}

// TurnOffLight calls {light_domain}.turn_off for the entity.
func (c *Client) TurnOffLight(ctx context.Context, entityID string) error {
	return c.CallService(ctx, c.lightDomain, "turn_off", map[string]any{"entity_id": entityID})
}

// TurnOnAC sets the climate entity to the configured HVAC mode.
func (c *Client) TurnOnAC(ctx context.Context, entityID string) error {
	return c.CallService(ctx, "climate", "set_hvac_mode", map[string]any{
		"entity_id": entityID,
		"hvac_mode": c.hvacMode,
	})
}

// TurnOffAC calls climate.turn_off for the entity.
func (c *Client) TurnOffAC(ctx context.Context, entityID string) error {
	return c.CallService(ctx, "climate", "turn_off", map[string]any{"entity_id": entityID})
}

// CallService POSTs data to /api/services/{domain}/{service}.
//
// Network errors, 429 and 5xx responses are retried with exponential
// backoff up to the configured attempt count. Other 4xx responses fail
// immediately.
//
// Returns:
//   - error: nil on 2xx; otherwise wraps ErrUnauthorized, ErrServiceCall or
//     ErrRequestFailed
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	if domain == "" || service == "" {
		return fmt.Errorf("%w: domain and service are required", ErrInvalidConfig)
	}

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding service data: %w", err)
	}

	endpoint := c.baseURL.JoinPath("api", "services", domain, service).String()

	attempt := 0
	op := func() error {
		attempt++
		return c.post(ctx, endpoint, body)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxInterval = c.maxInterval
	b.MaxElapsedTime = 0

	//nolint:gosec // maxAttempts is validated positive
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxAttempts-1)), ctx)

	err = backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		c.logWarn("home assistant call failed, retrying",
			"service", domain+"."+service,
			"attempt", attempt,
			"wait", wait.String(),
			"error", err,
		)
	})
	if err != nil {
		c.logError("home assistant call failed",
			"service", domain+"."+service,
			"attempts", attempt,
			"error", err,
		)
		return err
	}

	c.logDebug("home assistant service called", "service", domain+"."+service, "attempts", attempt)
	return nil
}

// post performs one attempt. Non-retryable failures are wrapped in
// backoff.Permanent.
func (c *Client) post(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("%w: %w", ErrRequestFailed, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(fmt.Errorf("%w: %w", ErrRequestFailed, err))
		}
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusBadRequest {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best-effort detail
	statusErr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return backoff.Permanent(fmt.Errorf("%w: %w", ErrUnauthorized, statusErr))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", ErrServiceCall, statusErr)
	default:
		return backoff.Permanent(fmt.Errorf("%w: %w", ErrServiceCall, statusErr))
	}
}

// HealthCheck verifies Home Assistant answers on /api/ with the token.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := c.baseURL.JoinPath("api").String() + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, &StatusError{Code: resp.StatusCode})
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("%w: %w", ErrServiceCall, &StatusError{Code: resp.StatusCode})
	}
	return nil
}

// IsUnauthorized reports whether err came from a rejected token.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func (c *Client) logDebug(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logWarn(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, keysAndValues...)
	}
}

func (c *Client) logError(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Error(msg, keysAndValues...)
	}
}
