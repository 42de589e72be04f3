package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testToken = "test-long-lived-token"

// recordedRequest is one request seen by the fake Home Assistant.
type recordedRequest struct {
	method string
	path   string
	auth   string
	ctype  string
	body   map[string]any
}

// fakeHA is an httptest server that records requests and replies with a
// scripted status sequence (the last status repeats).
type fakeHA struct {
	mu       sync.Mutex
	requests []recordedRequest
	statuses []int
	body     string
	delay    time.Duration
	server   *httptest.Server
}

func newFakeHA(t *testing.T, statuses ...int) *fakeHA {
	t.Helper()
	f := &fakeHA{statuses: statuses}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeHA) handle(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // GET has no body
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		method: r.Method,
		path:   r.URL.Path,
		auth:   r.Header.Get("Authorization"),
		ctype:  r.Header.Get("Content-Type"),
		body:   body,
	})
	status := http.StatusOK
	if len(f.statuses) > 0 {
		status = f.statuses[0]
		if len(f.statuses) > 1 {
			f.statuses = f.statuses[1:]
		}
	}
	delay := f.delay
	respBody := f.body
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	w.WriteHeader(status)
	if respBody != "" {
		w.Write([]byte(respBody)) //nolint:errcheck // test server
	} else {
		w.Write([]byte("[]")) //nolint:errcheck // test server
	}
}

func (f *fakeHA) getRequests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func newTestClient(t *testing.T, f *fakeHA, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:         f.server.URL,
		Token:           testToken,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return c
}

func TestClientServiceMapping(t *testing.T) {
	tests := []struct {
		name     string
		call     func(*Client) error
		wantPath string
		wantBody map[string]any
	}{
		{
			name:     "turn on light",
			call:     func(c *Client) error { return c.TurnOnLight(context.Background(), "switch.dome") },
			wantPath: "/api/services/switch/turn_on",
			wantBody: map[string]any{"entity_id": "switch.dome"},
		},
		{
			name:     "turn off light",
			call:     func(c *Client) error { return c.TurnOffLight(context.Background(), "switch.dome") },
			wantPath: "/api/services/switch/turn_off",
			wantBody: map[string]any{"entity_id": "switch.dome"},
		},
		{
			name:     "turn on ac",
			call:     func(c *Client) error { return c.TurnOnAC(context.Background(), "climate.cabin") },
			wantPath: "/api/services/climate/set_hvac_mode",
			wantBody: map[string]any{"entity_id": "climate.cabin", "hvac_mode": "cool"},
		},
		{
			name:     "turn off ac",
			call:     func(c *Client) error { return c.TurnOffAC(context.Background(), "climate.cabin") },
			wantPath: "/api/services/climate/turn_off",
			wantBody: map[string]any{"entity_id": "climate.cabin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeHA(t)
			c := newTestClient(t, f, nil)

			if err := tt.call(c); err != nil {
				t.Fatalf("call error: %v", err)
			}

			reqs := f.getRequests()
			if len(reqs) != 1 {
				t.Fatalf("requests = %d, want 1", len(reqs))
			}
			r := reqs[0]
			if r.method != http.MethodPost || r.path != tt.wantPath {
				t.Errorf("request = %s %s, want POST %s", r.method, r.path, tt.wantPath)
			}
			if r.auth != "Bearer "+testToken {
				t.Errorf("Authorization = %q", r.auth)
			}
			if r.ctype != "application/json" {
				t.Errorf("Content-Type = %q", r.ctype)
			}
			if len(r.body) != len(tt.wantBody) {
				t.Fatalf("body = %v, want %v", r.body, tt.wantBody)
			}
			for k, v := range tt.wantBody {
				if r.body[k] != v {
					t.Errorf("body[%q] = %v, want %v", k, r.body[k], v)
				}
			}
		})
	}
}

func TestClientCustomDomainAndMode(t *testing.T) {
	f := newFakeHA(t)
	c := newTestClient(t, f, func(cfg *Config) {
		cfg.LightDomain = "light"
		cfg.HVACMode = "heat_cool"
		cfg.BaseURL += "/"
	})

	if err := c.TurnOnLight(context.Background(), "light.dome"); err != nil {
		t.Fatalf("TurnOnLight() error: %v", err)
	}
	if err := c.TurnOnAC(context.Background(), "climate.cabin"); err != nil {
		t.Fatalf("TurnOnAC() error: %v", err)
	}

	reqs := f.getRequests()
	if reqs[0].path != "/api/services/light/turn_on" {
		t.Errorf("light path = %s", reqs[0].path)
	}
	if reqs[1].body["hvac_mode"] != "heat_cool" {
		t.Errorf("hvac_mode = %v, want heat_cool", reqs[1].body["hvac_mode"])
	}
}

func TestClientRetries(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []int
		wantErr      error
		wantRequests int
	}{
		{name: "success first try", statuses: []int{200}, wantRequests: 1},
		{name: "5xx then success", statuses: []int{500, 200}, wantRequests: 2},
		{name: "429 then success", statuses: []int{429, 201}, wantRequests: 2},
		{name: "5xx exhausts attempts", statuses: []int{503}, wantErr: ErrServiceCall, wantRequests: 3},
		{name: "bad request is not retried", statuses: []int{400}, wantErr: ErrServiceCall, wantRequests: 1},
		{name: "not found is not retried", statuses: []int{404}, wantErr: ErrServiceCall, wantRequests: 1},
		{name: "unauthorized is not retried", statuses: []int{401}, wantErr: ErrUnauthorized, wantRequests: 1},
		{name: "forbidden is not retried", statuses: []int{403}, wantErr: ErrUnauthorized, wantRequests: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeHA(t, tt.statuses...)
			c := newTestClient(t, f, nil)

			err := c.TurnOnLight(context.Background(), "switch.dome")
			if tt.wantErr == nil && err != nil {
				t.Fatalf("TurnOnLight() error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("TurnOnLight() error = %v, want %v", err, tt.wantErr)
			}
			if got := len(f.getRequests()); got != tt.wantRequests {
				t.Errorf("requests = %d, want %d", got, tt.wantRequests)
			}
		})
	}
}

func TestClientStatusErrorCarriesBody(t *testing.T) {
	f := newFakeHA(t, http.StatusBadRequest)
	f.body = `{"message":"Entity not found"}`
	c := newTestClient(t, f, nil)

	err := c.TurnOffAC(context.Background(), "climate.missing")

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error %v is not a *StatusError", err)
	}
	if se.Code != http.StatusBadRequest || se.Body != `{"message":"Entity not found"}` {
		t.Errorf("StatusError = %+v", se)
	}
	if IsUnauthorized(err) {
		t.Error("400 reported as unauthorized")
	}
}

func TestClientTimeout(t *testing.T) {
	f := newFakeHA(t)
	f.delay = 200 * time.Millisecond
	c := newTestClient(t, f, func(cfg *Config) {
		cfg.Timeout = 20 * time.Millisecond
		cfg.MaxAttempts = 1
	})

	err := c.TurnOnLight(context.Background(), "switch.dome")
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("TurnOnLight() error = %v, want ErrRequestFailed", err)
	}
}

func TestClientCancelledContextStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c, err := NewClient(Config{
		BaseURL:         server.URL,
		Token:           testToken,
		MaxAttempts:     10,
		InitialInterval: time.Hour,
		MaxInterval:     time.Hour,
	})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := c.TurnOnLight(ctx, "switch.dome"); err == nil {
		t.Fatal("TurnOnLight() expected error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("retry did not observe context cancellation")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClientHealthCheck(t *testing.T) {
	f := newFakeHA(t, http.StatusOK)
	c := newTestClient(t, f, nil)
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error: %v", err)
	}
	reqs := f.getRequests()
	if reqs[0].method != http.MethodGet || reqs[0].path != "/api/" {
		t.Errorf("health request = %s %s, want GET /api/", reqs[0].method, reqs[0].path)
	}

	denied := newFakeHA(t, http.StatusUnauthorized)
	c = newTestClient(t, denied, nil)
	if err := c.HealthCheck(context.Background()); !IsUnauthorized(err) {
		t.Errorf("HealthCheck() error = %v, want unauthorized", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing base url", Config{Token: "t"}},
		{"missing token", Config{BaseURL: "http://ha:8123"}},
		{"relative base url", Config{BaseURL: "ha:8123", Token: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(tt.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewClient() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestCallServiceRequiresDomainAndService(t *testing.T) {
	f := newFakeHA(t)
	c := newTestClient(t, f, nil)
	if err := c.CallService(context.Background(), "", "turn_on", nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("CallService() error = %v, want ErrInvalidConfig", err)
	}
	if n := len(f.getRequests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}
