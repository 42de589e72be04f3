package influxdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-panelbridge/internal/infrastructure/config"
)

// fakeWriter records points instead of sending them.
type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (w *fakeWriter) WritePoint(p *write.Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.points = append(w.points, p)
}

func (w *fakeWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushes++
}

func newTestClient() (*Client, *fakeWriter) {
	w := &fakeWriter{}
	return &Client{writer: w, connected: true, cfg: config.InfluxDBConfig{Bucket: "panel"}}, w
}

func tags(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fields(p *write.Point) map[string]any {
	out := make(map[string]any)
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestWritePanelEvent(t *testing.T) {
	c, w := newTestClient()

	c.WritePanelEvent("key", map[string]any{"queue_id": 9, "key_code": 0x13, "release": true}, testTime)

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	p := w.points[0]
	if p.Name() != MeasurementPanelEvent {
		t.Errorf("measurement = %q", p.Name())
	}
	if tags(p)["kind"] != "key" {
		t.Errorf("tags = %v", tags(p))
	}
	f := fields(p)
	if f["queue_id"] != int64(9) || f["key_code"] != int64(0x13) || f["release"] != true {
		t.Errorf("fields = %v", f)
	}
	if !p.Time().Equal(testTime) {
		t.Errorf("time = %v", p.Time())
	}
}

func TestWriteActuation(t *testing.T) {
	tests := []struct {
		name       string
		ok         bool
		wantResult string
	}{
		{"success", true, "ok"},
		{"failure", false, "failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestClient()
			c.WriteActuation("light", "switch.dome", true, tt.ok, 150*time.Millisecond, testTime)

			p := w.points[0]
			if p.Name() != MeasurementActuation {
				t.Errorf("measurement = %q", p.Name())
			}
			tg := tags(p)
			if tg["target"] != "light" || tg["entity_id"] != "switch.dome" || tg["result"] != tt.wantResult {
				t.Errorf("tags = %v", tg)
			}
			f := fields(p)
			if f["on"] != true || f["duration_ms"] != 150.0 {
				t.Errorf("fields = %v", f)
			}
		})
	}
}

func TestWriteConnection(t *testing.T) {
	c, w := newTestClient()
	c.WriteConnection("tcp://panel:5556", false, "heartbeat timeout", testTime)

	p := w.points[0]
	if p.Name() != MeasurementConnection || tags(p)["endpoint"] != "tcp://panel:5556" {
		t.Errorf("point = %s %v", p.Name(), tags(p))
	}
	f := fields(p)
	if f["connected"] != false || f["reason"] != "heartbeat timeout" {
		t.Errorf("fields = %v", f)
	}
}

func TestWritesDroppedWhenDisconnected(t *testing.T) {
	c, w := newTestClient()
	c.connected = false

	c.WritePanelEvent("pack", map[string]any{"on": true}, testTime)
	c.WritePoint("custom", nil, map[string]any{"v": 1.0})
	c.Flush()

	if len(w.points) != 0 || w.flushes != 0 {
		t.Errorf("points = %d flushes = %d, want none", len(w.points), w.flushes)
	}
}

func TestCloseFlushesOnce(t *testing.T) {
	c, w := newTestClient()

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if w.flushes != 1 {
		t.Errorf("flushes = %d, want 1", w.flushes)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false}, nil)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed port")
	}
	_, err := Connect(config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Token:   "t",
		Org:     "o",
		Bucket:  "b",
	}, nil)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
