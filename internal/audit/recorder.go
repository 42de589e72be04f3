package audit

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-panelbridge/internal/bridges/panel"
)

// writeTimeout bounds a single insert made from the bridge loop.
const writeTimeout = 2 * time.Second

// Logger interface for optional logging.
type Logger interface {
	Warn(msg string, keysAndValues ...any)
}

// Recorder is a panel.Observer that persists actuations and connection
// changes. Raw events are not stored.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// OnEvent implements panel.Observer.
func (r *Recorder) OnEvent(panel.Event) {}

// OnActuation implements panel.Observer.
func (r *Recorder) OnActuation(res panel.ActuationResult) {
	a := &Actuation{
		OccurredAt: res.At,
		Source:     sourceName(res.Source),
		Target:     string(res.Action.Target),
		EntityID:   res.Action.EntityID,
		On:         res.Action.On,
		Success:    res.Err == nil,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		a.Error = res.Err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.repo.RecordActuation(ctx, a); err != nil {
		r.warn("audit actuation write failed", "entity_id", a.EntityID, "error", err)
	}
}

// OnConnectionChange implements panel.Observer.
func (r *Recorder) OnConnectionChange(change panel.ConnectionChange) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := r.repo.RecordConnection(ctx, &ConnectionEvent{
		OccurredAt: change.At,
		Endpoint:   change.Endpoint,
		State:      change.State.String(),
		Reason:     change.Reason,
	})
	if err != nil {
		r.warn("audit connection write failed", "endpoint", change.Endpoint, "error", err)
	}
}

func (r *Recorder) warn(msg string, keysAndValues ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, keysAndValues...)
	}
}

func sourceName(k panel.Kind) string {
	switch k {
	case panel.KindKeyEvent:
		return "key"
	case panel.KindPackEvent:
		return "pack"
	default:
		return k.String()
	}
}
