package panel

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
	kv    []any
}

func (l *recordingLogger) record(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.record("debug", msg, kv) }
func (l *recordingLogger) Info(msg string, kv ...any)  { l.record("info", msg, kv) }
func (l *recordingLogger) Warn(msg string, kv ...any)  { l.record("warn", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.record("error", msg, kv) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

func TestDispatch(t *testing.T) {
	var (
		heartbeats int
		keys       []KeyEvent
		packs      []PackEvent
	)
	d := NewDispatcher(Handlers{
		Heartbeat: func() { heartbeats++ },
		KeyEvent:  func(ev KeyEvent) { keys = append(keys, ev) },
		PackEvent: func(ev PackEvent) { packs = append(packs, ev) },
	}, nil)

	key := KeyEvent{QueueID: 9, KeyCode: 0x13, IsRelease: true}
	tests := []struct {
		name    string
		msg     Message
		want    Outcome
		wantErr error
	}{
		{
			name: "heartbeat",
			msg:  Message{Header: Header{Kind: KindHeartbeat}},
			want: OutcomeHeartbeat,
		},
		{
			name: "key event",
			msg:  Message{Header: Header{Kind: KindKeyEvent, Length: KeyEventSize}, Payload: key.Encode()},
			want: OutcomeKeyEvent,
		},
		{
			name: "pack event",
			msg:  Message{Header: Header{Kind: KindPackEvent, Length: 1}, Payload: []byte{1}},
			want: OutcomePackEvent,
		},
		{
			name: "unknown kind",
			msg:  Message{Header: Header{Kind: Kind(0x12345678), Length: 3}, Payload: []byte{1, 2, 3}},
			want: OutcomeUnknown,
		},
		{
			name:    "short key payload",
			msg:     Message{Header: Header{Kind: KindKeyEvent, Length: 4}, Payload: []byte{9, 0, 0, 0}},
			want:    OutcomeKeyEvent,
			wantErr: ErrShortPayload,
		},
		{
			name:    "empty pack payload",
			msg:     Message{Header: Header{Kind: KindPackEvent}, Payload: []byte{}},
			want:    OutcomePackEvent,
			wantErr: ErrShortPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Dispatch(tt.msg)
			if got != tt.want {
				t.Errorf("Dispatch() outcome = %v, want %v", got, tt.want)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Dispatch() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("Dispatch() unexpected error: %v", err)
			}
		})
	}

	if heartbeats != 1 {
		t.Errorf("heartbeat handler calls = %d, want 1", heartbeats)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("key handler got %v, want [%v]", keys, key)
	}
	if len(packs) != 1 || !packs[0].On {
		t.Errorf("pack handler got %v, want [{On:true}]", packs)
	}
}

func TestDispatchUnknownKindLogsAtDebug(t *testing.T) {
	logger := &recordingLogger{}
	d := NewDispatcher(Handlers{}, logger)

	for i := 0; i < 5; i++ {
		out, err := d.Dispatch(Message{Header: Header{Kind: Kind(0xA0 + i)}})
		if err != nil || out != OutcomeUnknown {
			t.Fatalf("Dispatch() = (%v, %v), want (unknown, nil)", out, err)
		}
	}

	if got := logger.count("debug"); got != 5 {
		t.Errorf("debug entries = %d, want 5", got)
	}
	if got := logger.count("warn") + logger.count("error"); got != 0 {
		t.Errorf("warn/error entries = %d, want 0", got)
	}
}

func TestDispatchNilHandlers(t *testing.T) {
	d := NewDispatcher(Handlers{}, nil)

	msgs := []Message{
		{Header: Header{Kind: KindHeartbeat}},
		{Header: Header{Kind: KindKeyEvent}, Payload: make([]byte, KeyEventSize)},
		{Header: Header{Kind: KindPackEvent}, Payload: []byte{0}},
	}
	for _, m := range msgs {
		if _, err := d.Dispatch(m); err != nil {
			t.Errorf("Dispatch(%v) error: %v", m.Header.Kind, err)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{
		OutcomeUnknown:   "unknown",
		OutcomeHeartbeat: "heartbeat",
		OutcomeKeyEvent:  "key_event",
		OutcomePackEvent: "pack_event",
		Outcome(42):      "unknown",
	} {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}

func ExampleDispatcher_Dispatch() {
	d := NewDispatcher(Handlers{
		KeyEvent: func(ev KeyEvent) { fmt.Println(ev) },
	}, nil)

	wire := EncodeMessage(KindKeyEvent, KeyEvent{QueueID: 9, KeyCode: 0x13, IsRelease: true}.Encode())
	msg, _ := ParseMessage([][]byte{wire})
	_, _ = d.Dispatch(msg)
	// Output: KeyEvent{Queue:9, Key:0x13, Release:true}
}
