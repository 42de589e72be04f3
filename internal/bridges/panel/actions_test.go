package panel

import (
	"context"
	"errors"
	"sync"
	"testing"
)

const (
	testLight   = "switch.dome_light"
	testClimate = "climate.cabin"
)

// actuatorCall records one call to mockActuator.
type actuatorCall struct {
	method   string
	entityID string
}

// mockActuator implements Actuator for testing.
type mockActuator struct {
	mu    sync.Mutex
	calls []actuatorCall
	err   error

	// onCall runs during every call, e.g. to simulate a slow endpoint.
	onCall func()
}

func (m *mockActuator) record(method, entityID string) error {
	if m.onCall != nil {
		m.onCall()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, actuatorCall{method: method, entityID: entityID})
	return m.err
}

func (m *mockActuator) TurnOnLight(_ context.Context, id string) error {
	return m.record("TurnOnLight", id)
}

func (m *mockActuator) TurnOffLight(_ context.Context, id string) error {
	return m.record("TurnOffLight", id)
}

func (m *mockActuator) TurnOnAC(_ context.Context, id string) error {
	return m.record("TurnOnAC", id)
}

func (m *mockActuator) TurnOffAC(_ context.Context, id string) error {
	return m.record("TurnOffAC", id)
}

func (m *mockActuator) getCalls() []actuatorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]actuatorCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func TestMapKeyEvent(t *testing.T) {
	m := NewActionMapper(testLight, testClimate, nil)

	tests := []struct {
		name   string
		ev     KeyEvent
		want   Action
		wantOK bool
	}{
		{
			name:   "dome light release turns light on",
			ev:     KeyEvent{QueueID: 9, KeyCode: 0x13, IsRelease: true},
			want:   Action{Target: TargetLight, EntityID: testLight, On: true},
			wantOK: true,
		},
		{
			name:   "dome light press turns light off",
			ev:     KeyEvent{QueueID: 9, KeyCode: 0x13, IsRelease: false},
			want:   Action{Target: TargetLight, EntityID: testLight, On: false},
			wantOK: true,
		},
		{
			name: "pack 1 release is disabled",
			ev:   KeyEvent{QueueID: 9, KeyCode: 0x22, IsRelease: true},
		},
		{
			name: "pack 1 press is disabled",
			ev:   KeyEvent{QueueID: 9, KeyCode: 0x22, IsRelease: false},
		},
		{
			name: "dome light key on another queue",
			ev:   KeyEvent{QueueID: 8, KeyCode: 0x13, IsRelease: true},
		},
		{
			name: "unbound key",
			ev:   KeyEvent{QueueID: 9, KeyCode: 0x14, IsRelease: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.MapKeyEvent(tt.ev)
			if ok != tt.wantOK {
				t.Fatalf("MapKeyEvent() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("MapKeyEvent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMapPackEvent(t *testing.T) {
	m := NewActionMapper(testLight, testClimate, nil)

	for _, on := range []bool{true, false} {
		got, ok := m.MapPackEvent(PackEvent{On: on})
		if !ok {
			t.Fatalf("MapPackEvent(%v) ok = false", on)
		}
		want := Action{Target: TargetClimate, EntityID: testClimate, On: on}
		if got != want {
			t.Errorf("MapPackEvent(%v) = %+v, want %+v", on, got, want)
		}
	}
}

func TestExecute(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{Action{Target: TargetLight, EntityID: testLight, On: true}, "TurnOnLight"},
		{Action{Target: TargetLight, EntityID: testLight, On: false}, "TurnOffLight"},
		{Action{Target: TargetClimate, EntityID: testClimate, On: true}, "TurnOnAC"},
		{Action{Target: TargetClimate, EntityID: testClimate, On: false}, "TurnOffAC"},
	}

	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			act := &mockActuator{}
			if err := Execute(context.Background(), act, tt.action); err != nil {
				t.Fatalf("Execute() error: %v", err)
			}
			calls := act.getCalls()
			if len(calls) != 1 {
				t.Fatalf("calls = %d, want 1", len(calls))
			}
			if calls[0].method != tt.want || calls[0].entityID != tt.action.EntityID {
				t.Errorf("call = %+v, want %s(%s)", calls[0], tt.want, tt.action.EntityID)
			}
		})
	}
}

func TestExecuteUnknownTarget(t *testing.T) {
	act := &mockActuator{}
	if err := Execute(context.Background(), act, Action{Target: "fan"}); err == nil {
		t.Error("Execute() expected error for unknown target")
	}
	if len(act.getCalls()) != 0 {
		t.Error("actuator must not be called for unknown target")
	}
}

func TestExecutePropagatesActuatorError(t *testing.T) {
	boom := errors.New("boom")
	act := &mockActuator{err: boom}
	err := Execute(context.Background(), act, Action{Target: TargetLight, EntityID: testLight, On: true})
	if !errors.Is(err, boom) {
		t.Errorf("Execute() error = %v, want %v", err, boom)
	}
}

func TestActionString(t *testing.T) {
	a := Action{Target: TargetClimate, EntityID: testClimate, On: true}
	if got, want := a.String(), "climate climate.cabin -> on"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
