package panel

import (
	"errors"
	"testing"
)

func TestDecodeKeyEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    KeyEvent
		wantErr bool
	}{
		{
			name:    "dome light release",
			payload: []byte{9, 0, 0, 0, 0x13, 0, 0, 0, 1, 0, 0, 0},
			want:    KeyEvent{QueueID: 9, KeyCode: 0x13, IsRelease: true},
		},
		{
			name:    "dome light press",
			payload: []byte{9, 0, 0, 0, 0x13, 0, 0, 0, 0, 0, 0, 0},
			want:    KeyEvent{QueueID: 9, KeyCode: 0x13, IsRelease: false},
		},
		{
			name:    "any nonzero release word is a release",
			payload: []byte{1, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0x80},
			want:    KeyEvent{QueueID: 1, KeyCode: 2, IsRelease: true},
		},
		{
			name:    "negative values are signed",
			payload: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFE, 0xFF, 0xFF, 0xFF, 0, 0, 0, 0},
			want:    KeyEvent{QueueID: -1, KeyCode: -2},
		},
		{
			name:    "extra bytes ignored",
			payload: []byte{9, 0, 0, 0, 0x22, 0, 0, 0, 1, 0, 0, 0, 0xAA},
			want:    KeyEvent{QueueID: 9, KeyCode: 0x22, IsRelease: true},
		},
		{
			name:    "eleven bytes",
			payload: make([]byte, 11),
			wantErr: true,
		},
		{
			name:    "empty",
			payload: nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeKeyEvent(tt.payload)
			if tt.wantErr {
				if !errors.Is(err, ErrShortPayload) {
					t.Fatalf("DecodeKeyEvent() error = %v, want ErrShortPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeKeyEvent() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeKeyEvent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodePackEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    bool
		wantErr bool
	}{
		{name: "on", payload: []byte{1}, want: true},
		{name: "off", payload: []byte{0}, want: false},
		{name: "nonzero is on", payload: []byte{0x7F}, want: true},
		{name: "empty", payload: []byte{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePackEvent(tt.payload)
			if tt.wantErr {
				if !errors.Is(err, ErrShortPayload) {
					t.Fatalf("DecodePackEvent() error = %v, want ErrShortPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePackEvent() unexpected error: %v", err)
			}
			if got.On != tt.want {
				t.Errorf("DecodePackEvent().On = %v, want %v", got.On, tt.want)
			}
		})
	}
}

func TestKeyEventEncodeRoundTrip(t *testing.T) {
	ev := KeyEvent{QueueID: 9, KeyCode: 0x22, IsRelease: true}
	got, err := DecodeKeyEvent(ev.Encode())
	if err != nil {
		t.Fatalf("DecodeKeyEvent() error: %v", err)
	}
	if got != ev {
		t.Errorf("round trip = %v, want %v", got, ev)
	}
}

func TestKeyEventString(t *testing.T) {
	ev := KeyEvent{QueueID: 9, KeyCode: 0x13, IsRelease: true}
	want := "KeyEvent{Queue:9, Key:0x13, Release:true}"
	if got := ev.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
