package panel

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Fixed payload sizes.
const (
	// KeyEventSize is the payload size of a key event: three int32 values.
	KeyEventSize = 12

	// PackEventSize is the payload size of a pack event: one boolean byte.
	PackEventSize = 1
)

// KeyEvent is a key press or release reported by the panel.
type KeyEvent struct {
	// QueueID identifies the input queue (physical key group) on the panel.
	QueueID int32

	// KeyCode identifies the key within the queue.
	KeyCode int32

	// IsRelease is true when the key was released, false when pressed.
	IsRelease bool
}

// String returns a human-readable representation of the key event.
func (e KeyEvent) String() string {
	return fmt.Sprintf("KeyEvent{Queue:%d, Key:0x%02X, Release:%v}", e.QueueID, e.KeyCode, e.IsRelease)
}

// PackEvent reports the state of the climate pack control.
type PackEvent struct {
	On bool
}

// DecodeKeyEvent parses a key event payload.
//
// The layout is three little-endian int32 values:
//
//	Byte 0-3:  queue id
//	Byte 4-7:  key code
//	Byte 8-11: release flag (nonzero = released)
//
// Bytes beyond the first 12 are ignored.
func DecodeKeyEvent(payload []byte) (KeyEvent, error) {
	r := newReader(payload)
	if r.remaining() < KeyEventSize {
		return KeyEvent{}, fmt.Errorf("%w: key event has %d bytes, need %d", ErrShortPayload, len(payload), KeyEventSize)
	}

	queueID, _ := r.int32() //nolint:errcheck // length checked above
	keyCode, _ := r.int32() //nolint:errcheck // length checked above
	release, _ := r.int32() //nolint:errcheck // length checked above

	return KeyEvent{
		QueueID:   queueID,
		KeyCode:   keyCode,
		IsRelease: release != 0,
	}, nil
}

// DecodePackEvent parses a pack event payload. Any nonzero first byte means on.
func DecodePackEvent(payload []byte) (PackEvent, error) {
	r := newReader(payload)
	b, err := r.byte()
	if err != nil {
		return PackEvent{}, fmt.Errorf("%w: pack event has %d bytes, need %d", ErrShortPayload, len(payload), PackEventSize)
	}
	return PackEvent{On: b != 0}, nil
}

// Encode returns the wire payload for the key event.
func (e KeyEvent) Encode() []byte {
	buf := make([]byte, KeyEventSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(e.QueueID)) //nolint:gosec // two's complement is the wire contract
	binary.LittleEndian.PutUint32(buf[4:8], uint32(e.KeyCode)) //nolint:gosec // two's complement is the wire contract
	if e.IsRelease {
		binary.LittleEndian.PutUint32(buf[8:12], 1)
	}
	return buf
}

// Encode returns the wire payload for the pack event.
func (e PackEvent) Encode() []byte {
	if e.On {
		return []byte{1}
	}
	return []byte{0}
}

// Event is a decoded key or pack event handed to observers.
// Exactly one of Key and Pack is set.
type Event struct {
	Kind       Kind
	Key        *KeyEvent
	Pack       *PackEvent
	ReceivedAt time.Time
}
