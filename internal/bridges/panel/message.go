package panel

import (
	"encoding/binary"
	"fmt"
)

// Kind identifies the type of a panel message.
type Kind uint32

// Message kinds published by the panel controller.
const (
	// KindHeartbeat carries no payload; its arrival proves the publisher is alive.
	KindHeartbeat Kind = 0x07324D6D

	// KindKeyEvent carries a 12-byte KeyEvent payload.
	KindKeyEvent Kind = 0x07324D6E

	// KindPackEvent carries a 1-byte PackEvent payload.
	KindPackEvent Kind = 0x07324D6F
)

// HeaderSize is the fixed size of the message header (kind + length).
const HeaderSize = 8

// String returns a short name for known kinds and the hex value otherwise.
func (k Kind) String() string {
	switch k {
	case KindHeartbeat:
		return "heartbeat"
	case KindKeyEvent:
		return "key_event"
	case KindPackEvent:
		return "pack_event"
	default:
		return fmt.Sprintf("unknown(0x%08X)", uint32(k))
	}
}

// Header is the fixed 8-byte prefix of every logical message.
type Header struct {
	Kind   Kind
	Length int32
}

// Message is a decoded header plus its reassembled payload.
// It lives for a single dispatch cycle.
type Message struct {
	Header  Header
	Payload []byte
}

// DecodeHeader parses the message header from the start of the first frame.
//
// The layout is:
//
//	Byte 0-3: kind (uint32, little-endian)
//	Byte 4-7: payload length (int32, little-endian)
//
// Returns:
//   - Header: Parsed header
//   - error: ErrShortHeader if fewer than 8 bytes are available,
//     ErrInvalidLength if the declared length is negative
func DecodeHeader(frame []byte) (Header, error) {
	r := newReader(frame)

	kind, err := r.uint32()
	if err != nil {
		return Header{}, fmt.Errorf("%w: %d bytes, need %d", ErrShortHeader, len(frame), HeaderSize)
	}
	length, err := r.int32()
	if err != nil {
		return Header{}, fmt.Errorf("%w: %d bytes, need %d", ErrShortHeader, len(frame), HeaderSize)
	}
	if length < 0 {
		return Header{}, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}

	return Header{Kind: Kind(kind), Length: length}, nil
}

// AssemblePayload rebuilds the payload of a message from its frames.
//
// frames[0] must start with the header. When the rest of frames[0] already
// holds length bytes the payload is taken from there and any trailing bytes
// (and later frames) are ignored. Otherwise the rest of frames[0] and all
// following frames are concatenated in order and the first length bytes are
// returned.
//
// Returns:
//   - []byte: A fresh copy of the payload (never aliases the frames)
//   - error: ErrTruncatedPayload if the frames carry fewer than length bytes
func AssemblePayload(length int, frames [][]byte) ([]byte, error) {
	if len(frames) == 0 || len(frames[0]) < HeaderSize {
		return nil, ErrShortHeader
	}

	tail0 := frames[0][HeaderSize:]
	if len(tail0) >= length {
		payload := make([]byte, length)
		copy(payload, tail0[:length])
		return payload, nil
	}

	// The declared length is untrusted; size nothing from it until the
	// frames are known to hold that many bytes.
	available := len(tail0)
	for _, frame := range frames[1:] {
		available += len(frame)
	}
	if available < length {
		return nil, fmt.Errorf("%w: have %d bytes, header declares %d", ErrTruncatedPayload, available, length)
	}

	payload := make([]byte, 0, length)
	payload = append(payload, tail0...)
	for _, frame := range frames[1:] {
		if len(payload) >= length {
			break
		}
		payload = append(payload, frame[:min(len(frame), length-len(payload))]...)
	}

	return payload, nil
}

// ParseMessage decodes the header and reassembles the payload of one logical
// message.
//
// Parameters:
//   - frames: Ordered frames from a single receive
//
// Returns:
//   - Message: Header and payload
//   - error: A protocol error (see IsProtocolError) if the message is malformed
func ParseMessage(frames [][]byte) (Message, error) {
	if len(frames) == 0 {
		return Message{}, fmt.Errorf("%w: no frames", ErrShortHeader)
	}

	header, err := DecodeHeader(frames[0])
	if err != nil {
		return Message{}, err
	}

	payload, err := AssemblePayload(int(header.Length), frames)
	if err != nil {
		return Message{}, fmt.Errorf("%s: %w", header.Kind, err)
	}

	return Message{Header: header, Payload: payload}, nil
}

// EncodeMessage builds a single-frame message in panel wire format.
//
// Parameters:
//   - kind: Message kind
//   - payload: Message payload (may be nil)
//
// Returns:
//   - []byte: Header followed by payload
func EncodeMessage(kind Kind, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(kind))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload))) //nolint:gosec // bounded by frame sizes
	copy(buf[HeaderSize:], payload)
	return buf
}
