package panel

import "errors"

// Domain errors for the panel bridge package.
var (
	// ErrTransport is returned when the subscription socket fails while
	// polling or receiving. The connection is torn down and recreated.
	ErrTransport = errors.New("panel: transport error")

	// ErrNotConnected is returned when an operation requires a subscriber
	// but the connection manager is disconnected.
	ErrNotConnected = errors.New("panel: not connected")

	// ErrShortHeader is returned when the first frame holds fewer than
	// HeaderSize bytes. The message is discarded.
	ErrShortHeader = errors.New("panel: short header")

	// ErrInvalidLength is returned when the header declares a negative
	// payload length.
	ErrInvalidLength = errors.New("panel: invalid payload length")

	// ErrTruncatedPayload is returned when all frames together carry fewer
	// bytes than the header declares.
	ErrTruncatedPayload = errors.New("panel: truncated payload")

	// ErrShortPayload is returned when a payload is too small for the
	// fixed layout of its message kind.
	ErrShortPayload = errors.New("panel: short payload")
)

// IsProtocolError reports whether err describes a malformed message rather
// than a transport fault. Protocol errors never tear the connection down.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrShortHeader) ||
		errors.Is(err, ErrInvalidLength) ||
		errors.Is(err, ErrTruncatedPayload) ||
		errors.Is(err, ErrShortPayload)
}
