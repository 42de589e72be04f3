// Package panel implements the wall panel event bridge for Gray Logic.
//
// The panel controller publishes binary events on a ZeroMQ PUB socket. This
// package subscribes to that stream, decodes the messages and turns the
// interesting ones into Home Assistant actuation commands.
//
// # Architecture
//
//	┌─────────────────┐   ZMQ SUB   ┌─────────────────┐   REST   ┌────────────────┐
//	│ Panel controller│────────────►│  Panel Bridge   │─────────►│ Home Assistant │
//	└─────────────────┘             │   (this pkg)    │          └────────────────┘
//	                                └─────────────────┘
//
// # Wire Format
//
// Every logical message starts with an 8-byte little-endian header:
//
//	Byte 0-3: Message kind (uint32)
//	Byte 4-7: Payload length (int32)
//	Byte 8+:  Payload, possibly continued in later transport frames
//
// Recognised kinds are heartbeat (0x07324D6D), key event (0x07324D6E) and
// pack event (0x07324D6F). Everything else is dropped at debug level.
//
// # Liveness
//
// The controller sends a heartbeat every few seconds. When none arrives for
// HeartbeatTimeout the subscription is torn down and recreated on the next
// loop iteration. Transport errors take the same path.
//
// # Thread Safety
//
// Bridge.Run is a single-goroutine loop and owns the subscriber exclusively.
// Stats and IsConnected may be called from any goroutine.
package panel
