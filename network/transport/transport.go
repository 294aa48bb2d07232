// Package transport defines the contracts between the byte-moving layer and
// the protocol runtime. A transport owns sockets and goroutines; it surfaces
// raw byte chunks upward and accepts encoded frames downward. Framing,
// decoding and dispatch all happen above this layer.
package transport

// Transport is the lifecycle interface every transport implements.
type Transport interface {
	// Start brings the transport online and begins accepting connections.
	// Non-blocking; the accept loop runs on its own goroutine.
	Start(opt Option) error

	// Stop shuts the transport down: the listener closes and every active
	// connection is torn down.
	Stop() error
}

// CSTransport is a client-facing transport. Beyond the lifecycle it exposes
// per-connection control for the runtime's effect interpreter.
type CSTransport interface {
	Transport

	// CloseConn closes the connection with the given id. Closing an
	// unknown id is not an error; the connection already went away.
	CloseConn(connID uint64, reason string)

	// ConnCount returns the number of currently active connections.
	ConnCount() int
}

// Option carries the transport's upward dependencies.
type Option struct {
	// Receiver handles connection lifecycle and inbound bytes.
	Receiver ChunkReceiver
}

// Conn is the transport-side handle for one live connection, passed upward
// at accept time. Send and Close are safe for concurrent use.
type Conn interface {
	// Remote returns the peer address.
	Remote() string

	// Send queues one already-encoded frame for writing. It never blocks;
	// a full send queue is an error and the caller should close the
	// connection.
	Send(frame []byte) error

	// Close tears the connection down. Idempotent.
	Close(reason string)
}

// ChunkReceiver is the component above the transport, typically the runtime
// engine. The transport calls it from each connection's read goroutine, so
// per-connection calls are sequential but different connections are
// concurrent.
type ChunkReceiver interface {
	// OnConnOpened announces a new connection and returns the id the
	// transport must use for all later calls about it.
	OnConnOpened(c Conn) uint64

	// OnChunk delivers inbound bytes exactly as read from the socket,
	// with no alignment to frame boundaries. A non-nil error means the
	// connection is unrecoverable; the transport closes it.
	OnChunk(connID uint64, chunk []byte) error

	// OnConnClosed announces that the connection is gone, whatever the
	// cause. Called exactly once per opened connection.
	OnConnClosed(connID uint64, reason string)
}
