// Package effect defines the side-effect vocabulary produced by packet
// dispatch. Handlers never touch sockets or loggers directly; they return an
// ordered list of effects, and the runtime interprets the list against the
// real connection afterwards. This keeps dispatch a pure function that tests
// can assert on byte-for-byte.
package effect

import (
	"github.com/UlusTech/nmc/log"
	"github.com/UlusTech/nmc/protocol"
)

// Effect is one deferred side effect requested by a packet handler.
// The variant set is closed: SendPacket, Disconnect and Log.
type Effect interface {
	// Kind returns the effect name for logs and tests.
	Kind() string
}

// SendPacket queues one outbound packet on the originating connection.
// Effects are interpreted in list order, so a handler that sends a response
// and then disconnects yields the response before the socket closes.
type SendPacket struct {
	ConnID uint64
	Packet protocol.Packet
}

// Kind implements Effect.
func (SendPacket) Kind() string { return "send_packet" }

// Disconnect closes the originating connection after all effects queued
// before it have been interpreted.
type Disconnect struct {
	ConnID uint64
	Reason string
}

// Kind implements Effect.
func (Disconnect) Kind() string { return "disconnect" }

// Log emits one structured log line. Handlers record what happened through
// this effect rather than writing to the logger themselves, so a dispatch
// result fully describes its observable behavior.
type Log struct {
	Level   log.Level
	Message string
	Fields  map[string]string
}

// Kind implements Effect.
func (Log) Kind() string { return "log" }

// Interpreter executes an ordered effect list against the live world.
// The runtime implements this; tests substitute recording fakes.
type Interpreter interface {
	// Interpret applies each effect in order. It stops at the first
	// Disconnect for a connection; later effects addressed to that
	// connection are dropped.
	Interpret(effects []Effect) error
}
