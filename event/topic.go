package event

import "time"

// Built-in topics published by the engine.
const (
	// ConnOpened fires after a connection is registered; payload ConnEvent.
	ConnOpened = "ConnOpened"
	// ConnClosed fires after a connection is purged; payload ConnEvent.
	ConnClosed = "ConnClosed"
	// ReloadConfig fires when the process configuration is re-applied.
	ReloadConfig = "ReloadConfig"
)

// ConnEvent is the payload of connection lifecycle topics.
type ConnEvent struct {
	ConnID uint64
	Remote string
	// Reason is set on ConnClosed when the close was server-initiated.
	Reason string
}

// Subscriber consumes published payloads for one topic.
type Subscriber func(param any)

// Topic holds the subscription list for a single topic.
type Topic struct {
	timeout     time.Duration
	subscribers []Subscriber
}
