// Package conn holds the per-connection protocol state and the process-wide
// registry of live connections. A connection's dispatchable state is captured
// as an immutable Snapshot; dispatch computes a successor snapshot and the
// registry commits it, so packet handling itself never mutates shared state.
package conn

import (
	"sync"
	"sync/atomic"

	"github.com/UlusTech/nmc/metrics"
	"github.com/UlusTech/nmc/protocol"
)

// Snapshot is the dispatchable state of one connection at a point in time.
// It is a value: handlers receive a copy and return a modified copy.
type Snapshot struct {
	// ID is the process-unique connection id assigned at accept time.
	ID uint64
	// Remote is the peer address, for logs only.
	Remote string
	// Phase gates which packet ids are decodable and dispatchable.
	Phase protocol.Phase
	// ProtocolVersion is the client's announced version, 0 before handshake.
	ProtocolVersion int32
	// ServerAddress is the hostname the client dialed, recorded verbatim
	// from the handshake including any trailing metadata some client
	// forks append.
	ServerAddress string
	// ServerPort is the port the client dialed.
	ServerPort uint16
	// Closing marks a connection whose Disconnect effect has been issued.
	// No further packets are dispatched once set.
	Closing bool
}

// WithPhase returns a copy of the snapshot in the given phase.
func (s Snapshot) WithPhase(p protocol.Phase) Snapshot {
	s.Phase = p
	return s
}

// WithHandshake returns a copy carrying the negotiated handshake fields.
func (s Snapshot) WithHandshake(hs protocol.Handshake) Snapshot {
	s.ProtocolVersion = hs.ProtocolVersion
	s.ServerAddress = hs.ServerAddress
	s.ServerPort = hs.ServerPort
	return s
}

// WithClosing returns a copy marked as closing.
func (s Snapshot) WithClosing() Snapshot {
	s.Closing = true
	return s
}

// Registry tracks all live connections. Reads vastly outnumber writes; a
// RWMutex over a plain map is enough at the connection counts a status
// endpoint sees.
type Registry struct {
	lock   sync.RWMutex
	conns  map[uint64]Snapshot
	nextID atomic.Uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[uint64]Snapshot)}
}

// Open registers a new connection in the Handshaking phase and returns its
// initial snapshot.
func (r *Registry) Open(remote string) Snapshot {
	s := Snapshot{
		ID:     r.nextID.Add(1),
		Remote: remote,
		Phase:  protocol.Handshaking,
	}
	r.lock.Lock()
	r.conns[s.ID] = s
	count := len(r.conns)
	r.lock.Unlock()

	metrics.IncrCounter("net", "conn_opened_total", 1)
	metrics.UpdateGauge("net", "current_connections", metrics.Value(count))
	return s
}

// Get returns the current snapshot for id.
func (r *Registry) Get(id uint64) (Snapshot, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	s, ok := r.conns[id]
	return s, ok
}

// Commit stores the successor snapshot produced by dispatch. Committing an
// id that was already removed is a no-op; the close won the race.
func (r *Registry) Commit(s Snapshot) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.conns[s.ID]; ok {
		r.conns[s.ID] = s
	}
}

// Close removes the connection from the registry. Safe to call twice.
func (r *Registry) Close(id uint64, reason string) {
	r.lock.Lock()
	_, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	count := len(r.conns)
	r.lock.Unlock()

	if !ok {
		return
	}
	metrics.IncrCounterWithDim("net", "conn_closed_total", 1, map[string]string{"reason": reason})
	metrics.UpdateGauge("net", "current_connections", metrics.Value(count))
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.conns)
}

// Range calls f for every live connection snapshot until f returns false.
func (r *Registry) Range(f func(Snapshot) bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for _, s := range r.conns {
		if !f(s) {
			return
		}
	}
}
