// Package dispatcher is the packet processing engine. It receives decoded
// packets from the transport layer, runs them through a filter chain (rate
// limiting, packet filtering), and computes the protocol reaction: a new
// connection snapshot plus an ordered list of effects. The reaction is a pure
// function of (snapshot, packet); the runtime interprets the effects.
package dispatcher

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/UlusTech/nmc/log"
	"github.com/UlusTech/nmc/metrics"
	"github.com/UlusTech/nmc/network/conn"
	"github.com/UlusTech/nmc/network/effect"
	"github.com/UlusTech/nmc/protocol"
)

// Delivery carries one decoded packet through the filter chain. After the
// chain completes, NewState and Effects hold the dispatch result.
type Delivery struct {
	Conn   conn.Snapshot
	Packet protocol.Packet

	NewState conn.Snapshot
	Effects  []effect.Effect
}

// Config holds the dispatcher's tunables. All fields hot-reload.
type Config struct {
	// RecvRateLimit caps dispatched packets per second across the process.
	RecvRateLimit int `mapstructure:"recvRateLimit" yaml:"recvRateLimit"`
	// TokenBurst is the token bucket burst size; ignored by the funnel.
	TokenBurst int `mapstructure:"tokenBurst" yaml:"tokenBurst"`
	// LimiterKind selects the limiter algorithm: "token" or "funnel".
	LimiterKind string `mapstructure:"limiterKind" yaml:"limiterKind"`
	// PacketFilter lists packet names to drop before dispatch.
	PacketFilter []string `mapstructure:"packetFilter" yaml:"packetFilter"`
}

// GetName returns the configuration key for the dispatcher settings.
func (c *Config) GetName() string {
	return "dispatcher"
}

// Validate checks the configuration ranges.
func (c *Config) Validate() error {
	if c.RecvRateLimit <= 0 {
		return errors.New("recvRateLimit must be positive")
	}
	if c.LimiterKind != LimiterToken && c.LimiterKind != LimiterFunnel {
		return errors.Errorf("limiterKind must be %q or %q", LimiterToken, LimiterFunnel)
	}
	if c.LimiterKind == LimiterToken && c.TokenBurst <= 0 {
		return errors.New("tokenBurst must be positive for the token limiter")
	}
	return nil
}

// DefaultConfig returns a permissive dispatcher configuration.
func DefaultConfig() *Config {
	return &Config{
		RecvRateLimit: 1000,
		TokenBurst:    200,
		LimiterKind:   LimiterToken,
	}
}

// Dispatcher routes decoded packets. It is safe for concurrent use by all
// connection read loops; dispatch itself touches no shared mutable state, and
// the reloadable parts sit behind a lock.
type Dispatcher struct {
	lock         sync.RWMutex
	filterMap    map[string]struct{}
	chain        FilterChain
	status       protocol.StatusResponse
	tokenLimiter *TokenRecvLimiter
	funnel       *FunnelRecvLimiter
}

// NewDispatcher creates a dispatcher serving the given status document.
func NewDispatcher(cfg *Config, doc protocol.StatusDocument) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid dispatcher config")
	}
	body, err := doc.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "marshal status document")
	}

	dp := &Dispatcher{status: protocol.StatusResponse{JSON: body}}
	dp.reloadFilterCfg(cfg)

	var limiterFilter Filter
	switch cfg.LimiterKind {
	case LimiterFunnel:
		dp.funnel = NewFunnelRecvLimiter(cfg.RecvRateLimit)
		limiterFilter = dp.funnel.recvLimiterFilter
	default:
		dp.tokenLimiter = NewTokenRecvLimiter(cfg.RecvRateLimit, cfg.TokenBurst)
		limiterFilter = dp.tokenLimiter.recvLimiterFilter
	}
	dp.chain = FilterChain{limiterFilter, dp.packetFilter}
	return dp, nil
}

// Reload applies a new configuration at runtime. The limiter kind is fixed
// at construction; rate and filter list hot-reload.
func (dp *Dispatcher) Reload(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid dispatcher config")
	}
	dp.lock.Lock()
	dp.reloadFilterCfg(cfg)
	dp.lock.Unlock()

	if dp.tokenLimiter != nil {
		dp.tokenLimiter.Reload(cfg.RecvRateLimit, cfg.TokenBurst)
	}
	if dp.funnel != nil {
		dp.funnel.Reload(cfg.RecvRateLimit)
	}
	log.Info().Int("rateLimit", cfg.RecvRateLimit).Msg("Dispatcher configuration reloaded")
	return nil
}

// HandlePacket runs the filter chain and then dispatch. It fills d.NewState
// and d.Effects; a filter that drops the packet leaves the snapshot as-is.
func (dp *Dispatcher) HandlePacket(d *Delivery) error {
	d.NewState = d.Conn
	return dp.chain.Handle(d, func(d *Delivery) error {
		d.NewState, d.Effects = dp.Dispatch(d.Conn, d.Packet)
		return nil
	})
}

// Dispatch computes the protocol reaction to one packet. It is pure: the
// same snapshot and packet always yield the same successor state and the
// same effect list, in the same order.
func (dp *Dispatcher) Dispatch(snap conn.Snapshot, pkt protocol.Packet) (conn.Snapshot, []effect.Effect) {
	if snap.Closing {
		return snap, nil
	}

	switch p := pkt.(type) {
	case protocol.Handshake:
		if snap.Phase != protocol.Handshaking {
			return dp.protocolViolation(snap, pkt, "handshake outside handshaking phase")
		}
		return dp.dispatchHandshake(snap, p)

	case protocol.StatusRequest:
		if snap.Phase != protocol.Status {
			return dp.protocolViolation(snap, pkt, "status request outside status phase")
		}
		metrics.IncrCounter("proto", "status_requests_total", 1)
		return snap, []effect.Effect{
			effect.SendPacket{ConnID: snap.ID, Packet: dp.statusResponse()},
		}

	case protocol.PingRequest:
		if snap.Phase != protocol.Status {
			return dp.protocolViolation(snap, pkt, "ping outside status phase")
		}
		metrics.IncrCounter("proto", "pings_total", 1)
		// The status exchange ends with the pong; close afterwards so
		// the slot frees immediately instead of waiting for the idle
		// timer.
		return snap.WithClosing(), []effect.Effect{
			effect.SendPacket{ConnID: snap.ID, Packet: protocol.PingResponse{Payload: p.Payload}},
			effect.Disconnect{ConnID: snap.ID, Reason: "status complete"},
		}

	default:
		return dp.protocolViolation(snap, pkt, "unhandled packet type")
	}
}

func (dp *Dispatcher) dispatchHandshake(snap conn.Snapshot, hs protocol.Handshake) (conn.Snapshot, []effect.Effect) {
	next, ok := protocol.NextPhase(hs.NextState)
	if !ok {
		return dp.protocolViolation(snap, hs, fmt.Sprintf("next state %d", hs.NextState))
	}

	snap = snap.WithHandshake(hs).WithPhase(next)
	if !next.Handled() {
		// Login (and anything past it) is out of scope for this server;
		// the client is told so and cut off.
		metrics.IncrCounterWithDim("proto", "unsupported_phase_total", 1,
			map[string]string{"phase": next.String()})
		return snap.WithClosing(), []effect.Effect{
			effect.Log{Level: log.InfoLevel, Message: "client requested unsupported phase", Fields: map[string]string{
				"phase":  next.String(),
				"remote": snap.Remote,
			}},
			effect.Disconnect{ConnID: snap.ID, Reason: "phase not supported: " + next.String()},
		}
	}

	return snap, []effect.Effect{
		effect.Log{Level: log.DebugLevel, Message: "handshake accepted", Fields: map[string]string{
			"protocolVersion": fmt.Sprint(hs.ProtocolVersion),
			"serverAddress":   hs.ServerAddress,
			"nextPhase":       next.String(),
		}},
	}
}

// protocolViolation is the uniform reaction to a packet that is decodable
// but illegal in the connection's current phase.
func (dp *Dispatcher) protocolViolation(snap conn.Snapshot, pkt protocol.Packet, reason string) (conn.Snapshot, []effect.Effect) {
	metrics.IncrCounter("proto", "violations_total", 1)
	return snap.WithClosing(), []effect.Effect{
		effect.Log{Level: log.WarnLevel, Message: "protocol violation", Fields: map[string]string{
			"packet": pkt.Name(),
			"phase":  snap.Phase.String(),
			"reason": reason,
		}},
		effect.Disconnect{ConnID: snap.ID, Reason: "protocol violation: " + reason},
	}
}

// statusResponse returns the pre-marshaled status packet.
func (dp *Dispatcher) statusResponse() protocol.StatusResponse {
	dp.lock.RLock()
	defer dp.lock.RUnlock()
	return dp.status
}

// SetStatus swaps the served status document at runtime.
func (dp *Dispatcher) SetStatus(doc protocol.StatusDocument) error {
	body, err := doc.Marshal()
	if err != nil {
		return errors.Wrap(err, "marshal status document")
	}
	dp.lock.Lock()
	dp.status = protocol.StatusResponse{JSON: body}
	dp.lock.Unlock()
	return nil
}
