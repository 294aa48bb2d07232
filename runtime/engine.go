// Package runtime hosts the engine that ties the layers together: it owns
// the connection registry, feeds transport chunks through the framer, hands
// decoded packets to the dispatcher and interprets the resulting effects
// against the live connections. Each connection is processed to completion
// on its own read goroutine; the engine adds no queues of its own.
package runtime

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/UlusTech/nmc/event"
	"github.com/UlusTech/nmc/log"
	"github.com/UlusTech/nmc/metrics"
	"github.com/UlusTech/nmc/network/conn"
	"github.com/UlusTech/nmc/network/dispatcher"
	"github.com/UlusTech/nmc/network/effect"
	"github.com/UlusTech/nmc/network/transport"
	"github.com/UlusTech/nmc/protocol"
	"github.com/UlusTech/nmc/utils/pool"
)

// Engine is the protocol core of the server process. It implements
// transport.ChunkReceiver for inbound bytes and effect.Interpreter for the
// dispatcher's outputs.
type Engine struct {
	registry   *conn.Registry
	dispatcher *dispatcher.Dispatcher
	publisher  *event.Publisher
	deliveries *pool.Pool

	lock  sync.RWMutex
	wires map[uint64]*wire
}

// wire pairs a live transport connection with its undecoded byte backlog.
// Only the connection's read goroutine touches buf.
type wire struct {
	conn transport.Conn
	buf  []byte
}

var (
	_ transport.ChunkReceiver = (*Engine)(nil)
	_ effect.Interpreter      = (*Engine)(nil)
)

// NewEngine creates an engine around the given dispatcher.
func NewEngine(dp *dispatcher.Dispatcher, pub *event.Publisher) *Engine {
	return &Engine{
		registry:   conn.NewRegistry(),
		dispatcher: dp,
		publisher:  pub,
		deliveries: pool.NewPool("runtime.delivery", func() any { return new(dispatcher.Delivery) }),
		wires:      make(map[uint64]*wire),
	}
}

// Registry exposes the connection registry, mainly for introspection.
func (e *Engine) Registry() *conn.Registry {
	return e.registry
}

// OnConnOpened implements transport.ChunkReceiver.
func (e *Engine) OnConnOpened(c transport.Conn) uint64 {
	snap := e.registry.Open(c.Remote())

	e.lock.Lock()
	e.wires[snap.ID] = &wire{conn: c}
	e.lock.Unlock()

	log.Debug().Uint64("conn", snap.ID).Str("remote", snap.Remote).Msg("Connection opened")
	if e.publisher != nil {
		_ = e.publisher.Publish(event.ConnOpened, event.ConnEvent{ConnID: snap.ID, Remote: snap.Remote})
	}
	return snap.ID
}

// OnChunk implements transport.ChunkReceiver. It appends the chunk to the
// connection's backlog and decodes as many complete frames as the backlog
// holds, dispatching each in arrival order. A malformed frame poisons the
// connection: the error propagates to the transport, which closes it.
func (e *Engine) OnChunk(connID uint64, chunk []byte) error {
	e.lock.RLock()
	w := e.wires[connID]
	e.lock.RUnlock()
	if w == nil {
		return errors.Errorf("chunk for unknown conn %d", connID)
	}
	w.buf = append(w.buf, chunk...)

	for {
		snap, ok := e.registry.Get(connID)
		if !ok || snap.Closing {
			// The connection is on its way out; drop the backlog.
			w.buf = nil
			return nil
		}

		pkt, rest, err := protocol.DecodeFrame(w.buf, snap.Phase)
		if err == protocol.ErrIncomplete {
			w.buf = rest
			return nil
		}
		if err != nil {
			metrics.IncrCounterWithDim("proto", "invalid_frames_total", 1,
				map[string]string{"phase": snap.Phase.String()})
			log.Warn().Uint64("conn", connID).Str("phase", snap.Phase.String()).
				Err(err).Msg("Malformed frame")
			w.buf = nil
			return errors.Wrap(err, "malformed frame")
		}
		w.buf = rest
		metrics.IncrCounter("proto", "frames_decoded_total", 1)

		d := e.deliveries.Get().(*dispatcher.Delivery)
		*d = dispatcher.Delivery{Conn: snap, Packet: pkt}
		if err := e.dispatcher.HandlePacket(d); err != nil {
			e.deliveries.Put(d)
			return errors.Wrapf(err, "dispatch %s", pkt.Name())
		}
		newState, effects := d.NewState, d.Effects
		e.deliveries.Put(d)

		e.registry.Commit(newState)
		if err := e.Interpret(effects); err != nil {
			return err
		}
	}
}

// OnConnClosed implements transport.ChunkReceiver.
func (e *Engine) OnConnClosed(connID uint64, reason string) {
	e.lock.Lock()
	w, ok := e.wires[connID]
	if ok {
		delete(e.wires, connID)
	}
	e.lock.Unlock()
	if !ok {
		return
	}

	var remote string
	if snap, ok := e.registry.Get(connID); ok {
		remote = snap.Remote
	} else if w.conn != nil {
		remote = w.conn.Remote()
	}
	e.registry.Close(connID, reason)

	log.Debug().Uint64("conn", connID).Str("reason", reason).Msg("Connection closed")
	if e.publisher != nil {
		_ = e.publisher.Publish(event.ConnClosed, event.ConnEvent{ConnID: connID, Remote: remote, Reason: reason})
	}
}

// Interpret implements effect.Interpreter. Effects execute in list order;
// once a connection's Disconnect runs, later effects addressed to it are
// dropped.
func (e *Engine) Interpret(effects []effect.Effect) error {
	closed := map[uint64]bool{}
	for _, eff := range effects {
		switch v := eff.(type) {
		case effect.SendPacket:
			if closed[v.ConnID] {
				continue
			}
			if err := e.send(v.ConnID, v.Packet); err != nil {
				return err
			}
		case effect.Disconnect:
			if closed[v.ConnID] {
				continue
			}
			closed[v.ConnID] = true
			e.closeConn(v.ConnID, v.Reason)
		case effect.Log:
			e.logEffect(v)
		default:
			return errors.Errorf("unknown effect %q", eff.Kind())
		}
	}
	return nil
}

func (e *Engine) send(connID uint64, pkt protocol.Packet) error {
	e.lock.RLock()
	w := e.wires[connID]
	e.lock.RUnlock()
	if w == nil {
		return errors.Errorf("send to unknown conn %d", connID)
	}
	if err := w.conn.Send(protocol.EncodeFrame(pkt)); err != nil {
		return errors.Wrapf(err, "send %s", pkt.Name())
	}
	return nil
}

func (e *Engine) closeConn(connID uint64, reason string) {
	e.lock.RLock()
	w := e.wires[connID]
	e.lock.RUnlock()
	if w != nil {
		w.conn.Close(reason)
	}
}

func (e *Engine) logEffect(v effect.Log) {
	var ev *log.LogEvent
	switch v.Level {
	case log.TraceLevel:
		ev = log.Trace()
	case log.DebugLevel:
		ev = log.Debug()
	case log.WarnLevel:
		ev = log.Warn()
	case log.ErrorLevel:
		ev = log.Error()
	default:
		ev = log.Info()
	}
	for k, val := range v.Fields {
		ev = ev.Str(k, val)
	}
	ev.Msg(v.Message)
}
