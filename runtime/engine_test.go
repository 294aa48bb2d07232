package runtime

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/UlusTech/nmc/event"
	"github.com/UlusTech/nmc/network/dispatcher"
	"github.com/UlusTech/nmc/network/transport"
	"github.com/UlusTech/nmc/protocol"
)

// fakeConn records frames and closes instead of touching a socket.
type fakeConn struct {
	remote string
	sent   [][]byte
	closed bool
	reason string
}

var _ transport.Conn = (*fakeConn)(nil)

func (c *fakeConn) Remote() string { return c.remote }

func (c *fakeConn) Send(frame []byte) error {
	c.sent = append(c.sent, frame)
	return nil
}

func (c *fakeConn) Close(reason string) {
	if !c.closed {
		c.closed = true
		c.reason = reason
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	doc := protocol.StatusDocument{
		Version:     protocol.StatusVersion{Name: "1.21", Protocol: 767},
		Players:     protocol.StatusPlayers{Max: 20, Online: 1},
		Description: protocol.StatusDescription{Text: "engine test"},
	}
	dp, err := dispatcher.NewDispatcher(dispatcher.DefaultConfig(), doc)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return NewEngine(dp, event.NewPublisher())
}

func handshakeFrame() []byte {
	b, _ := hex.DecodeString("1000ee01096c6f63616c686f737463dd01")
	return b
}

func TestEngineStatusExchange(t *testing.T) {
	e := newTestEngine(t)
	c := &fakeConn{remote: "127.0.0.1:50000"}
	id := e.OnConnOpened(c)

	if err := e.OnChunk(id, handshakeFrame()); err != nil {
		t.Fatalf("handshake chunk: %v", err)
	}
	snap, ok := e.Registry().Get(id)
	if !ok || snap.Phase != protocol.Status {
		t.Fatalf("after handshake: ok=%v snap=%+v", ok, snap)
	}
	if snap.ProtocolVersion != 238 || snap.ServerAddress != "localhost" || snap.ServerPort != 25565 {
		t.Fatalf("handshake fields: %+v", snap)
	}

	if err := e.OnChunk(id, []byte{0x01, 0x00}); err != nil {
		t.Fatalf("status request chunk: %v", err)
	}
	if len(c.sent) != 1 {
		t.Fatalf("sent = %d frames, want status response", len(c.sent))
	}
	doc := protocol.StatusDocument{
		Version:     protocol.StatusVersion{Name: "1.21", Protocol: 767},
		Players:     protocol.StatusPlayers{Max: 20, Online: 1},
		Description: protocol.StatusDescription{Text: "engine test"},
	}
	body, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	wantStatus := protocol.EncodeFrame(protocol.StatusResponse{JSON: body})
	if !bytes.Equal(c.sent[0], wantStatus) {
		t.Fatalf("status frame = %x, want %x", c.sent[0], wantStatus)
	}

	// Ping ends the exchange: pong then close.
	ping := protocol.EncodeFrame(protocol.PingRequest{Payload: 7})
	if err := e.OnChunk(id, ping); err != nil {
		t.Fatalf("ping chunk: %v", err)
	}
	if len(c.sent) != 2 {
		t.Fatalf("sent = %d frames, want pong", len(c.sent))
	}
	wantPong := protocol.EncodeFrame(protocol.PingResponse{Payload: 7})
	if !bytes.Equal(c.sent[1], wantPong) {
		t.Fatalf("pong = %x, want %x", c.sent[1], wantPong)
	}
	if !c.closed {
		t.Fatal("connection must close after the ping exchange")
	}
}

func TestEngineFragmentedChunks(t *testing.T) {
	e := newTestEngine(t)
	c := &fakeConn{remote: "127.0.0.1:50001"}
	id := e.OnConnOpened(c)

	// Byte-at-a-time delivery must behave exactly like one chunk.
	full := append(handshakeFrame(), 0x01, 0x00)
	for _, b := range full {
		if err := e.OnChunk(id, []byte{b}); err != nil {
			t.Fatalf("chunk: %v", err)
		}
	}
	if len(c.sent) != 1 {
		t.Fatalf("sent = %d frames, want 1 status response", len(c.sent))
	}
}

func TestEngineCoalescedChunk(t *testing.T) {
	e := newTestEngine(t)
	c := &fakeConn{remote: "127.0.0.1:50002"}
	id := e.OnConnOpened(c)

	// Handshake, status request and ping all in one chunk. The phase
	// changes mid-buffer and each frame decodes under the phase in force
	// when it is reached.
	chunk := append(handshakeFrame(), 0x01, 0x00)
	chunk = append(chunk, protocol.EncodeFrame(protocol.PingRequest{Payload: -5})...)
	if err := e.OnChunk(id, chunk); err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(c.sent) != 2 {
		t.Fatalf("sent = %d frames, want status response and pong", len(c.sent))
	}
	if !c.closed {
		t.Fatal("connection must close after ping")
	}
}

func TestEngineLoginHandshakeDisconnects(t *testing.T) {
	e := newTestEngine(t)
	c := &fakeConn{remote: "127.0.0.1:50003"}
	id := e.OnConnOpened(c)

	hs := protocol.Handshake{ProtocolVersion: 767, ServerAddress: "localhost", ServerPort: 25565, NextState: 2}
	if err := e.OnChunk(id, protocol.EncodeFrame(hs)); err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if !c.closed {
		t.Fatal("login handshake must close the connection")
	}
	if len(c.sent) != 0 {
		t.Fatalf("sent = %x, want nothing", c.sent)
	}
}

func TestEngineMalformedFrameIsFatal(t *testing.T) {
	e := newTestEngine(t)
	c := &fakeConn{remote: "127.0.0.1:50004"}
	id := e.OnConnOpened(c)

	// Valid frame boundary, but id 0x7f does not exist while handshaking.
	if err := e.OnChunk(id, []byte{0x01, 0x7f}); err == nil {
		t.Fatal("malformed frame must propagate an error")
	}
}

func TestEngineBacklogDroppedAfterClose(t *testing.T) {
	e := newTestEngine(t)
	c := &fakeConn{remote: "127.0.0.1:50005"}
	id := e.OnConnOpened(c)

	// Ping closes the connection; trailing bytes in the same chunk are
	// dropped, not dispatched.
	chunk := append(handshakeFrame(), 0x01, 0x00)
	chunk = append(chunk, protocol.EncodeFrame(protocol.PingRequest{Payload: 1})...)
	chunk = append(chunk, 0x01, 0x00)
	if err := e.OnChunk(id, chunk); err != nil {
		t.Fatalf("chunk: %v", err)
	}
	// One status response, one pong; the trailing status request after
	// the close produced nothing.
	if len(c.sent) != 2 {
		t.Fatalf("sent = %d frames", len(c.sent))
	}
}

func TestEngineConnClosedCleansUp(t *testing.T) {
	e := newTestEngine(t)
	c := &fakeConn{remote: "127.0.0.1:50006"}
	id := e.OnConnOpened(c)

	if e.Registry().Count() != 1 {
		t.Fatalf("count = %d", e.Registry().Count())
	}
	e.OnConnClosed(id, "peer closed")
	if e.Registry().Count() != 0 {
		t.Fatalf("count after close = %d", e.Registry().Count())
	}
	if _, ok := e.Registry().Get(id); ok {
		t.Fatal("snapshot survived close")
	}

	// Chunks after close are rejected.
	if err := e.OnChunk(id, []byte{0x01, 0x00}); err == nil {
		t.Fatal("chunk after close must fail")
	}
}

func TestEngineLifecycleEvents(t *testing.T) {
	doc := protocol.StatusDocument{Description: protocol.StatusDescription{Text: "x"}}
	dp, err := dispatcher.NewDispatcher(dispatcher.DefaultConfig(), doc)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	pub := event.NewPublisher()

	var opened, closed []event.ConnEvent
	if err := pub.RegisterSubscriber(event.ConnOpened, func(payload any) {
		opened = append(opened, payload.(event.ConnEvent))
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := pub.RegisterSubscriber(event.ConnClosed, func(payload any) {
		closed = append(closed, payload.(event.ConnEvent))
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	e := NewEngine(dp, pub)
	c := &fakeConn{remote: "127.0.0.1:50007"}
	id := e.OnConnOpened(c)
	e.OnConnClosed(id, "test")

	if len(opened) != 1 || opened[0].ConnID != id {
		t.Fatalf("opened events = %+v", opened)
	}
	if len(closed) != 1 || closed[0].Reason != "test" {
		t.Fatalf("closed events = %+v", closed)
	}
}
