package dispatcher

import (
	"strings"
	"testing"

	"github.com/UlusTech/nmc/network/conn"
	"github.com/UlusTech/nmc/network/effect"
	"github.com/UlusTech/nmc/protocol"
)

func testStatusDoc() protocol.StatusDocument {
	return protocol.StatusDocument{
		Version:     protocol.StatusVersion{Name: "1.21", Protocol: 767},
		Players:     protocol.StatusPlayers{Max: 20, Online: 0},
		Description: protocol.StatusDescription{Text: "test"},
	}
}

func newTestDispatcher(t *testing.T, cfg *Config) *Dispatcher {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	dp, err := NewDispatcher(cfg, testStatusDoc())
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return dp
}

func handshakingConn() conn.Snapshot {
	return conn.Snapshot{ID: 1, Remote: "127.0.0.1:50000", Phase: protocol.Handshaking}
}

func TestDispatchHandshakeToStatus(t *testing.T) {
	dp := newTestDispatcher(t, nil)
	hs := protocol.Handshake{ProtocolVersion: 767, ServerAddress: "localhost", ServerPort: 25565, NextState: 1}

	next, effects := dp.Dispatch(handshakingConn(), hs)
	if next.Phase != protocol.Status {
		t.Fatalf("phase = %s, want status", next.Phase)
	}
	if next.ProtocolVersion != 767 || next.ServerAddress != "localhost" || next.ServerPort != 25565 {
		t.Fatalf("handshake fields not recorded: %+v", next)
	}
	if next.Closing {
		t.Fatal("status transition must not close the connection")
	}
	for _, e := range effects {
		if _, ok := e.(effect.Disconnect); ok {
			t.Fatalf("unexpected disconnect: %+v", effects)
		}
		if _, ok := e.(effect.SendPacket); ok {
			t.Fatalf("handshake must not send: %+v", effects)
		}
	}
}

func TestDispatchHandshakeToLoginDisconnects(t *testing.T) {
	dp := newTestDispatcher(t, nil)
	hs := protocol.Handshake{ProtocolVersion: 767, ServerAddress: "localhost", ServerPort: 25565, NextState: 2}

	next, effects := dp.Dispatch(handshakingConn(), hs)
	if next.Phase != protocol.Login {
		t.Fatalf("phase = %s, want login", next.Phase)
	}
	if !next.Closing {
		t.Fatal("login connection must be closing")
	}
	last := effects[len(effects)-1]
	dc, ok := last.(effect.Disconnect)
	if !ok {
		t.Fatalf("last effect = %T, want Disconnect", last)
	}
	if dc.ConnID != 1 {
		t.Fatalf("disconnect conn id = %d", dc.ConnID)
	}
}

func TestDispatchStatusRequest(t *testing.T) {
	dp := newTestDispatcher(t, nil)
	snap := handshakingConn().WithPhase(protocol.Status)

	next, effects := dp.Dispatch(snap, protocol.StatusRequest{})
	if next.Phase != protocol.Status || next.Closing {
		t.Fatalf("snapshot changed unexpectedly: %+v", next)
	}
	if len(effects) != 1 {
		t.Fatalf("effects = %+v, want one SendPacket", effects)
	}
	sp, ok := effects[0].(effect.SendPacket)
	if !ok {
		t.Fatalf("effect = %T", effects[0])
	}
	res, ok := sp.Packet.(protocol.StatusResponse)
	if !ok {
		t.Fatalf("packet = %T", sp.Packet)
	}
	if res.JSON == "" {
		t.Fatal("empty status document")
	}
}

func TestDispatchPingEchoesAndCloses(t *testing.T) {
	dp := newTestDispatcher(t, nil)
	snap := handshakingConn().WithPhase(protocol.Status)

	for _, payload := range []int64{0, -1, 1<<63 - 1, -1 << 63} {
		next, effects := dp.Dispatch(snap, protocol.PingRequest{Payload: payload})
		if !next.Closing {
			t.Fatal("ping must close the connection")
		}
		if len(effects) != 2 {
			t.Fatalf("effects = %+v", effects)
		}
		sp := effects[0].(effect.SendPacket)
		pong, ok := sp.Packet.(protocol.PingResponse)
		if !ok || pong.Payload != payload {
			t.Fatalf("pong = %+v, want payload %d", sp.Packet, payload)
		}
		if _, ok := effects[1].(effect.Disconnect); !ok {
			t.Fatalf("second effect = %T, want Disconnect", effects[1])
		}
	}
}

func TestDispatchIsPure(t *testing.T) {
	dp := newTestDispatcher(t, nil)
	snap := handshakingConn().WithPhase(protocol.Status)

	a1, e1 := dp.Dispatch(snap, protocol.PingRequest{Payload: 99})
	a2, e2 := dp.Dispatch(snap, protocol.PingRequest{Payload: 99})
	if a1 != a2 {
		t.Fatalf("snapshots differ: %+v vs %+v", a1, a2)
	}
	if len(e1) != len(e2) {
		t.Fatalf("effect lists differ: %+v vs %+v", e1, e2)
	}
	for i := range e1 {
		if e1[i].Kind() != e2[i].Kind() {
			t.Fatalf("effect %d differs: %s vs %s", i, e1[i].Kind(), e2[i].Kind())
		}
	}
}

func TestDispatchOutOfPhasePacketDisconnects(t *testing.T) {
	dp := newTestDispatcher(t, nil)
	cases := []struct {
		snap conn.Snapshot
		pkt  protocol.Packet
	}{
		{handshakingConn(), protocol.StatusRequest{}},
		{handshakingConn(), protocol.PingRequest{Payload: 1}},
		{handshakingConn().WithPhase(protocol.Status), protocol.Handshake{NextState: 1}},
	}
	for _, tc := range cases {
		next, effects := dp.Dispatch(tc.snap, tc.pkt)
		if !next.Closing {
			t.Fatalf("%s in %s: connection must close", tc.pkt.Name(), tc.snap.Phase)
		}
		last := effects[len(effects)-1]
		if _, ok := last.(effect.Disconnect); !ok {
			t.Fatalf("%s in %s: last effect = %T", tc.pkt.Name(), tc.snap.Phase, last)
		}
	}
}

func TestDispatchClosingConnectionIsInert(t *testing.T) {
	dp := newTestDispatcher(t, nil)
	snap := handshakingConn().WithPhase(protocol.Status).WithClosing()

	next, effects := dp.Dispatch(snap, protocol.StatusRequest{})
	if next != snap || effects != nil {
		t.Fatalf("closing connection dispatched: %+v %+v", next, effects)
	}
}

func TestHandlePacketRunsChain(t *testing.T) {
	dp := newTestDispatcher(t, nil)
	d := &Delivery{
		Conn:   handshakingConn().WithPhase(protocol.Status),
		Packet: protocol.StatusRequest{},
	}
	if err := dp.HandlePacket(d); err != nil {
		t.Fatalf("HandlePacket: %v", err)
	}
	if len(d.Effects) != 1 {
		t.Fatalf("effects = %+v", d.Effects)
	}
}

func TestPacketFilterDrops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PacketFilter = []string{"ping_request"}
	dp := newTestDispatcher(t, cfg)

	d := &Delivery{
		Conn:   handshakingConn().WithPhase(protocol.Status),
		Packet: protocol.PingRequest{Payload: 5},
	}
	if err := dp.HandlePacket(d); err != nil {
		t.Fatalf("HandlePacket: %v", err)
	}
	if len(d.Effects) != 0 {
		t.Fatalf("filtered packet produced effects: %+v", d.Effects)
	}
	if d.NewState.Closing {
		t.Fatal("filtered packet changed state")
	}

	// Unfiltered packets still pass.
	d2 := &Delivery{
		Conn:   handshakingConn().WithPhase(protocol.Status),
		Packet: protocol.StatusRequest{},
	}
	if err := dp.HandlePacket(d2); err != nil {
		t.Fatalf("HandlePacket: %v", err)
	}
	if len(d2.Effects) != 1 {
		t.Fatalf("effects = %+v", d2.Effects)
	}
}

func TestDispatcherReload(t *testing.T) {
	dp := newTestDispatcher(t, nil)

	cfg := DefaultConfig()
	cfg.PacketFilter = []string{"status_request"}
	if err := dp.Reload(cfg); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	d := &Delivery{
		Conn:   handshakingConn().WithPhase(protocol.Status),
		Packet: protocol.StatusRequest{},
	}
	if err := dp.HandlePacket(d); err != nil {
		t.Fatalf("HandlePacket: %v", err)
	}
	if len(d.Effects) != 0 {
		t.Fatalf("reloaded filter not applied: %+v", d.Effects)
	}

	bad := &Config{RecvRateLimit: 0, LimiterKind: LimiterToken}
	if err := dp.Reload(bad); err == nil {
		t.Fatal("invalid config accepted")
	}
}

func TestSetStatus(t *testing.T) {
	dp := newTestDispatcher(t, nil)
	doc := testStatusDoc()
	doc.Players.Online = 7
	if err := dp.SetStatus(doc); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	_, effects := dp.Dispatch(handshakingConn().WithPhase(protocol.Status), protocol.StatusRequest{})
	res := effects[0].(effect.SendPacket).Packet.(protocol.StatusResponse)
	if res.JSON == "" || res.JSON == "{}" {
		t.Fatalf("status = %q", res.JSON)
	}
	want := `"online":7`
	if !strings.Contains(res.JSON, want) {
		t.Fatalf("status %q missing %q", res.JSON, want)
	}
}

func TestFunnelLimiterConfig(t *testing.T) {
	cfg := &Config{RecvRateLimit: 100, LimiterKind: LimiterFunnel}
	dp := newTestDispatcher(t, cfg)

	d := &Delivery{
		Conn:   handshakingConn().WithPhase(protocol.Status),
		Packet: protocol.StatusRequest{},
	}
	if err := dp.HandlePacket(d); err != nil {
		t.Fatalf("HandlePacket: %v", err)
	}
	if len(d.Effects) != 1 {
		t.Fatalf("effects = %+v", d.Effects)
	}
}
