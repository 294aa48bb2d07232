package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeFrameLayout(t *testing.T) {
	frame := EncodeFrame(PingResponse{Payload: 0x0102030405060708})
	want := []byte{
		0x09,                                           // length: id + 8 payload bytes
		0x01,                                           // packet id
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, // big-endian payload
	}
	if !bytes.Equal(frame, want) {
		t.Fatalf("frame = %x, want %x", frame, want)
	}
}

func TestEncodeFrameDeterministic(t *testing.T) {
	p := StatusResponse{JSON: `{"version":{"name":"1.21","protocol":767}}`}
	a := EncodeFrame(p)
	b := EncodeFrame(p)
	if !bytes.Equal(a, b) {
		t.Fatalf("encoding not deterministic: %x vs %x", a, b)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		pkt   Packet
		phase Phase
	}{
		{Handshake{ProtocolVersion: 767, ServerAddress: "play.example.com", ServerPort: 25565, NextState: 2}, Handshaking},
		{StatusRequest{}, Status},
		{PingRequest{Payload: -42}, Status},
	}
	for _, tc := range cases {
		frame := EncodeFrame(tc.pkt)
		got, rest, err := DecodeFrame(frame, tc.phase)
		if err != nil {
			t.Fatalf("%s: %v", tc.pkt.Name(), err)
		}
		if len(rest) != 0 {
			t.Fatalf("%s: rest = %x", tc.pkt.Name(), rest)
		}
		if got != tc.pkt {
			t.Fatalf("%s: round trip %+v -> %+v", tc.pkt.Name(), tc.pkt, got)
		}
	}
}

func TestAppendFramePreservesPrefix(t *testing.T) {
	prefix := []byte{0xaa, 0xbb}
	out := AppendFrame(prefix, StatusRequest{})
	if !bytes.Equal(out[:2], prefix) {
		t.Fatalf("prefix clobbered: %x", out[:2])
	}
	if !bytes.Equal(out[2:], []byte{0x01, 0x00}) {
		t.Fatalf("frame = %x, want 0100", out[2:])
	}
}

func TestStatusDocumentMarshal(t *testing.T) {
	doc := StatusDocument{
		Version:     StatusVersion{Name: "1.21", Protocol: 767},
		Players:     StatusPlayers{Max: 100, Online: 3},
		Description: StatusDescription{Text: "A Go server"},
	}
	s, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"version":{"name":"1.21","protocol":767},"players":{"max":100,"online":3,"sample":[]},"description":{"text":"A Go server"}}`
	if s != want {
		t.Fatalf("Marshal = %s, want %s", s, want)
	}
}

func TestNextPhase(t *testing.T) {
	if p, ok := NextPhase(1); !ok || p != Status {
		t.Fatalf("NextPhase(1) = %v, %v", p, ok)
	}
	if p, ok := NextPhase(2); !ok || p != Login {
		t.Fatalf("NextPhase(2) = %v, %v", p, ok)
	}
	for _, bad := range []int32{0, 3, -7} {
		if _, ok := NextPhase(bad); ok {
			t.Fatalf("NextPhase(%d) accepted", bad)
		}
	}
}

func TestPhaseHandled(t *testing.T) {
	cases := map[Phase]bool{
		Handshaking: true,
		Status:      true,
		Login:       false,
		Play:        false,
	}
	for phase, want := range cases {
		if got := phase.Handled(); got != want {
			t.Fatalf("%s.Handled() = %v, want %v", phase, got, want)
		}
	}
}
