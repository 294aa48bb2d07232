package protocol

import "fmt"

// MaxFrameSize bounds the declared frame length. The length prefix of a
// conforming client fits in 3 VarInt bytes, so this is also the protocol's
// own ceiling.
const MaxFrameSize = 2097151

// InvalidError reports a malformed frame: unparseable VarInt, out-of-range
// length, unknown (phase, id) pair, or a body decoder that did not consume
// exactly the declared body. Invalid is always connection-fatal; the stream
// has no resync marker.
type InvalidError struct {
	Phase    Phase
	PacketID int32
	Reason   string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid frame: %s (phase=%s id=0x%02x)", e.Reason, e.Phase, e.PacketID)
}

// bodyDecoder decodes one packet body. It must consume the body exactly;
// the framer rejects the frame otherwise.
type bodyDecoder func(body []byte) (Packet, error)

type decodeKey struct {
	phase Phase
	id    int32
}

// bodyDecoders is the closed decode table. Dispatch is always on the
// (phase, id) pair: id 0x00 is Handshake while handshaking but
// StatusRequest during status, and the two bodies are not interchangeable.
var bodyDecoders = map[decodeKey]bodyDecoder{
	{Handshaking, 0x00}: decodeHandshake,
	{Status, 0x00}:      decodeStatusRequest,
	{Status, 0x01}:      decodePingRequest,
}

// DecodeFrame attempts to extract one frame from buf under the given phase.
//
// Returns (packet, rest, nil) on success, where rest is the bytes after the
// frame. Returns (nil, buf, ErrIncomplete) when buf does not yet hold a full
// frame; the caller keeps buf unchanged and waits for more bytes. Returns
// (nil, rest, *InvalidError) for a malformed frame; rest points past the
// offending frame when its boundary was parseable, but the caller must stop
// reading the connection either way.
func DecodeFrame(buf []byte, phase Phase) (Packet, []byte, error) {
	length, n, err := ReadVarInt(buf)
	if err == ErrIncomplete {
		return nil, buf, ErrIncomplete
	}
	if err != nil {
		// The frame boundary itself is unparseable; no way to skip it.
		return nil, nil, &InvalidError{Phase: phase, PacketID: -1, Reason: "unparseable length prefix"}
	}
	if length <= 0 || length > MaxFrameSize {
		return nil, nil, &InvalidError{Phase: phase, PacketID: -1, Reason: fmt.Sprintf("declared length %d out of range", length)}
	}

	total := n + int(length)
	if len(buf) < total {
		return nil, buf, ErrIncomplete
	}
	frame := buf[n:total]
	rest := buf[total:]

	id, idLen, err := ReadVarInt(frame)
	if err != nil {
		return nil, rest, &InvalidError{Phase: phase, PacketID: -1, Reason: "unparseable packet id"}
	}
	body := frame[idLen:]

	dec, ok := bodyDecoders[decodeKey{phase, id}]
	if !ok {
		return nil, rest, &InvalidError{Phase: phase, PacketID: id, Reason: "no such packet in phase"}
	}

	pkt, err := dec(body)
	if err != nil {
		return nil, rest, &InvalidError{Phase: phase, PacketID: id, Reason: err.Error()}
	}
	return pkt, rest, nil
}

func decodeHandshake(body []byte) (Packet, error) {
	p := Handshake{}
	off := 0

	v, n, err := ReadVarInt(body)
	if err != nil {
		return nil, fmt.Errorf("protocol version: truncated")
	}
	p.ProtocolVersion = v
	off += n

	addr, n, err := ReadString(body[off:])
	if err != nil {
		return nil, fmt.Errorf("server address: truncated")
	}
	p.ServerAddress = addr
	off += n

	port, n, err := readUint16(body[off:])
	if err != nil {
		return nil, fmt.Errorf("server port: truncated")
	}
	p.ServerPort = port
	off += n

	next, n, err := ReadVarInt(body[off:])
	if err != nil {
		return nil, fmt.Errorf("next state: truncated")
	}
	p.NextState = next
	off += n

	if off != len(body) {
		return nil, fmt.Errorf("handshake body has %d trailing bytes", len(body)-off)
	}
	if _, ok := NextPhase(p.NextState); !ok {
		return nil, fmt.Errorf("next state %d not in {1,2}", p.NextState)
	}
	return p, nil
}

func decodeStatusRequest(body []byte) (Packet, error) {
	if len(body) != 0 {
		return nil, fmt.Errorf("status request body must be empty, got %d bytes", len(body))
	}
	return StatusRequest{}, nil
}

func decodePingRequest(body []byte) (Packet, error) {
	payload, n, err := readInt64(body)
	if err != nil {
		return nil, fmt.Errorf("ping payload: truncated")
	}
	if n != len(body) {
		return nil, fmt.Errorf("ping body has %d trailing bytes", len(body)-n)
	}
	return PingRequest{Payload: payload}, nil
}
