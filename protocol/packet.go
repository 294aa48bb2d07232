package protocol

// Packet is one decoded (or to-be-encoded) protocol message. The variant set
// is closed per phase; the same numeric id names different packets in
// different phases, so identity is always the (phase, id) pair.
type Packet interface {
	// PacketID returns the wire id of the packet within its phase.
	PacketID() int32
	// Name returns the packet name for logs.
	Name() string
	// appendBody serializes the body fields in wire order.
	appendBody(dst []byte) []byte
}

// Handshake opens every connection: the client announces its protocol
// version, the address it dialed, and which phase it wants next.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       int32
}

// PacketID implements Packet.
func (Handshake) PacketID() int32 { return 0x00 }

// Name implements Packet.
func (Handshake) Name() string { return "handshake" }

func (p Handshake) appendBody(dst []byte) []byte {
	dst = AppendVarInt(dst, p.ProtocolVersion)
	dst = AppendString(dst, p.ServerAddress)
	dst = appendUint16(dst, p.ServerPort)
	return AppendVarInt(dst, p.NextState)
}

// StatusRequest asks for the server-list status document. Empty body.
type StatusRequest struct{}

// PacketID implements Packet.
func (StatusRequest) PacketID() int32 { return 0x00 }

// Name implements Packet.
func (StatusRequest) Name() string { return "status_request" }

func (StatusRequest) appendBody(dst []byte) []byte { return dst }

// PingRequest carries an opaque client payload to be echoed back verbatim.
type PingRequest struct {
	Payload int64
}

// PacketID implements Packet.
func (PingRequest) PacketID() int32 { return 0x01 }

// Name implements Packet.
func (PingRequest) Name() string { return "ping_request" }

func (p PingRequest) appendBody(dst []byte) []byte {
	return appendInt64(dst, p.Payload)
}

// StatusResponse carries the status document as a pre-marshaled JSON string.
// Marshaling happens once when the document is configured, keeping encoding
// deterministic and the dispatch path allocation-free.
type StatusResponse struct {
	JSON string
}

// PacketID implements Packet.
func (StatusResponse) PacketID() int32 { return 0x00 }

// Name implements Packet.
func (StatusResponse) Name() string { return "status_response" }

func (p StatusResponse) appendBody(dst []byte) []byte {
	return AppendString(dst, p.JSON)
}

// PingResponse echoes the PingRequest payload.
type PingResponse struct {
	Payload int64
}

// PacketID implements Packet.
func (PingResponse) PacketID() int32 { return 0x01 }

// Name implements Packet.
func (PingResponse) Name() string { return "ping_response" }

func (p PingResponse) appendBody(dst []byte) []byte {
	return appendInt64(dst, p.Payload)
}
