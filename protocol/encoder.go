package protocol

// AppendFrame appends the full wire frame of p to dst: VarInt total length
// of (id + body), VarInt packet id, body fields in fixed order. Encoding is
// deterministic; the same packet always yields the same bytes.
func AppendFrame(dst []byte, p Packet) []byte {
	body := p.appendBody(nil)
	id := p.PacketID()
	dst = AppendVarInt(dst, int32(VarIntLen(id)+len(body)))
	dst = AppendVarInt(dst, id)
	return append(dst, body...)
}

// EncodeFrame returns the wire frame of p in a fresh buffer.
func EncodeFrame(p Packet) []byte {
	return AppendFrame(nil, p)
}
