package protocol

import (
	"bytes"
	"math"
	"testing"
)

func TestVarIntRoundTrip(t *testing.T) {
	values := []int32{
		0, 1, 2, 127, 128, 255, 300, 16383, 16384,
		2097151, 2097152, 268435455, 268435456,
		math.MaxInt32, 25565, 238,
	}
	for _, v := range values {
		enc := AppendVarInt(nil, v)
		if len(enc) < 1 || len(enc) > 5 {
			t.Fatalf("encode(%d) produced %d bytes", v, len(enc))
		}
		if len(enc) != VarIntLen(v) {
			t.Fatalf("VarIntLen(%d) = %d, encoded %d bytes", v, VarIntLen(v), len(enc))
		}
		got, n, err := ReadVarInt(enc)
		if err != nil {
			t.Fatalf("decode(encode(%d)) failed: %v", v, err)
		}
		if got != v || n != len(enc) {
			t.Fatalf("round trip %d: got %d consuming %d of %d", v, got, n, len(enc))
		}
	}
}

func TestVarIntRoundTripSweep(t *testing.T) {
	// Stride through the full 31-bit range; boundary cases are covered above.
	for v := int32(0); v >= 0 && v < math.MaxInt32-65537; v += 65537 {
		enc := AppendVarInt(nil, v)
		got, n, err := ReadVarInt(enc)
		if err != nil || got != v || n != len(enc) {
			t.Fatalf("round trip %d: got %d n=%d err=%v", v, got, n, err)
		}
	}
}

func TestVarIntProperPrefixIsIncomplete(t *testing.T) {
	values := []int32{128, 300, 16384, 2097152, math.MaxInt32}
	for _, v := range values {
		enc := AppendVarInt(nil, v)
		for cut := 0; cut < len(enc); cut++ {
			_, _, err := ReadVarInt(enc[:cut])
			if err != ErrIncomplete {
				t.Fatalf("prefix %d/%d of encode(%d): want ErrIncomplete, got %v", cut, len(enc), v, err)
			}
		}
	}
}

func TestVarIntOverlongIsInvalid(t *testing.T) {
	// Six continuation bytes exceed the 32-bit range.
	buf := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}
	_, _, err := ReadVarInt(buf)
	if err == nil || err == ErrIncomplete {
		t.Fatalf("overlong varint must be invalid, got %v", err)
	}
}

func TestVarIntEncodingIsMinimal(t *testing.T) {
	cases := map[int32][]byte{
		0:     {0x00},
		1:     {0x01},
		127:   {0x7f},
		128:   {0x80, 0x01},
		238:   {0xee, 0x01},
		255:   {0xff, 0x01},
		25565: {0xdd, 0xc7, 0x01},
	}
	for v, want := range cases {
		if got := AppendVarInt(nil, v); !bytes.Equal(got, want) {
			t.Errorf("encode(%d) = %x, want %x", v, got, want)
		}
	}
}

func TestReadString(t *testing.T) {
	buf := AppendString(nil, "localhost")
	s, n, err := ReadString(buf)
	if err != nil || s != "localhost" || n != len(buf) {
		t.Fatalf("ReadString: %q n=%d err=%v", s, n, err)
	}

	// Declared length longer than the remaining bytes is Incomplete.
	_, _, err = ReadString(buf[:4])
	if err != ErrIncomplete {
		t.Fatalf("short string: want ErrIncomplete, got %v", err)
	}

	// Empty string round trip.
	s, n, err = ReadString([]byte{0x00})
	if err != nil || s != "" || n != 1 {
		t.Fatalf("empty string: %q n=%d err=%v", s, n, err)
	}
}
