package log

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math"
	"strconv"
)

// Low-level JSON assembly helpers shared by LogEvent. Events are built as a
// single flat JSON object terminated by a newline.

func appendBeginMarker(buf *bytes.Buffer) {
	buf.WriteByte('{')
}

func appendEndMarker(buf *bytes.Buffer) {
	buf.WriteByte('}')
}

func appendLineBreak(buf *bytes.Buffer) {
	buf.WriteByte('\n')
}

func appendKey(buf *bytes.Buffer, key string) {
	if buf.Len() >= 1 && buf.Bytes()[buf.Len()-1] != '{' {
		buf.WriteByte(',')
	}
	appendString(buf, key)
	buf.WriteByte(':')
}

const hexDigits = "0123456789abcdef"

// appendString writes s as a JSON string literal, escaping quotes,
// backslashes and control characters.
func appendString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b == '"' || b == '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case b == '\n':
			buf.WriteString(`\n`)
		case b == '\r':
			buf.WriteString(`\r`)
		case b == '\t':
			buf.WriteString(`\t`)
		case b < 0x20:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexDigits[b>>4])
			buf.WriteByte(hexDigits[b&0xf])
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte('"')
}

func appendInt(buf *bytes.Buffer, v int64) {
	buf.Write(strconv.AppendInt(make([]byte, 0, 20), v, 10))
}

func appendUint(buf *bytes.Buffer, v uint64) {
	buf.Write(strconv.AppendUint(make([]byte, 0, 20), v, 10))
}

func appendFloat(buf *bytes.Buffer, v float64) {
	// JSON has no NaN/Inf; follow the common encoder convention of null.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		buf.WriteString("null")
		return
	}
	buf.Write(strconv.AppendFloat(make([]byte, 0, 32), v, 'f', -1, 64))
}

func appendBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteString("true")
	} else {
		buf.WriteString("false")
	}
}

func appendHex(buf *bytes.Buffer, v []byte) {
	buf.WriteByte('"')
	buf.WriteString(hex.EncodeToString(v))
	buf.WriteByte('"')
}

// appendAny falls back to the standard JSON encoder for arbitrary values.
func appendAny(buf *bytes.Buffer, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		appendString(buf, err.Error())
		return
	}
	buf.Write(b)
}
