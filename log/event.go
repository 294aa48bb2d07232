package log

import (
	"bytes"
	"time"
)

// LogEvent is a single structured log entry under construction. Field methods
// append key-value pairs and return the event for chaining; Msg finalizes and
// writes it. A nil event (suppressed level) is safe to chain on.
type LogEvent struct {
	buf    *bytes.Buffer
	logger Logger
	level  Level
}

func newEvent(l Logger) *LogEvent {
	e := &LogEvent{logger: l, level: DebugLevel}
	e.buf = &bytes.Buffer{}
	e.buf.Grow(512)
	return e
}

// Reset clears the event for reuse from the pool.
func (e *LogEvent) Reset() {
	e.buf.Reset()
	e.level = DebugLevel
	appendBeginMarker(e.buf)
}

// Level returns the severity this event will be written at.
func (e *LogEvent) Level() Level {
	if e == nil {
		return 0
	}
	return e.level
}

// Str appends a string field.
func (e *LogEvent) Str(k, v string) *LogEvent {
	if e == nil {
		return nil
	}
	appendKey(e.buf, k)
	appendString(e.buf, v)
	return e
}

// Strs appends a string slice field.
func (e *LogEvent) Strs(k string, v []string) *LogEvent {
	if e == nil {
		return nil
	}
	appendKey(e.buf, k)
	e.buf.WriteByte('[')
	for i, s := range v {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		appendString(e.buf, s)
	}
	e.buf.WriteByte(']')
	return e
}

// Int appends an int field.
func (e *LogEvent) Int(k string, v int) *LogEvent {
	if e == nil {
		return nil
	}
	appendKey(e.buf, k)
	appendInt(e.buf, int64(v))
	return e
}

// Int32 appends an int32 field.
func (e *LogEvent) Int32(k string, v int32) *LogEvent {
	if e == nil {
		return nil
	}
	appendKey(e.buf, k)
	appendInt(e.buf, int64(v))
	return e
}

// Int64 appends an int64 field.
func (e *LogEvent) Int64(k string, v int64) *LogEvent {
	if e == nil {
		return nil
	}
	appendKey(e.buf, k)
	appendInt(e.buf, v)
	return e
}

// Uint16 appends a uint16 field.
func (e *LogEvent) Uint16(k string, v uint16) *LogEvent {
	if e == nil {
		return nil
	}
	appendKey(e.buf, k)
	appendUint(e.buf, uint64(v))
	return e
}

// Uint32 appends a uint32 field.
func (e *LogEvent) Uint32(k string, v uint32) *LogEvent {
	if e == nil {
		return nil
	}
	appendKey(e.buf, k)
	appendUint(e.buf, uint64(v))
	return e
}

// Uint64 appends a uint64 field.
func (e *LogEvent) Uint64(k string, v uint64) *LogEvent {
	if e == nil {
		return nil
	}
	appendKey(e.buf, k)
	appendUint(e.buf, v)
	return e
}

// Float64 appends a float64 field.
func (e *LogEvent) Float64(k string, v float64) *LogEvent {
	if e == nil {
		return nil
	}
	appendKey(e.buf, k)
	appendFloat(e.buf, v)
	return e
}

// Bool appends a bool field.
func (e *LogEvent) Bool(k string, v bool) *LogEvent {
	if e == nil {
		return nil
	}
	appendKey(e.buf, k)
	appendBool(e.buf, v)
	return e
}

// Hex appends a byte slice field as a lowercase hex string. Used for dumping
// wire fragments at trace level.
func (e *LogEvent) Hex(k string, v []byte) *LogEvent {
	if e == nil {
		return nil
	}
	appendKey(e.buf, k)
	appendHex(e.buf, v)
	return e
}

// Err appends an "error" field, or nothing for a nil error.
func (e *LogEvent) Err(v error) *LogEvent {
	if e == nil {
		return nil
	}
	if v == nil {
		return e
	}
	appendKey(e.buf, "error")
	appendString(e.buf, v.Error())
	return e
}

// Any appends an arbitrary value via the standard JSON encoder.
func (e *LogEvent) Any(k string, v any) *LogEvent {
	if e == nil {
		return nil
	}
	appendKey(e.buf, k)
	appendAny(e.buf, v)
	return e
}

// Time appends a time field formatted as "2006-01-02 15:04:05.000".
func (e *LogEvent) Time(k string, v time.Time) *LogEvent {
	if e == nil {
		return nil
	}
	appendKey(e.buf, k)
	appendString(e.buf, v.Format("2006-01-02 15:04:05.000"))
	return e
}

// Msg sets the message field, finalizes the event and hands it to the logger
// for output. The event must not be used afterwards.
func (e *LogEvent) Msg(v string) {
	if e == nil {
		return
	}
	appendKey(e.buf, "msg")
	appendString(e.buf, v)
	e.End()
}

// End finalizes and writes the event without a message field.
func (e *LogEvent) End() {
	if e == nil {
		return
	}
	appendEndMarker(e.buf)
	appendLineBreak(e.buf)
	e.logger.OnEventEnd(e)
}
