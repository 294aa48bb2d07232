package log

import "strings"

// Level is the severity of a log event. Higher values are more severe.
type Level int8

const (
	// TraceLevel is for per-frame diagnostics, e.g. dumping wire bytes.
	TraceLevel Level = iota + 1
	// DebugLevel is for development and connection troubleshooting.
	DebugLevel
	// InfoLevel is for normal lifecycle events: listener start, handshakes.
	InfoLevel
	// WarnLevel flags suspicious but survivable conditions, e.g. an
	// unrecognized packet that decoded cleanly.
	WarnLevel
	// ErrorLevel flags failed operations, e.g. a write error on a connection.
	ErrorLevel
	// FatalLevel terminates the process after the event is written.
	FatalLevel
)

// String returns the uppercase name of the level.
func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "TRACE"
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	}
	return "UNKNOWN"
}

// ParseLevel converts a level name to a Level, case-insensitively.
// Unrecognized input yields InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "TRACE":
		return TraceLevel
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	}
	return InfoLevel
}
