package log

// LogAppender is an output destination for formatted log events.
// Implementations must be safe for concurrent Write calls: every connection
// goroutine logs through the same appender set.
type LogAppender interface {
	// Write outputs one formatted event, including its trailing newline.
	Write(buf []byte) (n int, err error)

	// Refresh forces buffered data out, e.g. before rotation checks.
	Refresh() error

	// Close flushes and releases the destination.
	Close() error
}
