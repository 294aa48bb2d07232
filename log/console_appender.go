package log

import "os"

// ConsoleAppender writes events unbuffered to stdout. Suitable for
// development and containerized deployments where a collector tails stdout.
type ConsoleAppender struct{}

// NewConsoleAppender returns a stateless stdout appender.
func NewConsoleAppender() *ConsoleAppender {
	return &ConsoleAppender{}
}

// Write writes the event bytes to stdout.
func (ca *ConsoleAppender) Write(buf []byte) (int, error) {
	return os.Stdout.Write(buf)
}

// Refresh is a no-op; writes are unbuffered.
func (ca *ConsoleAppender) Refresh() error { return nil }

// Close is a no-op; stdout is not owned by the appender.
func (ca *ConsoleAppender) Close() error { return nil }
