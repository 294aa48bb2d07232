// Package log implements the structured logging used across nmc: fluent
// JSON events routed to pluggable appenders (console, rotating file).
// The hot path allocates nothing beyond the pooled event buffer.
package log

import (
	"sync"
	"sync/atomic"
	"time"
)

// Logger is the logging contract. LogEvents are obtained from the level
// methods and written back via OnEventEnd when finalized.
type Logger interface {
	Trace() *LogEvent
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	Fatal() *LogEvent
	AddAppender(appender LogAppender)
	GetAppender() []LogAppender
	OnEventEnd(e *LogEvent)
}

// ServerLogger is the default Logger implementation: level-filtered,
// appender-fanout, with pooled events.
type ServerLogger struct {
	appenders []LogAppender
	minLevel  atomic.Int32
	eventPool *sync.Pool
}

var _ Logger = (*ServerLogger)(nil)

// NewLogger builds a ServerLogger from cfg; nil cfg means DefaultCfg.
func NewLogger(cfg *LogCfg) *ServerLogger {
	if cfg == nil {
		cfg = DefaultCfg()
	}

	l := &ServerLogger{}
	l.minLevel.Store(int32(cfg.LogLevel))
	l.eventPool = &sync.Pool{
		New: func() any { return newEvent(l) },
	}

	if cfg.FileAppender {
		if fa, err := NewFileAppender(cfg); err == nil {
			l.AddAppender(fa)
		}
	}
	if cfg.ConsoleAppender {
		l.AddAppender(NewConsoleAppender())
	}
	return l
}

// SetLevel changes the minimum level at runtime.
func (x *ServerLogger) SetLevel(level Level) {
	x.minLevel.Store(int32(level))
}

func (x *ServerLogger) checkLevel(level Level) bool {
	return Level(x.minLevel.Load()) <= level
}

// AddAppender registers an additional output destination. Not safe to call
// concurrently with logging; wire appenders during startup.
func (x *ServerLogger) AddAppender(appender LogAppender) {
	x.appenders = append(x.appenders, appender)
}

// GetAppender returns the registered appenders.
func (x *ServerLogger) GetAppender() []LogAppender {
	return x.appenders
}

// Refresh flushes all appenders.
func (x *ServerLogger) Refresh() {
	for _, a := range x.appenders {
		_ = a.Refresh()
	}
}

// Close flushes and closes all appenders.
func (x *ServerLogger) Close() {
	for _, a := range x.appenders {
		_ = a.Close()
	}
}

// OnEventEnd writes a finalized event to every appender and recycles it.
// A FatalLevel event panics after the write so the process dies loudly with
// the entry already persisted.
func (x *ServerLogger) OnEventEnd(e *LogEvent) {
	for _, a := range x.appenders {
		_, _ = a.Write(e.buf.Bytes())
	}
	if e.level == FatalLevel {
		panic("fatal log event")
	}
	x.eventPool.Put(e)
}

func (x *ServerLogger) log(level Level) *LogEvent {
	if !x.checkLevel(level) {
		return nil
	}
	e := x.eventPool.Get().(*LogEvent)
	e.Reset()
	e.level = level
	now := time.Now()
	e.Time("ts", now)
	e.Str("level", level.String())
	return e
}

// Trace starts a trace-level event.
func (x *ServerLogger) Trace() *LogEvent { return x.log(TraceLevel) }

// Debug starts a debug-level event.
func (x *ServerLogger) Debug() *LogEvent { return x.log(DebugLevel) }

// Info starts an info-level event.
func (x *ServerLogger) Info() *LogEvent { return x.log(InfoLevel) }

// Warn starts a warn-level event.
func (x *ServerLogger) Warn() *LogEvent { return x.log(WarnLevel) }

// Error starts an error-level event.
func (x *ServerLogger) Error() *LogEvent { return x.log(ErrorLevel) }

// Fatal starts a fatal-level event; finalizing it terminates the process.
func (x *ServerLogger) Fatal() *LogEvent { return x.log(FatalLevel) }

var _defaultLogger *ServerLogger

func init() {
	_defaultLogger = NewLogger(DefaultCfg())
}

// Initialize replaces the default logger with one built from cfg.
// Call once at startup before any connections are accepted.
func Initialize(cfg *LogCfg) error {
	if cfg == nil {
		cfg = DefaultCfg()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	SetDefaultLogger(NewLogger(cfg))
	return nil
}

// SetDefaultLogger swaps the package-level logger.
func SetDefaultLogger(logger *ServerLogger) {
	_defaultLogger = logger
}

// Default returns the package-level logger.
func Default() *ServerLogger { return _defaultLogger }

// Refresh flushes the default logger's appenders.
func Refresh() { _defaultLogger.Refresh() }

// Close flushes and closes the default logger. Call at shutdown.
func Close() { _defaultLogger.Close() }

// Trace starts a trace-level event on the default logger.
func Trace() *LogEvent { return _defaultLogger.Trace() }

// Debug starts a debug-level event on the default logger.
func Debug() *LogEvent { return _defaultLogger.Debug() }

// Info starts an info-level event on the default logger.
func Info() *LogEvent { return _defaultLogger.Info() }

// Warn starts a warn-level event on the default logger.
func Warn() *LogEvent { return _defaultLogger.Warn() }

// Error starts an error-level event on the default logger.
func Error() *LogEvent { return _defaultLogger.Error() }

// Fatal starts a fatal-level event on the default logger.
func Fatal() *LogEvent { return _defaultLogger.Fatal() }
