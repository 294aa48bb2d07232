package metrics

// Reporter forwards observations to a metrics backend.
// Implementations must tolerate concurrent Report calls.
type Reporter interface {
	Report(r Record)
}

var _reporters []Reporter

// SetReporters installs the global reporter list. Call during startup,
// before any traffic is served; the slice is read without locking afterwards.
func SetReporters(reporters []Reporter) {
	_reporters = reporters
}

// AddReporter appends one reporter to the global list. Startup only, like
// SetReporters.
func AddReporter(r Reporter) {
	_reporters = append(_reporters, r)
}

func report(r Record) {
	for _, rep := range _reporters {
		rep.Report(r)
	}
}
