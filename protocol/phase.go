package protocol

// Phase is the protocol sub-state gating which packet ids are legal and how
// their bodies are interpreted. Phases only advance forward, never regress.
type Phase uint8

const (
	// Handshaking is the initial phase of every connection.
	Handshaking Phase = iota
	// Status serves the server-list status/ping exchange.
	Status
	// Login is entered via Handshake nextState=2; unhandled in this scope.
	Login
	// Play is unreachable in this scope.
	Play
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Handshaking:
		return "handshaking"
	case Status:
		return "status"
	case Login:
		return "login"
	case Play:
		return "play"
	}
	return "unknown"
}

// NextPhase maps the Handshake nextState field to the phase it selects.
// Only 1 (Status) and 2 (Login) exist; anything else is malformed.
func NextPhase(nextState int32) (Phase, bool) {
	switch nextState {
	case 1:
		return Status, true
	case 2:
		return Login, true
	}
	return Handshaking, false
}

// Handled reports whether packets are handled at all in the given phase.
// Login and Play have no handlers in this scope; reaching them with inbound
// data is fatal for the connection.
func (p Phase) Handled() bool {
	return p == Handshaking || p == Status
}
