package supervisor

// State is the connectivity state of the device.
type State int

const (
	Disconnected State = iota
	LinkConnecting
	LinkUp
	BrokerConnecting
	Ready
	// Faulted lasts while the error pattern plays and the backoff runs; it is
	// always followed by Disconnected.
	Faulted
)

var stateNames = [...]string{
	Disconnected:     "disconnected",
	LinkConnecting:   "link-connecting",
	LinkUp:           "link-up",
	BrokerConnecting: "broker-connecting",
	Ready:            "ready",
	Faulted:          "faulted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
