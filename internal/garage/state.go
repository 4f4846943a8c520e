package garage

import "time"

// Timing and protocol constants of the controller.
const (
	QoS = byte(1)

	KeepAlive            = 120 * time.Second
	ConnectTimeout       = 120 * time.Second
	SubscribeTimeout     = 60 * time.Second
	MinReconnectInterval = 10 * time.Second
	RetryDelay           = MinReconnectInterval / 2
	ResumeThreshold      = 30 * time.Second
	ResumeDelay          = 500 * time.Millisecond
	LivenessTicks        = 10
	LivenessInterval     = time.Second
	HoldSuppression      = 2 * time.Second
)

// State is the connection state of the controller.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSubscribing
	StateSubscribed
	StateAuthFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribing:
		return "subscribing"
	case StateSubscribed:
		return "subscribed"
	case StateAuthFailed:
		return "auth_failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// hasSession reports whether the broker accepted the current session.
func (s State) hasSession() bool {
	return s == StateConnected || s == StateSubscribing || s == StateSubscribed
}

// canConnect reports whether a connect attempt may start from s.
func (s State) canConnect() bool {
	return s == StateDisconnected || s == StateAuthFailed
}

// transitions enumerates every legal state change.
var transitions = map[State][]State{
	StateDisconnected: {StateConnecting},
	// AuthFailed has no Disconnected edge: a dropped session keeps the failure shown.
	StateAuthFailed:   {StateConnecting},
	StateConnecting:   {StateConnected, StateAuthFailed, StateDisconnected},
	StateConnected:    {StateSubscribing, StateDisconnected},
	StateSubscribing:  {StateSubscribed, StateConnected, StateDisconnected},
	StateSubscribed:   {StateDisconnected},
}

// ValidTransition reports whether from -> to is a legal edge.
func ValidTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
