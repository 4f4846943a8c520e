package garage

import "time"

// StatusSink renders the controller's user-visible state. Calls are made
// from the controller loop, one at a time.
type StatusSink interface {
	SetStatus(text string)
	SetDoor(door Door, status string, color Color)
	SetDoorLabel(door Door, label string)
	SetControlsEnabled(enabled bool)
	SetCountdown(remaining int)
	HideCountdown()
	SetReceivedCount(total uint64)
	SetBothClosed(closed bool)
	AppendLog(line string)
}

// Observer receives counters for metrics. All methods are called from the
// controller loop.
type Observer interface {
	StateChanged(from, to State)
	ConnectAttempt(automatic bool)
	MessageReceived(door string)
	DoorStatus(door Door, status string)
	Actuation(door Door, payload string)
	ReleaseSuppressed(door Door)
	DeadlineExpired(kind string)
}

// Logger is the structured logger used by the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopSink struct{}

func (noopSink) SetStatus(string)            {}
func (noopSink) SetDoor(Door, string, Color) {}
func (noopSink) SetDoorLabel(Door, string)   {}
func (noopSink) SetControlsEnabled(bool)     {}
func (noopSink) SetCountdown(int)            {}
func (noopSink) HideCountdown()              {}
func (noopSink) SetReceivedCount(uint64)     {}
func (noopSink) SetBothClosed(bool)          {}
func (noopSink) AppendLog(string)            {}

type noopObserver struct{}

func (noopObserver) StateChanged(State, State) {}
func (noopObserver) ConnectAttempt(bool)       {}
func (noopObserver) MessageReceived(string)    {}
func (noopObserver) DoorStatus(Door, string)   {}
func (noopObserver) Actuation(Door, string)    {}
func (noopObserver) ReleaseSuppressed(Door)    {}
func (noopObserver) DeadlineExpired(string)    {}

// DoorView is one door as last rendered.
type DoorView struct {
	Door      string    `json:"door"`
	Status    string    `json:"status"`
	Color     Color     `json:"color"`
	Label     string    `json:"label"`
	PressedAt time.Time `json:"pressed_at,omitempty"`
}

// Snapshot is a point-in-time copy of everything the sink has been told.
type Snapshot struct {
	State            State       `json:"state"`
	Status           string      `json:"status"`
	Broker           string      `json:"broker,omitempty"`
	Doors            [2]DoorView `json:"doors"`
	ControlsEnabled  bool        `json:"controls_enabled"`
	Countdown        int         `json:"countdown"`
	CountdownVisible bool        `json:"countdown_visible"`
	SubscribedFeeds  int         `json:"subscribed_feeds"`
	Received         uint64      `json:"received"`
	BothClosed       bool        `json:"both_closed"`
	LogVisible       bool        `json:"log_visible"`
	LastConnect      time.Time   `json:"last_connect,omitempty"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
