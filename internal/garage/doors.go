package garage

import (
	"fmt"
	"strings"
)

// Door identifies one of the two garage doors.
type Door int

const (
	LeftDoor Door = iota
	RightDoor
)

// Doors lists both doors in display order.
var Doors = [...]Door{LeftDoor, RightDoor}

func (d Door) String() string {
	switch d {
	case LeftDoor:
		return "left"
	case RightDoor:
		return "right"
	default:
		return fmt.Sprintf("door(%d)", int(d))
	}
}

func (d Door) valid() bool {
	return d == LeftDoor || d == RightDoor
}

// ParseDoor accepts "left" or "right", case-insensitively.
func ParseDoor(s string) (Door, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return LeftDoor, nil
	case "right":
		return RightDoor, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDoor, s)
}

// Feed keys. Sensors are read, actuators are written.
const (
	FeedLeftSensor     = "left-reed"
	FeedRightSensor    = "right-reed"
	FeedLeftActuator   = "left-open-close"
	FeedRightActuator  = "right-open-close"
	feedSeparator      = "/feeds/"
	actuatorPressValue = "1"
	actuatorFreeValue  = "0"
)

// Sensor payloads.
const (
	StatusOpen    = "Open"
	StatusClosed  = "Closed"
	StatusUnknown = "Unknown"
)

// Actuation control labels.
const (
	LabelClose       = "Close door"
	LabelOpen        = "Open door"
	LabelPlaceholder = "--"
)

// Color is the display category of a door status.
type Color int

const (
	ColorNeutral Color = iota
	ColorAffirmative
	ColorAttention
)

func (c Color) String() string {
	switch c {
	case ColorAffirmative:
		return "affirmative"
	case ColorAttention:
		return "attention"
	default:
		return "neutral"
	}
}

// MarshalText renders the color by name in JSON.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Feeds builds the feed identities of one account.
// The zero value is unusable; construct with NewFeeds.
type Feeds struct {
	account string
}

// NewFeeds returns the feed set for account, or ErrNoAccount.
func NewFeeds(account string) (Feeds, error) {
	if account == "" {
		return Feeds{}, ErrNoAccount
	}
	return Feeds{account: account}, nil
}

// FeedName returns "{account}/feeds/{key}".
func (f Feeds) FeedName(key string) string {
	return f.account + feedSeparator + key
}

// Sensor returns the topic the door's reed switch reports on.
func (f Feeds) Sensor(d Door) string {
	if d == RightDoor {
		return f.FeedName(FeedRightSensor)
	}
	return f.FeedName(FeedLeftSensor)
}

// Actuator returns the topic that pulses the door's relay.
func (f Feeds) Actuator(d Door) string {
	if d == RightDoor {
		return f.FeedName(FeedRightActuator)
	}
	return f.FeedName(FeedLeftActuator)
}

// DoorForSensor maps a received topic back to its door by exact match.
func (f Feeds) DoorForSensor(topic string) (Door, bool) {
	for _, d := range Doors {
		if topic == f.Sensor(d) {
			return d, true
		}
	}
	return 0, false
}

// ColorFor derives the display color of a status text.
func ColorFor(status string) Color {
	switch status {
	case StatusClosed:
		return ColorAffirmative
	case StatusUnknown:
		return ColorNeutral
	default:
		return ColorAttention
	}
}

// LabelFor derives the actuation control label. Only the two recognized
// payloads produce a label; anything else keeps the placeholder.
func LabelFor(status string) string {
	switch status {
	case StatusOpen:
		return LabelClose
	case StatusClosed:
		return LabelOpen
	default:
		return LabelPlaceholder
	}
}
