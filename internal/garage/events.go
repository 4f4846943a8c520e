package garage

import (
	"fmt"
	"time"
)

// Event is a discrete input to the controller loop.
type Event interface {
	isEvent()
}

// ReturnCode is the broker's CONNACK return code (MQTT 3.1.1).
type ReturnCode byte

const (
	CodeAccepted           ReturnCode = 0x00
	CodeBadProtocolVersion ReturnCode = 0x01
	CodeIdentifierRejected ReturnCode = 0x02
	CodeServerUnavailable  ReturnCode = 0x03
	CodeBadCredentials     ReturnCode = 0x04
	CodeNotAuthorized      ReturnCode = 0x05
	CodeNetworkError       ReturnCode = 0xFE
	CodeProtocolViolation  ReturnCode = 0xFF
)

// AuthFailure reports whether the broker rejected the credentials.
func (r ReturnCode) AuthFailure() bool {
	return r == CodeBadCredentials || r == CodeNotAuthorized
}

func (r ReturnCode) String() string {
	switch r {
	case CodeAccepted:
		return "accepted"
	case CodeBadProtocolVersion:
		return "unacceptable protocol version"
	case CodeIdentifierRejected:
		return "identifier rejected"
	case CodeServerUnavailable:
		return "server unavailable"
	case CodeBadCredentials:
		return "bad username or password"
	case CodeNotAuthorized:
		return "not authorized"
	case CodeNetworkError:
		return "network error"
	case CodeProtocolViolation:
		return "protocol violation"
	default:
		return fmt.Sprintf("return code 0x%02x", byte(r))
	}
}

// Transport events.
type (
	// Connected reports that the network connection reached the broker.
	Connected struct {
		Host string
		Port int
	}

	// ConnectAck carries the broker's answer to the handshake.
	ConnectAck struct {
		Accepted bool
		Code     ReturnCode
	}

	// Subscribed confirms a subscription.
	Subscribed struct {
		Topic string
	}

	// Unsubscribed confirms an unsubscribe.
	Unsubscribed struct {
		Topic string
	}

	// MessageReceived delivers one published message.
	MessageReceived struct {
		Topic   string
		Payload []byte
		ID      uint16
	}

	// PublishAck confirms an at-least-once publish.
	PublishAck struct {
		ID uint16
	}

	// Disconnected reports loss of the session. Err is nil for a clean close.
	Disconnected struct {
		Err error
	}

	// PingSent and PongReceived are keep-alive diagnostics.
	PingSent     struct{}
	PongReceived struct{}
)

// Lifecycle events.
type (
	EnteringBackground struct{}
	EnteringForeground struct{}

	// ResumeAfterBackground is emitted on return from a background period
	// of at least ResumeThreshold.
	ResumeAfterBackground struct {
		Elapsed time.Duration
	}
)

// User commands.
type (
	// ConnectRequest asks for a connection. Without Force it is subject
	// to the minimum reconnect interval.
	ConnectRequest struct {
		Force bool
	}

	Press struct {
		Door Door
	}

	Release struct {
		Door Door
	}

	// SetCredentials stores a new account. Empty values remove the key.
	SetCredentials struct {
		Username string
		Password string
	}

	ClearLog struct{}

	SetLogVisible struct {
		Visible bool
	}
)

// deadlineFired is posted by an armed timer.
type deadlineFired struct {
	kind deadlineKind
	gen  uint64
}

func (Connected) isEvent()             {}
func (ConnectAck) isEvent()            {}
func (Subscribed) isEvent()            {}
func (Unsubscribed) isEvent()          {}
func (MessageReceived) isEvent()       {}
func (PublishAck) isEvent()            {}
func (Disconnected) isEvent()          {}
func (PingSent) isEvent()              {}
func (PongReceived) isEvent()          {}
func (EnteringBackground) isEvent()    {}
func (EnteringForeground) isEvent()    {}
func (ResumeAfterBackground) isEvent() {}
func (ConnectRequest) isEvent()        {}
func (Press) isEvent()                 {}
func (Release) isEvent()               {}
func (SetCredentials) isEvent()        {}
func (ClearLog) isEvent()              {}
func (SetLogVisible) isEvent()         {}
func (deadlineFired) isEvent()         {}
