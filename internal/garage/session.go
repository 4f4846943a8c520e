package garage

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TLSMode selects how the session secures its transport.
type TLSMode int

const (
	// TLSSimple is server-authenticated TLS on the TLS port. It is the default.
	TLSSimple TLSMode = iota
	// TLSOff is a plain TCP session on the plain port.
	TLSOff
	// TLSClientCert adds a client certificate loaded from a PKCS#12 bundle.
	TLSClientCert
)

func (m TLSMode) String() string {
	switch m {
	case TLSOff:
		return "off"
	case TLSClientCert:
		return "client_cert"
	default:
		return "simple"
	}
}

// ParseTLSMode maps the config spelling onto a TLSMode.
func ParseTLSMode(s string) (TLSMode, error) {
	switch s {
	case "", "simple":
		return TLSSimple, nil
	case "off":
		return TLSOff, nil
	case "client_cert":
		return TLSClientCert, nil
	}
	return TLSSimple, fmt.Errorf("garage: unknown tls mode %q", s)
}

// ClientCertificate locates the PKCS#12 bundle used in TLSClientCert mode.
type ClientCertificate struct {
	P12File     string
	P12Password string
}

// Last-will registered with every session.
const (
	WillTopic   = "/will"
	WillPayload = "dieout"
)

// SessionConfig is everything the transport needs for one connect attempt.
// It is built fresh before every attempt and never modified afterwards.
type SessionConfig struct {
	Host      string
	Port      int
	ClientID  string
	Username  string
	Password  string
	KeepAlive time.Duration

	TLS                  TLSMode
	ClientCert           *ClientCertificate
	AcceptAnyCertificate bool

	WillTopic   string
	WillPayload string
}

// Address returns host:port as shown on the status line.
func (c SessionConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Feeds returns the feed identities of the session's account.
func (c SessionConfig) Feeds() (Feeds, error) {
	return NewFeeds(c.Username)
}

// SessionPolicy holds the fixed parts of every SessionConfig: where to
// connect and how. Credentials are supplied per attempt.
type SessionPolicy struct {
	Host                 string
	TLSPort              int
	PlainPort            int
	TLS                  TLSMode
	ClientIDPrefix       string
	KeepAlive            time.Duration
	ClientCert           *ClientCertificate
	AcceptAnyCertificate bool
}

// DefaultPolicy targets the hosted broker over simple TLS.
func DefaultPolicy() SessionPolicy {
	return SessionPolicy{
		Host:                 "io.adafruit.com",
		TLSPort:              8883,
		PlainPort:            1883,
		TLS:                  TLSSimple,
		ClientIDPrefix:       "GarageDoor-",
		KeepAlive:            KeepAlive,
		AcceptAnyCertificate: true,
	}
}

// Build produces the SessionConfig for one attempt. Both credentials must
// be present; the client id carries the process id so two instances never
// collide on the broker.
func (p SessionPolicy) Build(username, password string) (SessionConfig, error) {
	if username == "" || password == "" {
		return SessionConfig{}, ErrNoCredentials
	}

	port := p.TLSPort
	if p.TLS == TLSOff {
		port = p.PlainPort
	}
	keepAlive := p.KeepAlive
	if keepAlive <= 0 {
		keepAlive = KeepAlive
	}

	cfg := SessionConfig{
		Host:                 p.Host,
		Port:                 port,
		ClientID:             p.ClientIDPrefix + strconv.Itoa(os.Getpid()),
		Username:             username,
		Password:             password,
		KeepAlive:            keepAlive,
		TLS:                  p.TLS,
		AcceptAnyCertificate: p.AcceptAnyCertificate,
		WillTopic:            WillTopic,
		WillPayload:          WillPayload,
	}
	if p.TLS == TLSClientCert {
		if p.ClientCert == nil || p.ClientCert.P12File == "" {
			return SessionConfig{}, fmt.Errorf("garage: client_cert mode needs a PKCS#12 file")
		}
		cc := *p.ClientCert
		cfg.ClientCert = &cc
	}
	return cfg, nil
}
