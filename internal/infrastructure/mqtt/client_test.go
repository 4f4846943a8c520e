package mqtt

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
	"go.uber.org/goleak"

	"github.com/nerrad567/garagedoor/internal/garage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// Fakes
// =============================================================================

// fakeToken is a paho token completed by the test.
type fakeToken struct {
	done   chan struct{}
	once   sync.Once
	err    error
	code   byte
	id     uint16
	result map[string]byte
}

func newToken() *fakeToken { return &fakeToken{done: make(chan struct{})} }

func (t *fakeToken) complete(err error) *fakeToken {
	t.err = err
	t.once.Do(func() { close(t.done) })
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { <-t.done; return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) ReturnCode() byte               { return t.code }
func (t *fakeToken) MessageID() uint16              { return t.id }
func (t *fakeToken) Result() map[string]byte        { return t.result }

// plainToken lacks the concrete-token accessors.
type plainToken struct{ err error }

func (plainToken) Wait() bool                     { return true }
func (plainToken) WaitTimeout(time.Duration) bool { return true }
func (plainToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (t plainToken) Error() error                 { return t.err }

// fakePaho records calls; unimplemented methods panic through the nil
// embedded interface.
type fakePaho struct {
	pahomqtt.Client

	opts         *pahomqtt.ClientOptions
	connectToken *fakeToken
	subToken     *fakeToken
	pubToken     *fakeToken

	mu           sync.Mutex
	disconnected int
	subscribed   []string
	published    []string
}

func (f *fakePaho) Connect() pahomqtt.Token { return f.connectToken }
func (f *fakePaho) IsConnected() bool       { return true }
func (f *fakePaho) IsConnectionOpen() bool  { return true }

func (f *fakePaho) Disconnect(uint) {
	f.mu.Lock()
	f.disconnected++
	f.mu.Unlock()
}

func (f *fakePaho) Subscribe(topic string, _ byte, _ pahomqtt.MessageHandler) pahomqtt.Token {
	f.mu.Lock()
	f.subscribed = append(f.subscribed, topic)
	f.mu.Unlock()
	return f.subToken
}

func (f *fakePaho) Publish(topic string, _ byte, _ bool, _ any) pahomqtt.Token {
	f.mu.Lock()
	f.published = append(f.published, topic)
	f.mu.Unlock()
	return f.pubToken
}

func (f *fakePaho) disconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

type fakeMessage struct {
	topic   string
	payload []byte
	id      uint16
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return m.id }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// recorder collects delivered events.
type recorder struct {
	mu     sync.Mutex
	events []garage.Event
}

func (r *recorder) handle(ev garage.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) all() []garage.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]garage.Event(nil), r.events...)
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) logged(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Contains(l.warns, msg)
}

// testClient wires a Client to fresh fakes; each Connect gets the next
// fake from the queue.
type testClient struct {
	*Client
	rec    *recorder
	log    *recordingLogger
	fakes  []*fakePaho
	issued int
}

func newTestClient(t *testing.T, fakes ...*fakePaho) *testClient {
	t.Helper()
	tc := &testClient{Client: New(), rec: &recorder{}, log: &recordingLogger{}, fakes: fakes}
	tc.newClient = func(opts *pahomqtt.ClientOptions) pahomqtt.Client {
		f := tc.fakes[tc.issued]
		tc.issued++
		f.opts = opts
		return f
	}
	tc.SetHandler(tc.rec.handle)
	tc.SetLogger(tc.log)
	return tc
}

func newFake(connect *fakeToken) *fakePaho {
	return &fakePaho{connectToken: connect, subToken: newToken(), pubToken: newToken()}
}

func sessionConfig(mode garage.TLSMode) garage.SessionConfig {
	return garage.SessionConfig{
		Host:                 "io.adafruit.com",
		Port:                 8883,
		ClientID:             "GarageDoor-42",
		Username:             "jim",
		Password:             "aio_secret",
		KeepAlive:            garage.KeepAlive,
		TLS:                  mode,
		AcceptAnyCertificate: true,
		WillTopic:            garage.WillTopic,
		WillPayload:          garage.WillPayload,
	}
}

func eventTypes(evs []garage.Event) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = fmt.Sprintf("%T", ev)
	}
	return out
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect_Accepted(t *testing.T) {
	fake := newFake(newToken().complete(nil))
	c := newTestClient(t, fake)

	if err := c.Connect(sessionConfig(garage.TLSSimple)); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.wg.Wait()
	c.Close()

	evs := c.rec.all()
	if len(evs) != 2 {
		t.Fatalf("events = %v, want Connected and ConnectAck", eventTypes(evs))
	}
	if got, ok := evs[0].(garage.Connected); !ok || got.Host != "io.adafruit.com" || got.Port != 8883 {
		t.Errorf("events[0] = %#v, want Connected to io.adafruit.com:8883", evs[0])
	}
	if got, ok := evs[1].(garage.ConnectAck); !ok || !got.Accepted || got.Code != garage.CodeAccepted {
		t.Errorf("events[1] = %#v, want accepted ConnectAck", evs[1])
	}
}

func TestConnect_Refused(t *testing.T) {
	tok := newToken()
	tok.code = packets.ErrRefusedBadUsernameOrPassword
	fake := newFake(tok.complete(packets.ErrorRefusedBadUsernameOrPassword))
	c := newTestClient(t, fake)

	if err := c.Connect(sessionConfig(garage.TLSSimple)); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.wg.Wait()
	c.Close()

	evs := c.rec.all()
	if len(evs) != 2 {
		t.Fatalf("events = %v, want Connected and ConnectAck", eventTypes(evs))
	}
	ack, ok := evs[1].(garage.ConnectAck)
	if !ok || ack.Accepted || ack.Code != garage.CodeBadCredentials {
		t.Errorf("events[1] = %#v, want refused ConnectAck with bad credentials", evs[1])
	}
	if !ack.Code.AuthFailure() {
		t.Error("AuthFailure() = false for bad credentials")
	}
}

func TestConnect_NetworkError(t *testing.T) {
	tok := newToken()
	tok.code = packets.ErrNetworkError
	fake := newFake(tok.complete(errors.New("dial tcp: connection refused")))
	c := newTestClient(t, fake)

	if err := c.Connect(sessionConfig(garage.TLSOff)); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.wg.Wait()
	c.Close()

	evs := c.rec.all()
	if len(evs) != 1 {
		t.Fatalf("events = %v, want one Disconnected", eventTypes(evs))
	}
	d, ok := evs[0].(garage.Disconnected)
	if !ok || !errors.Is(d.Err, ErrConnectionFailed) {
		t.Errorf("events[0] = %#v, want Disconnected wrapping ErrConnectionFailed", evs[0])
	}
}

func TestConnect_NoHandler(t *testing.T) {
	c := New()
	if err := c.Connect(sessionConfig(garage.TLSOff)); !errors.Is(err, ErrNoHandler) {
		t.Errorf("Connect() error = %v, want ErrNoHandler", err)
	}
}

func TestConnect_StaleResultDropped(t *testing.T) {
	tok := newToken()
	fake := newFake(tok)
	c := newTestClient(t, fake)

	if err := c.Connect(sessionConfig(garage.TLSSimple)); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.Disconnect()
	tok.complete(nil)
	c.Close()

	if evs := c.rec.all(); len(evs) != 0 {
		t.Errorf("events after Disconnect = %v, want none", eventTypes(evs))
	}
	if fake.disconnects() != 1 {
		t.Errorf("paho Disconnect calls = %d, want 1", fake.disconnects())
	}
}

func TestClose_DropsLateResults(t *testing.T) {
	tok := newToken()
	fake := newFake(tok)
	c := newTestClient(t, fake)

	if err := c.Connect(sessionConfig(garage.TLSSimple)); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()

	deadline := time.Now().Add(time.Second)
	for fake.disconnects() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	select {
	case <-closed:
		t.Fatal("Close() returned before the pending handshake finished")
	default:
	}

	tok.complete(nil)
	<-closed

	if evs := c.rec.all(); len(evs) != 0 {
		t.Errorf("events after Close = %v, want none", eventTypes(evs))
	}
}

func TestConnect_ReplacesPreviousSession(t *testing.T) {
	first, second := newFake(newToken()), newFake(newToken().complete(nil))
	c := newTestClient(t, first, second)

	if err := c.Connect(sessionConfig(garage.TLSSimple)); err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}
	if err := c.Connect(sessionConfig(garage.TLSSimple)); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if first.disconnects() != 1 {
		t.Errorf("first session Disconnect calls = %d, want 1", first.disconnects())
	}

	first.connectToken.complete(nil)
	c.wg.Wait()
	c.Close()

	if evs := c.rec.all(); len(evs) != 2 {
		t.Errorf("events = %v, want only the second session's two", eventTypes(evs))
	}
}

func TestConnectionLost(t *testing.T) {
	fake := newFake(newToken().complete(nil))
	c := newTestClient(t, fake)
	if err := c.Connect(sessionConfig(garage.TLSSimple)); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.wg.Wait()

	lost := errors.New("EOF")
	fake.opts.OnConnectionLost(fake, lost)
	c.Disconnect()
	fake.opts.OnConnectionLost(fake, lost) // after our own disconnect: dropped
	c.Close()

	evs := c.rec.all()
	if len(evs) != 3 {
		t.Fatalf("events = %v, want Connected, ConnectAck, Disconnected", eventTypes(evs))
	}
	if d, ok := evs[2].(garage.Disconnected); !ok || !errors.Is(d.Err, lost) {
		t.Errorf("events[2] = %#v, want Disconnected(EOF)", evs[2])
	}
}

func TestMessageReceived(t *testing.T) {
	fake := newFake(newToken().complete(nil))
	c := newTestClient(t, fake)
	if err := c.Connect(sessionConfig(garage.TLSSimple)); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.wg.Wait()

	payload := []byte("OPEN")
	fake.opts.DefaultPublishHandler(fake, fakeMessage{topic: "jim/feeds/left-reed", payload: payload, id: 7})
	payload[0] = 'X'
	c.Close()

	evs := c.rec.all()
	msg, ok := evs[len(evs)-1].(garage.MessageReceived)
	if !ok {
		t.Fatalf("last event = %T, want MessageReceived", evs[len(evs)-1])
	}
	if msg.Topic != "jim/feeds/left-reed" || string(msg.Payload) != "OPEN" || msg.ID != 7 {
		t.Errorf("MessageReceived = %q %q %d, want jim/feeds/left-reed OPEN 7", msg.Topic, msg.Payload, msg.ID)
	}
}

func TestIsConnected(t *testing.T) {
	c := newTestClient(t, newFake(newToken().complete(nil)))
	if c.IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
	if err := c.Connect(sessionConfig(garage.TLSOff)); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !c.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
	c.Close()
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}

func TestConnectReturnCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want garage.ReturnCode
	}{
		{"bad protocol", packets.ErrorRefusedBadProtocolVersion, garage.CodeBadProtocolVersion},
		{"id rejected", packets.ErrorRefusedIDRejected, garage.CodeIdentifierRejected},
		{"server unavailable", packets.ErrorRefusedServerUnavailable, garage.CodeServerUnavailable},
		{"bad credentials", packets.ErrorRefusedBadUsernameOrPassword, garage.CodeBadCredentials},
		{"not authorised", packets.ErrorRefusedNotAuthorised, garage.CodeNotAuthorized},
		{"protocol violation", packets.ErrorProtocolViolation, garage.CodeProtocolViolation},
		{"wrapped refusal", fmt.Errorf("connect: %w", packets.ErrorRefusedNotAuthorised), garage.CodeNotAuthorized},
		{"dial error", errors.New("i/o timeout"), garage.CodeNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := connectReturnCode(plainToken{err: tt.err}, tt.err); got != tt.want {
				t.Errorf("connectReturnCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Subscribe / Publish Tests
// =============================================================================

func connected(t *testing.T) (*testClient, *fakePaho) {
	t.Helper()
	fake := newFake(newToken().complete(nil))
	c := newTestClient(t, fake)
	if err := c.Connect(sessionConfig(garage.TLSSimple)); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.wg.Wait()
	return c, fake
}

func TestSubscribe(t *testing.T) {
	c, fake := connected(t)
	fake.subToken.complete(nil)

	if err := c.Subscribe("jim/feeds/left-reed", 1); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	c.wg.Wait()
	c.Close()

	evs := c.rec.all()
	if got, ok := evs[len(evs)-1].(garage.Subscribed); !ok || got.Topic != "jim/feeds/left-reed" {
		t.Errorf("last event = %#v, want Subscribed(jim/feeds/left-reed)", evs[len(evs)-1])
	}
}

func TestSubscribe_Refused(t *testing.T) {
	c, fake := connected(t)
	fake.subToken.result = map[string]byte{"jim/feeds/left-reed": subackFailure}
	fake.subToken.complete(nil)

	if err := c.Subscribe("jim/feeds/left-reed", 1); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	c.wg.Wait()
	c.Close()

	for _, ev := range c.rec.all() {
		if _, ok := ev.(garage.Subscribed); ok {
			t.Error("Subscribed delivered for a refused filter")
		}
	}
	if !c.log.logged("MQTT subscribe failed") {
		t.Error("refused subscription was not logged")
	}
}

func TestSubscribe_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		qos    byte
		want   error
	}{
		{"empty", "", 1, ErrInvalidTopic},
		{"misplaced multi-level", "jim/#/reed", 1, ErrInvalidTopic},
		{"partial single-level", "jim/feeds/left+", 1, ErrInvalidTopic},
		{"qos 3", "jim/feeds/left-reed", 3, ErrInvalidQoS},
		{"no session", "jim/feeds/left-reed", 1, ErrNotConnected},
	}

	c := newTestClient(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Subscribe(tt.filter, tt.qos); !errors.Is(err, tt.want) {
				t.Errorf("Subscribe(%q) error = %v, want %v", tt.filter, err, tt.want)
			}
		})
	}
}

func TestPublish(t *testing.T) {
	c, fake := connected(t)
	fake.pubToken.id = 11
	fake.pubToken.complete(nil)

	if err := c.Publish("jim/feeds/left-open-close", []byte("1"), 1); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	c.wg.Wait()
	c.Close()

	evs := c.rec.all()
	if got, ok := evs[len(evs)-1].(garage.PublishAck); !ok || got.ID != 11 {
		t.Errorf("last event = %#v, want PublishAck(11)", evs[len(evs)-1])
	}
}

func TestPublish_QoS0NoAck(t *testing.T) {
	c, fake := connected(t)
	fake.pubToken.complete(nil)

	if err := c.Publish("jim/feeds/left-open-close", []byte("0"), 0); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	c.wg.Wait()
	c.Close()

	for _, ev := range c.rec.all() {
		if _, ok := ev.(garage.PublishAck); ok {
			t.Error("PublishAck delivered for QoS 0")
		}
	}
}

func TestPublish_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", []byte("1"), 1, ErrInvalidTopic},
		{"wildcard", "jim/feeds/+", []byte("1"), 1, ErrInvalidTopic},
		{"qos 3", "jim/feeds/x", []byte("1"), 3, ErrInvalidQoS},
		{"oversized", "jim/feeds/x", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"no session", "jim/feeds/x", []byte("1"), 1, ErrNotConnected},
	}

	c := newTestClient(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos); !errors.Is(err, tt.want) {
				t.Errorf("Publish(%q) error = %v, want %v", tt.topic, err, tt.want)
			}
		})
	}
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	noCert := func(garage.ClientCertificate) (tls.Certificate, error) {
		return tls.Certificate{}, errors.New("unexpected")
	}

	t.Run("plain", func(t *testing.T) {
		cfg := sessionConfig(garage.TLSOff)
		cfg.Port = 1883
		opts, err := buildClientOptions(cfg, noCert)
		if err != nil {
			t.Fatalf("buildClientOptions() error = %v", err)
		}
		if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://io.adafruit.com:1883" {
			t.Errorf("Servers = %v, want tcp://io.adafruit.com:1883", opts.Servers)
		}
		if opts.AutoReconnect || opts.ConnectRetry {
			t.Error("paho reconnect must be off")
		}
		if !opts.CleanSession {
			t.Error("CleanSession = false, want true")
		}
		if opts.ClientID != "GarageDoor-42" || opts.Username != "jim" {
			t.Errorf("ClientID/Username = %q/%q", opts.ClientID, opts.Username)
		}
		if !opts.WillEnabled || opts.WillTopic != "/will" || string(opts.WillPayload) != "dieout" {
			t.Errorf("will = %v %q %q, want /will dieout", opts.WillEnabled, opts.WillTopic, opts.WillPayload)
		}
		if opts.KeepAlive != int64(garage.KeepAlive/time.Second) {
			t.Errorf("KeepAlive = %d, want %d", opts.KeepAlive, int64(garage.KeepAlive/time.Second))
		}
		if opts.ConnectTimeout <= garage.ConnectTimeout {
			t.Errorf("ConnectTimeout = %v, want more than %v", opts.ConnectTimeout, garage.ConnectTimeout)
		}
	})

	t.Run("simple tls", func(t *testing.T) {
		opts, err := buildClientOptions(sessionConfig(garage.TLSSimple), noCert)
		if err != nil {
			t.Fatalf("buildClientOptions() error = %v", err)
		}
		if opts.Servers[0].Scheme != "ssl" {
			t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
		}
		if opts.TLSConfig.MinVersion != tls.VersionTLS12 {
			t.Errorf("MinVersion = %x, want TLS 1.2", opts.TLSConfig.MinVersion)
		}
		if !opts.TLSConfig.InsecureSkipVerify {
			t.Error("InsecureSkipVerify = false with AcceptAnyCertificate")
		}
		if len(opts.TLSConfig.Certificates) != 0 {
			t.Error("simple mode must not present a client certificate")
		}
	})

	t.Run("verified tls", func(t *testing.T) {
		cfg := sessionConfig(garage.TLSSimple)
		cfg.AcceptAnyCertificate = false
		opts, err := buildClientOptions(cfg, noCert)
		if err != nil {
			t.Fatalf("buildClientOptions() error = %v", err)
		}
		if opts.TLSConfig.InsecureSkipVerify {
			t.Error("InsecureSkipVerify = true without AcceptAnyCertificate")
		}
	})

	t.Run("client cert", func(t *testing.T) {
		cfg := sessionConfig(garage.TLSClientCert)
		cfg.ClientCert = &garage.ClientCertificate{P12File: "client-keycert.p12", P12Password: "pw"}
		var asked garage.ClientCertificate
		loader := func(cc garage.ClientCertificate) (tls.Certificate, error) {
			asked = cc
			return tls.Certificate{Certificate: [][]byte{{0x30}}}, nil
		}
		opts, err := buildClientOptions(cfg, loader)
		if err != nil {
			t.Fatalf("buildClientOptions() error = %v", err)
		}
		if asked.P12File != "client-keycert.p12" || asked.P12Password != "pw" {
			t.Errorf("loader got %+v", asked)
		}
		if len(opts.TLSConfig.Certificates) != 1 {
			t.Errorf("Certificates = %d, want 1", len(opts.TLSConfig.Certificates))
		}
	})

	t.Run("client cert missing", func(t *testing.T) {
		_, err := buildClientOptions(sessionConfig(garage.TLSClientCert), noCert)
		if !errors.Is(err, ErrCertificate) {
			t.Errorf("buildClientOptions() error = %v, want ErrCertificate", err)
		}
	})
}

func TestLoadClientCertificate(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := loadClientCertificate(garage.ClientCertificate{P12File: t.TempDir() + "/none.p12"})
		if !errors.Is(err, ErrCertificate) {
			t.Errorf("error = %v, want ErrCertificate", err)
		}
	})

	t.Run("not pkcs12", func(t *testing.T) {
		path := t.TempDir() + "/bad.p12"
		if err := writeFile(path, []byte("not a bundle")); err != nil {
			t.Fatal(err)
		}
		_, err := loadClientCertificate(garage.ClientCertificate{P12File: path, P12Password: "x"})
		if !errors.Is(err, ErrCertificate) {
			t.Errorf("error = %v, want ErrCertificate", err)
		}
	})
}

func TestConnect_CertificateErrorIsSynchronous(t *testing.T) {
	c := newTestClient(t)
	c.loadCert = func(garage.ClientCertificate) (tls.Certificate, error) {
		return tls.Certificate{}, fmt.Errorf("%w: gone", ErrCertificate)
	}
	cfg := sessionConfig(garage.TLSClientCert)
	cfg.ClientCert = &garage.ClientCertificate{P12File: "x.p12"}

	if err := c.Connect(cfg); !errors.Is(err, ErrCertificate) {
		t.Errorf("Connect() error = %v, want ErrCertificate", err)
	}
	if c.issued != 0 {
		t.Error("paho client created despite option error")
	}
}

func TestValidateFilter(t *testing.T) {
	tests := []struct {
		filter string
		valid  bool
	}{
		{"jim/feeds/left-reed", true},
		{"jim/feeds/+", true},
		{"jim/#", true},
		{"#", true},
		{"+/feeds/+", true},
		{"", false},
		{"jim/#/x", false},
		{"jim/fe+eds", false},
		{"jim/feeds#", false},
	}

	for _, tt := range tests {
		err := validateFilter(tt.filter)
		if (err == nil) != tt.valid {
			t.Errorf("validateFilter(%q) error = %v, valid %v", tt.filter, err, tt.valid)
		}
	}
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0600)
}
