package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/nerrad567/garagedoor/internal/garage"
)

var _ garage.Transport = (*Client)(nil)

// Client is a garage.Transport backed by paho.mqtt.golang.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Events are delivered from paho and token goroutines, never from
//     the goroutine that called Connect, Subscribe or Publish.
type Client struct {
	mu      sync.Mutex
	client  pahomqtt.Client
	attempt uint64
	handler func(garage.Event) error

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex

	// newClient and loadCert are replaced in tests.
	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client
	loadCert  certLoader

	// wg tracks token waiters so Close can wait for them.
	wg sync.WaitGroup
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Token results that paho exposes only on concrete token types.
type (
	returnCoder interface{ ReturnCode() byte }
	messageIDer interface{ MessageID() uint16 }
	subResulter interface{ Result() map[string]byte }
)

// subackFailure is the SUBACK code for a refused filter.
const subackFailure = 0x80

// New returns a Client with no session.
func New() *Client {
	return &Client{
		newClient: pahomqtt.NewClient,
		loadCert:  loadClientCertificate,
	}
}

// SetHandler sets the function every event is passed to. It is usually
// the controller's Post.
func (c *Client) SetHandler(h func(garage.Event) error) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// Connect abandons any current session and starts a new handshake. It
// fails synchronously only when the options cannot be built; broker and
// network failures arrive as events.
func (c *Client) Connect(cfg garage.SessionConfig) error {
	opts, err := buildClientOptions(cfg, c.loadCert)
	if err != nil {
		return err
	}
	if cfg.TLS != garage.TLSOff && cfg.AcceptAnyCertificate {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("broker certificate verification disabled", "broker", cfg.Address())
		}
	}

	c.mu.Lock()
	if c.handler == nil {
		c.mu.Unlock()
		return ErrNoHandler
	}
	c.attempt++
	gen := c.attempt
	old := c.client

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.deliver(gen, garage.Disconnected{Err: err})
	})
	opts.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.onMessage(gen, msg)
	})

	client := c.newClient(opts)
	c.client = client
	c.mu.Unlock()

	if old != nil {
		old.Disconnect(defaultDisconnectQuiesce)
	}

	token := client.Connect()
	c.wait(func() {
		<-token.Done()
		c.finishConnect(gen, cfg, token)
	})
	return nil
}

// finishConnect maps the handshake result onto events.
func (c *Client) finishConnect(gen uint64, cfg garage.SessionConfig, token pahomqtt.Token) {
	err := token.Error()
	if err == nil {
		c.deliver(gen, garage.Connected{Host: cfg.Host, Port: cfg.Port})
		c.deliver(gen, garage.ConnectAck{Accepted: true, Code: garage.CodeAccepted})
		return
	}

	code := connectReturnCode(token, err)
	if code == garage.CodeNetworkError {
		c.deliver(gen, garage.Disconnected{Err: fmt.Errorf("%w: %w", ErrConnectionFailed, err)})
		return
	}
	// The broker answered, so the network side did connect.
	c.deliver(gen, garage.Connected{Host: cfg.Host, Port: cfg.Port})
	c.deliver(gen, garage.ConnectAck{Accepted: false, Code: code})
}

// connectReturnCode extracts the CONNACK code from a failed connect.
func connectReturnCode(token pahomqtt.Token, err error) garage.ReturnCode {
	if rc, ok := token.(returnCoder); ok && rc.ReturnCode() != packets.Accepted {
		return garage.ReturnCode(rc.ReturnCode())
	}
	refusals := []struct {
		err  error
		code garage.ReturnCode
	}{
		{packets.ErrorRefusedBadProtocolVersion, garage.CodeBadProtocolVersion},
		{packets.ErrorRefusedIDRejected, garage.CodeIdentifierRejected},
		{packets.ErrorRefusedServerUnavailable, garage.CodeServerUnavailable},
		{packets.ErrorRefusedBadUsernameOrPassword, garage.CodeBadCredentials},
		{packets.ErrorRefusedNotAuthorised, garage.CodeNotAuthorized},
		{packets.ErrorProtocolViolation, garage.CodeProtocolViolation},
	}
	for _, r := range refusals {
		if errors.Is(err, r.err) {
			return r.code
		}
	}
	return garage.CodeNetworkError
}

// Disconnect closes the current session without reporting it; the caller
// already knows. Late results of the abandoned attempt are dropped.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.attempt++
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client != nil {
		client.Disconnect(defaultDisconnectQuiesce)
	}
}

// Close disconnects and waits for outstanding token waiters.
func (c *Client) Close() error {
	c.Disconnect()
	c.wg.Wait()
	return nil
}

// HealthCheck reports whether a session is open.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns whether the current session has completed its
// handshake and is still open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	return client != nil && client.IsConnectionOpen()
}

// current returns the active client and its generation.
func (c *Client) current() (pahomqtt.Client, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, 0, ErrNotConnected
	}
	return c.client, c.attempt, nil
}

// deliver passes ev to the handler unless gen has been superseded.
func (c *Client) deliver(gen uint64, ev garage.Event) {
	c.mu.Lock()
	h := c.handler
	stale := gen != c.attempt
	c.mu.Unlock()

	if stale || h == nil {
		if logger := c.getLogger(); logger != nil {
			logger.Debug("stale transport event dropped", "event", fmt.Sprintf("%T", ev))
		}
		return
	}
	if err := h(ev); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Debug("transport event not delivered", "event", fmt.Sprintf("%T", ev), "error", err)
		}
	}
}

// onMessage forwards a delivery with panic recovery.
func (c *Client) onMessage(gen uint64, msg pahomqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("MQTT handler panic recovered",
					"topic", msg.Topic(),
					"panic", r,
				)
			}
		}
	}()

	// paho may reuse the buffer once the handler returns.
	payload := append([]byte(nil), msg.Payload()...)
	c.deliver(gen, garage.MessageReceived{
		Topic:   msg.Topic(),
		Payload: payload,
		ID:      msg.MessageID(),
	})
}

// wait runs fn on a tracked goroutine.
func (c *Client) wait(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}
