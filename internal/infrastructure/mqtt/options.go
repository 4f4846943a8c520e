package mqtt

import (
	"crypto/tls"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/crypto/pkcs12"

	"github.com/nerrad567/garagedoor/internal/garage"
)

// Connection constants.
const (
	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// defaultPingTimeout bounds the wait for a PINGRESP.
	defaultPingTimeout = 10 * time.Second

	// connectTimeout outlasts garage.ConnectTimeout so the controller's
	// deadline fires first and reports the timeout.
	connectTimeout = garage.ConnectTimeout + 5*time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// willQoS is the delivery guarantee of the last-will message.
	willQoS = 1

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// certLoader turns a bundle reference into a usable certificate.
type certLoader func(garage.ClientCertificate) (tls.Certificate, error)

// buildClientOptions creates paho options for one connect attempt.
//
// This configures:
//   - Broker URL (tcp:// when TLS is off, ssl:// otherwise)
//   - Client ID and credentials from the session
//   - Last will registered on every session
//   - No automatic reconnect or connect retry; the controller owns both
//   - Connect timeout matching the controller's connect deadline
func buildClientOptions(cfg garage.SessionConfig, loadCert certLoader) (*pahomqtt.ClientOptions, error) {
	opts := pahomqtt.NewClientOptions()

	scheme := "ssl"
	if cfg.TLS == garage.TLSOff {
		scheme = "tcp"
	}
	opts.AddBroker(brokerURL(scheme, cfg.Host, cfg.Port))

	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)

	// Clean session - the controller subscribes afresh after every CONNACK.
	opts.SetCleanSession(true)
	opts.SetResumeSubs(false)

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetPingTimeout(defaultPingTimeout)

	if cfg.WillTopic != "" {
		opts.SetWill(cfg.WillTopic, cfg.WillPayload, willQoS, false)
	}

	if cfg.TLS != garage.TLSOff {
		tlsConfig, err := buildTLSConfig(cfg, loadCert)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	return opts, nil
}

// buildTLSConfig returns the TLS settings for the simple and client_cert modes.
func buildTLSConfig(cfg garage.SessionConfig, loadCert certLoader) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tlsMinVersion,
		ServerName: cfg.Host,
		// The hosted broker is reached through intermediaries whose
		// chain does not always verify; the operator opts into this.
		InsecureSkipVerify: cfg.AcceptAnyCertificate, //nolint:gosec // Configurable trust override
	}

	if cfg.TLS == garage.TLSClientCert {
		if cfg.ClientCert == nil {
			return nil, fmt.Errorf("%w: no bundle configured", ErrCertificate)
		}
		cert, err := loadCert(*cfg.ClientCert)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// loadClientCertificate reads a PKCS#12 bundle and converts it into a
// tls.Certificate.
func loadClientCertificate(cc garage.ClientCertificate) (tls.Certificate, error) {
	data, err := os.ReadFile(cc.P12File)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: %w", ErrCertificate, err)
	}

	blocks, err := pkcs12.ToPEM(data, cc.P12Password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: decoding %s: %w", ErrCertificate, cc.P12File, err)
	}

	var pemData []byte
	for _, b := range blocks {
		pemData = append(pemData, pem.EncodeToMemory(b)...)
	}

	// The bundle holds both halves; X509KeyPair picks the certificate
	// blocks from the first argument and the key block from the second.
	cert, err := tls.X509KeyPair(pemData, pemData)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: %s: %w", ErrCertificate, cc.P12File, err)
	}
	return cert, nil
}
