// Package mqtt adapts paho.mqtt.golang to the garage.Transport interface.
//
// The adapter never decides anything about the connection lifecycle. It
// starts one broker session per Connect call, with paho's own reconnect
// and connect-retry switched off, and turns every outcome into a
// garage.Event handed to the function registered with SetHandler:
//
//	handshake finished   -> garage.Connected, garage.ConnectAck
//	dial failed          -> garage.Disconnected
//	SUBACK               -> garage.Subscribed
//	PUBACK               -> garage.PublishAck
//	message delivered    -> garage.MessageReceived
//	connection lost      -> garage.Disconnected
//
// Connect, Subscribe and Publish return immediately; results arrive on
// the handler from other goroutines. Each Connect starts a new attempt
// generation, and results from a superseded attempt are dropped, so a
// late CONNACK from an abandoned session can never reach the controller.
//
// # Security Considerations
//
//   - ssl:// is used for every TLS mode; tcp:// only when TLS is off
//   - TLS 1.2 is the minimum version
//   - AcceptAnyCertificate disables server verification and is logged
//     on every attempt that uses it
//   - Client certificates are loaded from a PKCS#12 bundle per attempt,
//     so a replaced bundle takes effect on the next connect
//
// # Usage
//
//	transport := mqtt.New()
//	transport.SetLogger(logger)
//	transport.SetHandler(ctrl.Post)
//	defer transport.Close()
package mqtt
