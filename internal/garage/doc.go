// Package garage implements the connection lifecycle of the two-door garage
// controller client.
//
// A Controller owns one logical broker session. It drives connect, timeout,
// disconnect and reconnect decisions, confirms the two sensor
// subscriptions, runs the liveness countdown that follows them, derives the
// door model from incoming sensor messages and publishes momentary
// press/release pulses to the actuator feeds.
//
// All mutable state is confined to the goroutine running Controller.Run.
// Transport callbacks, timer firings, lifecycle signals and user commands
// reach it only as Events handed to Controller.Post, so no handler ever
// runs concurrently with another. Other goroutines observe the controller
// through the immutable Snapshot it republishes after every event.
//
// Collaborators are injected:
//   - Transport: the messaging client (see internal/infrastructure/mqtt)
//   - Store: persisted credentials, log buffer and log visibility
//   - StatusSink: whatever renders the status line and door state
//   - Scheduler: the clock and timer source, virtual in tests
//
// Usage:
//
//	ctrl, err := garage.New(garage.Options{
//	    Transport: transport,
//	    Store:     kv,
//	    Sink:      hub,
//	    Policy:    garage.DefaultPolicy(),
//	})
//	if err != nil {
//	    return err
//	}
//	transport.SetHandler(ctrl.Post)
//	go ctrl.Run(ctx)
//	ctrl.Post(garage.ConnectRequest{})
package garage
