// Package api implements the HTTP control API and WebSocket status stream
// for the garage door controller.
//
// This package provides:
//   - REST endpoints that post commands to the controller
//   - A read-only status snapshot and the diagnostic log
//   - A WebSocket hub that implements garage.StatusSink and relays every
//     status update to connected clients
//   - Bearer-token (HS256 JWT) protection of the mutating routes
//   - The Prometheus scrape endpoint
//
// # Architecture
//
// The server holds no door or connection state of its own. Writes become
// garage events posted to the controller loop; reads come from the
// controller's last published Snapshot. Updates flow back through the hub,
// which the controller drives as its StatusSink.
//
// # Security
//
// When api.auth.token_secret is set, every POST, PUT and DELETE needs an
// Authorization header carrying a token signed with that secret (see the
// "garagedoor token" command). Reads and the WebSocket stream stay open
// so a status panel needs no credentials. Without a secret the API is
// open and a warning is logged at startup.
package api
