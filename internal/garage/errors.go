package garage

import "errors"

// Domain-specific errors for the garage controller.
var (
	// ErrNoAccount is returned when a feed identity is requested before the
	// account name is known.
	ErrNoAccount = errors.New("garage: account name is empty")

	// ErrNoCredentials is returned when no username or password is stored.
	ErrNoCredentials = errors.New("garage: credentials not configured")

	// ErrUnknownDoor is returned when a door name cannot be parsed.
	ErrUnknownDoor = errors.New("garage: unknown door")

	// ErrConnectRefused wraps a non-auth CONNACK rejection.
	ErrConnectRefused = errors.New("garage: connection refused by broker")

	// ErrStopped is returned by Post after Run has returned.
	ErrStopped = errors.New("garage: controller stopped")

	// ErrMissingTransport is returned by New without a Transport.
	ErrMissingTransport = errors.New("garage: transport is required")

	// ErrMissingStore is returned by New without a Store.
	ErrMissingStore = errors.New("garage: store is required")
)
