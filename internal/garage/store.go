package garage

import "context"

// Keys the controller reads and writes in the Store.
const (
	KeyAccountName   = "account_name"
	KeyAccountSecret = "account_secret"
	KeyLogBuffer     = "log_buffer"
	KeyLogVisible    = "log_visible"
)

// Store persists small values across restarts. Implementations must be
// safe for concurrent use; the HTTP layer reads it while the loop writes.
// Missing keys are reported through the ok result, not as errors.
type Store interface {
	GetString(ctx context.Context, key string) (value string, ok bool, err error)
	SetString(ctx context.Context, key, value string) error
	GetBool(ctx context.Context, key string) (value bool, ok bool, err error)
	SetBool(ctx context.Context, key string, value bool) error
	Remove(ctx context.Context, key string) error
}
