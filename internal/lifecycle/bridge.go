package lifecycle

import (
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/garagedoor/internal/garage"
)

// ErrNoPoster is returned by NewBridge without an event sink.
var ErrNoPoster = errors.New("lifecycle: no event poster")

// Bridge tracks the background period and posts lifecycle events.
// It is safe for concurrent use.
type Bridge struct {
	post      func(garage.Event) error
	now       func() time.Time
	threshold time.Duration

	mu           sync.Mutex
	backgroundAt time.Time
	background   bool
}

// NewBridge returns a Bridge posting to post, usually Controller.Post.
func NewBridge(post func(garage.Event) error) (*Bridge, error) {
	if post == nil {
		return nil, ErrNoPoster
	}
	return &Bridge{
		post:      post,
		now:       time.Now,
		threshold: garage.ResumeThreshold,
	}, nil
}

// EnterBackground records the start of a background period. Repeated
// calls keep the first timestamp.
func (b *Bridge) EnterBackground() error {
	b.mu.Lock()
	if !b.background {
		b.background = true
		b.backgroundAt = b.now()
	}
	b.mu.Unlock()
	return b.post(garage.EnteringBackground{})
}

// EnterForeground ends the background period. It returns the time spent
// in the background, zero when the host was not backgrounded.
func (b *Bridge) EnterForeground() (time.Duration, error) {
	b.mu.Lock()
	var elapsed time.Duration
	if b.background {
		elapsed = b.now().Sub(b.backgroundAt)
		b.background = false
	}
	b.mu.Unlock()

	if elapsed >= b.threshold {
		if err := b.post(garage.ResumeAfterBackground{Elapsed: elapsed}); err != nil {
			return elapsed, err
		}
	}
	return elapsed, b.post(garage.EnteringForeground{})
}

// InBackground reports whether a background period is in progress.
func (b *Bridge) InBackground() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.background
}
