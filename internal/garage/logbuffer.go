package garage

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Log buffer limits. Once the text grows past LogMaxBytes it is cut back to
// the newest LogKeepChars characters.
const (
	LogMaxBytes  = 15000
	LogKeepChars = 2000

	logTimeLayout = "03:04:05"
)

// LogBuffer is the user-facing diagnostic log: newest line first, each
// line "hh:mm:ss text". It is safe for concurrent use.
type LogBuffer struct {
	mu   sync.Mutex
	text string
	now  func() time.Time
}

// NewLogBuffer returns an empty buffer stamping lines with now.
func NewLogBuffer(now func() time.Time) *LogBuffer {
	if now == nil {
		now = time.Now
	}
	return &LogBuffer{now: now}
}

// Append prepends one line and returns it without the trailing newline.
func (b *LogBuffer) Append(msg string) string {
	line := b.now().Format(logTimeLayout) + " " + msg

	b.mu.Lock()
	b.text = truncateLog(line + "\n" + b.text)
	b.mu.Unlock()

	return line
}

// Load replaces the contents, applying the size cap.
func (b *LogBuffer) Load(text string) {
	b.mu.Lock()
	b.text = truncateLog(text)
	b.mu.Unlock()
}

// Clear empties the buffer.
func (b *LogBuffer) Clear() {
	b.mu.Lock()
	b.text = ""
	b.mu.Unlock()
}

// String returns the whole log, newest first.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Len returns the size of the log in bytes.
func (b *LogBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.text)
}

// truncateLog keeps the newest LogKeepChars characters of an oversized log.
// The newest text is at the front, so that is a prefix cut on a rune
// boundary.
func truncateLog(text string) string {
	if len(text) <= LogMaxBytes {
		return text
	}
	n := 0
	for i := range text {
		if n == LogKeepChars {
			return text[:i]
		}
		n++
	}
	return text
}

// exportLog formats the log for sending elsewhere: an account header
// followed by the log text.
func exportLog(account, text string) string {
	if account == "" {
		account = "<No user name set>"
	}
	var sb strings.Builder
	sb.Grow(len(text) + len(account) + 16)
	sb.WriteString("User Name: '")
	sb.WriteString(account)
	sb.WriteString("'\n\n")
	sb.WriteString(text)
	return sb.String()
}

// validLogUTF8 drops invalid bytes from persisted text so a damaged store
// value renders cleanly.
func validLogUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return strings.ToValidUTF8(text, "")
}
