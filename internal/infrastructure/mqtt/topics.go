package mqtt

import (
	"fmt"
	"strings"
)

// MQTT topic wildcards.
const (
	wildcardSingle = "+"
	wildcardMulti  = "#"
	levelSeparator = "/"
)

// validatePublishTopic rejects empty topics and topics with wildcards,
// which brokers refuse in PUBLISH.
func validatePublishTopic(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if strings.ContainsAny(topic, wildcardSingle+wildcardMulti) {
		return fmt.Errorf("%w: wildcard in publish topic %q", ErrInvalidTopic, topic)
	}
	return nil
}

// validateFilter checks wildcard placement in a subscription filter:
// "+" must fill a whole level and "#" must be the whole last level.
func validateFilter(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	levels := strings.Split(filter, levelSeparator)
	for i, level := range levels {
		switch {
		case level == wildcardMulti:
			if i != len(levels)-1 {
				return fmt.Errorf("%w: %q not last in %q", ErrInvalidTopic, wildcardMulti, filter)
			}
		case strings.Contains(level, wildcardMulti), level != wildcardSingle && strings.Contains(level, wildcardSingle):
			return fmt.Errorf("%w: partial-level wildcard in %q", ErrInvalidTopic, filter)
		}
	}
	return nil
}

// brokerURL returns the paho server URL for a session.
func brokerURL(scheme, host string, port int) string {
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}
