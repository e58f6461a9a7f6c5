// Package bus is the publish/subscribe layer carrying lifecycle events
// between services over a shared topic exchange.
//
// Delivery is at-least-once per bound queue. A handler failure is logged and
// the message is still acknowledged: there is no automatic redelivery on
// handler error. That is a deliberate simplicity trade-off, not silent
// tolerance of data loss; consumers must be idempotent regardless.
package bus

import (
	"context"
	"strings"
)

// Handler processes one delivered message. Returning an error marks the
// delivery failed in logs; the message is acknowledged either way.
type Handler func(ctx context.Context, payload []byte) error

// Bus publishes and subscribes to lifecycle events by routing key.
type Bus interface {
	// Publish serializes payload as JSON and sends it to the exchange.
	// Failures are reported to the caller and never crash the process.
	Publish(ctx context.Context, routingKey string, payload any) error

	// Subscribe binds a handler to a routing key. Topic patterns are
	// supported: "*" matches one segment, "#" matches any number.
	// Deliveries for one subscription are processed sequentially.
	Subscribe(routingKey string, handler Handler) error
}

// topicMatch reports whether a routing key matches a binding pattern using
// AMQP topic-exchange semantics.
func topicMatch(pattern, key string) bool {
	return matchSegments(strings.Split(pattern, "."), strings.Split(key, "."))
}

func matchSegments(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(key); i++ {
				if matchSegments(pattern[1:], key[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(key) == 0 {
				return false
			}
		default:
			if len(key) == 0 || key[0] != pattern[0] {
				return false
			}
		}
		pattern = pattern[1:]
		key = key[1:]
	}
	return len(key) == 0
}
