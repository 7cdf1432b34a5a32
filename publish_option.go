package rabbitmq

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublishOption configures a Publish call.
type PublishOption func(*PublishConfig)

// WithMessageTTL will overrides the message expiration property with the given TTL.
//
// For further information: https://www.rabbitmq.com/ttl.html
func WithMessageTTL(ttl time.Duration) PublishOption {
	return func(pc *PublishConfig) {
		pc.TTL = durationToMillisecondsString(ttl)
	}
}

// WithPublishTimeout specifies how long Publish waits for the broker
// confirmation when the context has no deadline of its own.
func WithPublishTimeout(timeout time.Duration) PublishOption {
	return func(pc *PublishConfig) {
		pc.Timeout = timeout
	}
}

// WithMessageHeaders overrides the message headers with the given ones.
func WithMessageHeaders(headers amqp.Table) PublishOption {
	return func(pc *PublishConfig) {
		pc.MessageHeaders = headers
	}
}

// WithMessageHeader sets a key/value entry in the message headers table.
func WithMessageHeader(key, value string) PublishOption {
	return func(pc *PublishConfig) {
		if pc.MessageHeaders == nil {
			pc.MessageHeaders = make(amqp.Table)
		}
		pc.MessageHeaders[key] = value
	}
}

// WithMessageDelay specifies how long the message should be delayed through
// the delayed exchange. It updates the "x-delay" header of the message.
//
// For further information: https://github.com/rabbitmq/rabbitmq-delayed-message-exchange
func WithMessageDelay(delay time.Duration) PublishOption {
	return func(pc *PublishConfig) {
		WithMessageHeader(DelayMessageHeader, durationToMillisecondsString(delay))(pc)
	}
}
