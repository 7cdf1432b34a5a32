package rabbitmq

import (
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrClientClosed is returned when a channel is acquired from a closed client.
	ErrClientClosed = errors.New("rabbitmq: client is closed")
	// ErrInvalidConfiguration is returned when the client configuration cannot be used to dial.
	ErrInvalidConfiguration = errors.New("rabbitmq: invalid configuration")
	// ErrEmptyQueueName is returned when a the length of the given queue name equals zero.
	ErrEmptyQueueName = errors.New("rabbitmq: queue name should contain at least 1 character")
	// ErrEmptyExchangeName is returned when a topology names the default exchange.
	ErrEmptyExchangeName = errors.New("rabbitmq: exchange name should contain at least 1 character")
	// ErrChannelClosed is returned when an operation is attempted on a closed channel.
	ErrChannelClosed = errors.New("rabbitmq: channel is closed")
	// ErrNoConfirmation is returned when the channel did not hand back a
	// deferred confirmation, i.e. it is not in confirm mode.
	ErrNoConfirmation = errors.New("rabbitmq: channel is not in confirm mode")
	// ErrPublishNotConfirmed is returned when the broker negatively acknowledged a message.
	ErrPublishNotConfirmed = errors.New("rabbitmq: publish not confirmed")
	// ErrPublishTimeout is returned when the broker confirmation did not arrive in time.
	ErrPublishTimeout = errors.New("rabbitmq: publish timeout")
)

// TransportError is returned when the TCP connection to the broker could not be
// opened (refused, unreachable, timeout).
type TransportError struct {
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rabbitmq transport error: dial %s: %v", e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HandshakeError is returned when the socket was opened but the AMQP protocol
// negotiation failed.
type HandshakeError struct {
	Addr string
	Err  error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("rabbitmq handshake error: %s: %v", e.Addr, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// ChannelError represents a channel-related error
type ChannelError struct {
	Op  string // Operation that failed
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("rabbitmq channel error: %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// TopologyStep identifies one step of the topology provisioning sequence.
type TopologyStep string

const (
	StepValidate        TopologyStep = "validate"
	StepDeclareQueue    TopologyStep = "declare-queue"
	StepDeclareExchange TopologyStep = "declare-exchange"
	StepBindQueue       TopologyStep = "bind-queue"
)

// TopologyError is returned when the broker rejected a declaration or binding.
// Step tells which one.
type TopologyError struct {
	Step TopologyStep
	Name string
	Err  error
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("rabbitmq topology error: %s '%s': %v", e.Step, e.Name, e.Err)
}

func (e *TopologyError) Unwrap() error {
	return e.Err
}

// PublishError represents a publish operation error
type PublishError struct {
	Exchange   string
	RoutingKey string
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("rabbitmq publish error: failed to publish to %s/%s: %v",
		e.Exchange, e.RoutingKey, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a later attempt of the same operation may succeed.
// Configuration mistakes and a closed client are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrInvalidConfiguration),
		errors.Is(err, ErrClientClosed),
		errors.Is(err, ErrEmptyQueueName),
		errors.Is(err, ErrEmptyExchangeName):
		return false
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		switch amqpErr.Code {
		case amqp.PreconditionFailed, amqp.AccessRefused, amqp.NotFound, amqp.NotAllowed:
			// The broker answers an inequivalent declaration the same way every time.
			return false
		}
	}

	return true
}
