package rabbitmq

import (
	"context"
	"fmt"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection is the part of an AMQP session used by this package.
// *amqp.Connection satisfies it through DialAMQP.
type Connection interface {
	Channel() (AMQPChannel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

// AMQPChannel is the part of an AMQP channel used by this package.
type AMQPChannel interface {
	Confirm(noWait bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (DeferredConfirmation, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

// DeferredConfirmation is the pending broker answer for one published message.
type DeferredConfirmation interface {
	DeliveryTag() uint64
	// WaitContext blocks until the broker answered and reports whether the
	// message was acknowledged.
	WaitContext(ctx context.Context) (bool, error)
}

// DialFunc opens a transport connection to uri and performs the protocol handshake.
type DialFunc func(ctx context.Context, uri string, cfg ConnectionConfig) (Connection, error)

// DialAMQP is the default DialFunc. A failure to open the socket is reported as
// a *TransportError, any later failure during the handshake as a *HandshakeError.
func DialAMQP(ctx context.Context, uri string, cfg ConnectionConfig) (Connection, error) {
	parsed, err := amqp.ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	addr := net.JoinHostPort(parsed.Host, fmt.Sprint(parsed.Port))

	var transportErr error
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := amqp.DialConfig(uri, amqp.Config{
		Heartbeat: cfg.Heartbeat,
		FrameSize: cfg.FrameSize,
		Locale:    cfg.Locale,
		Properties: amqp.Table{
			"product":         "rabbitmq-channel",
			"connection_name": cfg.Name,
		},
		Dial: func(network, address string) (net.Conn, error) {
			c, err := dialer.DialContext(ctx, network, address)
			if err != nil {
				transportErr = err
				return nil, err
			}
			// The deadline covers the handshake, amqp clears it once the
			// connection is open and heartbeats take over.
			var deadline time.Time
			if cfg.Timeout > 0 {
				deadline = time.Now().Add(cfg.Timeout)
			}
			if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
				deadline = d
			}
			if deadline.IsZero() {
				return c, nil
			}
			if err := c.SetDeadline(deadline); err != nil {
				_ = c.Close()
				transportErr = err
				return nil, err
			}
			return c, nil
		},
	})
	if err != nil {
		if transportErr != nil {
			return nil, &TransportError{Addr: addr, Err: transportErr}
		}
		return nil, &HandshakeError{Addr: addr, Err: err}
	}

	return amqpConnection{conn}, nil
}

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (AMQPChannel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return amqpChannel{ch}, nil
}

type amqpChannel struct {
	*amqp.Channel
}

func (c amqpChannel) PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (DeferredConfirmation, error) {
	dc, err := c.Channel.PublishWithDeferredConfirmWithContext(ctx, exchange, key, mandatory, immediate, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, ErrNoConfirmation
	}
	return amqpConfirmation{dc}, nil
}

type amqpConfirmation struct {
	dc *amqp.DeferredConfirmation
}

func (c amqpConfirmation) DeliveryTag() uint64 {
	return c.dc.DeliveryTag
}

func (c amqpConfirmation) WaitContext(ctx context.Context) (bool, error) {
	return c.dc.WaitContext(ctx)
}
