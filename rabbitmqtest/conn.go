package rabbitmqtest

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	rabbitmq "github.com/connectfit-team/rabbitmq-channel"
)

// notifier holds the close listeners of a connection or a channel.
type notifier struct {
	mu       sync.Mutex
	closed   bool
	closes   []chan *amqp.Error
	children []*Channel
}

func (n *notifier) notifyClose(c chan *amqp.Error) chan *amqp.Error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		close(c)
		return c
	}
	n.closes = append(n.closes, c)
	return c
}

func (n *notifier) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// shutdown sends err (when not nil) to every listener then closes them, the
// way amqp091 does.
func (n *notifier) shutdown(err *amqp.Error) bool {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return false
	}
	n.closed = true
	closes := n.closes
	n.closes = nil
	n.mu.Unlock()

	for _, c := range closes {
		if err != nil {
			c <- err
		}
		close(c)
	}
	return true
}

// Conn is a connection to a Broker.
type Conn struct {
	notifier
	broker *Broker
}

var _ rabbitmq.Connection = (*Conn)(nil)

func (c *Conn) Channel() (rabbitmq.AMQPChannel, error) {
	if c.isClosed() {
		return nil, amqp.ErrClosed
	}
	if err := c.broker.record(OpChannel, ""); err != nil {
		return nil, err
	}
	ch := &Channel{broker: c.broker, conn: c}
	c.mu.Lock()
	c.children = append(c.children, ch)
	c.mu.Unlock()
	return ch, nil
}

func (c *Conn) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return c.notifyClose(receiver)
}

func (c *Conn) IsClosed() bool {
	return c.isClosed()
}

func (c *Conn) Close() error {
	if !c.shutdown(nil) {
		return amqp.ErrClosed
	}
	c.closeChildren(nil)
	return nil
}

// CloseWithError simulates the broker closing the connection, e.g. after
// missed heartbeats.
func (c *Conn) CloseWithError(code int, reason string) {
	err := &amqp.Error{Code: code, Reason: reason, Server: true}
	c.closeChildren(err)
	c.shutdown(err)
}

// Channels returns the channels opened on c.
func (c *Conn) Channels() []*Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Channel(nil), c.children...)
}

func (c *Conn) closeChildren(err *amqp.Error) {
	for _, ch := range c.Channels() {
		ch.shutdown(err)
	}
}

// Channel is a channel of a Conn.
type Channel struct {
	notifier
	broker  *Broker
	conn    *Conn
	confirm bool
	tag     uint64
}

var _ rabbitmq.AMQPChannel = (*Channel)(nil)

func (ch *Channel) Confirm(noWait bool) error {
	if ch.isClosed() {
		return amqp.ErrClosed
	}
	if err := ch.broker.record(OpConfirm, ""); err != nil {
		return err
	}
	ch.mu.Lock()
	ch.confirm = true
	ch.mu.Unlock()
	return nil
}

func (ch *Channel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	ch.broker.wait(OpQueueDeclare)
	if ch.isClosed() {
		return amqp.Queue{}, amqp.ErrClosed
	}
	if err := ch.broker.record(OpQueueDeclare, name); err != nil {
		return amqp.Queue{}, ch.fail(err)
	}

	q := queue{durable: durable, autoDelete: autoDelete, exclusive: exclusive}
	b := ch.broker
	b.mu.Lock()
	existing, ok := b.queues[name]
	if ok && existing != q {
		b.mu.Unlock()
		return amqp.Queue{}, ch.fail(&amqp.Error{
			Code:   amqp.PreconditionFailed,
			Reason: fmt.Sprintf("PRECONDITION_FAILED - inequivalent arg for queue '%s'", name),
			Server: true,
		})
	}
	b.queues[name] = q
	b.mu.Unlock()
	return amqp.Queue{Name: name}, nil
}

func (ch *Channel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	ch.broker.wait(OpExchangeDeclare)
	if ch.isClosed() {
		return amqp.ErrClosed
	}
	if err := ch.broker.record(OpExchangeDeclare, name+" "+kind); err != nil {
		return ch.fail(err)
	}

	b := ch.broker
	b.mu.Lock()
	existing, ok := b.exchanges[name]
	if ok && existing != kind {
		b.mu.Unlock()
		return ch.fail(&amqp.Error{
			Code:   amqp.PreconditionFailed,
			Reason: fmt.Sprintf("PRECONDITION_FAILED - inequivalent arg 'type' for exchange '%s'", name),
			Server: true,
		})
	}
	b.exchanges[name] = kind
	b.mu.Unlock()
	return nil
}

func (ch *Channel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	ch.broker.wait(OpQueueBind)
	if ch.isClosed() {
		return amqp.ErrClosed
	}
	if err := ch.broker.record(OpQueueBind, name+" "+exchange+" "+key); err != nil {
		return ch.fail(err)
	}

	b := ch.broker
	b.mu.Lock()
	_, hasQueue := b.queues[name]
	_, hasExchange := b.exchanges[exchange]
	if !hasQueue || !hasExchange {
		b.mu.Unlock()
		return ch.fail(&amqp.Error{Code: amqp.NotFound, Reason: "NOT_FOUND", Server: true})
	}
	b.bindings[bindingKey(name, exchange, key)] = struct{}{}
	b.mu.Unlock()
	return nil
}

func (ch *Channel) PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (rabbitmq.DeferredConfirmation, error) {
	ch.broker.wait(OpPublish)
	if ch.isClosed() {
		return nil, amqp.ErrClosed
	}
	if err := ch.broker.record(OpPublish, exchange+" "+key); err != nil {
		return nil, err
	}

	ch.mu.Lock()
	if !ch.confirm {
		ch.mu.Unlock()
		return nil, rabbitmq.ErrNoConfirmation
	}
	ch.tag++
	tag := ch.tag
	ch.mu.Unlock()

	b := ch.broker
	b.mu.Lock()
	ack := !b.nack
	hold := b.hold
	if ack {
		b.published = append(b.published, Message{Exchange: exchange, RoutingKey: key, Publishing: msg})
	}
	b.mu.Unlock()

	return &Confirmation{tag: tag, ack: ack, hold: hold}, nil
}

func (ch *Channel) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return ch.notifyClose(receiver)
}

func (ch *Channel) IsClosed() bool {
	return ch.isClosed()
}

func (ch *Channel) Close() error {
	if !ch.shutdown(nil) {
		return amqp.ErrClosed
	}
	return nil
}

// CloseWithError simulates the broker closing the channel with a channel exception.
func (ch *Channel) CloseWithError(code int, reason string) {
	ch.shutdown(&amqp.Error{Code: code, Reason: reason, Server: true})
}

// fail closes the channel when err is a broker exception, as RabbitMQ does.
func (ch *Channel) fail(err error) error {
	if amqpErr, ok := err.(*amqp.Error); ok && amqpErr.Server {
		ch.shutdown(amqpErr)
	}
	return err
}

// Confirmation is the broker answer to one publish.
type Confirmation struct {
	tag  uint64
	ack  bool
	hold bool
}

func (c *Confirmation) DeliveryTag() uint64 {
	return c.tag
}

func (c *Confirmation) WaitContext(ctx context.Context) (bool, error) {
	if c.hold {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return c.ack, nil
}
