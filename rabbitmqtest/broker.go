// Package rabbitmqtest provides an in-memory broker implementing the
// connection seams of package rabbitmq, for tests that need no RabbitMQ server.
package rabbitmqtest

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	rabbitmq "github.com/connectfit-team/rabbitmq-channel"
)

// Op names a broker operation that can be made to fail.
type Op string

const (
	OpDial            Op = "dial"
	OpChannel         Op = "channel.open"
	OpConfirm         Op = "confirm.select"
	OpQueueDeclare    Op = "queue.declare"
	OpExchangeDeclare Op = "exchange.declare"
	OpQueueBind       Op = "queue.bind"
	OpPublish         Op = "basic.publish"
)

// Message is a message accepted by the broker.
type Message struct {
	Exchange   string
	RoutingKey string
	Publishing amqp.Publishing
}

type queue struct {
	durable, autoDelete, exclusive bool
}

// Broker is an in-memory AMQP broker. The zero value is not usable, use NewBroker.
type Broker struct {
	mu       sync.Mutex
	failures map[Op]error
	nack     bool
	hold     bool
	gate     chan struct{}
	holds    map[Op]*Hold

	dials     int
	calls     []string
	queues    map[string]queue
	exchanges map[string]string
	bindings  map[string]struct{}
	published []Message
	conns     []*Conn
}

// NewBroker returns an empty broker accepting every operation.
func NewBroker() *Broker {
	return &Broker{
		failures:  make(map[Op]error),
		holds:     make(map[Op]*Hold),
		queues:    make(map[string]queue),
		exchanges: make(map[string]string),
		bindings:  make(map[string]struct{}),
	}
}

// Fail makes every later op fail with err. A nil err clears the failure.
func (b *Broker) Fail(op Op, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// SetNack makes the broker negatively acknowledge publishes.
func (b *Broker) SetNack(nack bool) {
	b.mu.Lock()
	b.nack = nack
	b.mu.Unlock()
}

// SetHoldConfirms makes confirmations never arrive, WaitContext then returns
// when its context ends.
func (b *Broker) SetHoldConfirms(hold bool) {
	b.mu.Lock()
	b.hold = hold
	b.mu.Unlock()
}

// Block makes dials wait until the returned release func is called.
func (b *Broker) Block() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gate = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// Hold suspends one broker operation until released.
type Hold struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// Entered is closed once the held operation is waiting.
func (h *Hold) Entered() <-chan struct{} {
	return h.entered
}

// Release lets the held operation continue.
func (h *Hold) Release() {
	h.once.Do(func() { close(h.release) })
}

// HoldNext makes the next call of op wait until the returned hold is released.
// Later calls are not held.
func (b *Broker) HoldNext(op Op) *Hold {
	h := &Hold{entered: make(chan struct{}), release: make(chan struct{})}
	b.mu.Lock()
	b.holds[op] = h
	b.mu.Unlock()
	return h
}

func (b *Broker) wait(op Op) {
	b.mu.Lock()
	h := b.holds[op]
	delete(b.holds, op)
	b.mu.Unlock()
	if h == nil {
		return
	}
	close(h.entered)
	<-h.release
}

// Dial is a rabbitmq.DialFunc connecting to b.
func (b *Broker) Dial(ctx context.Context, uri string, cfg rabbitmq.ConnectionConfig) (rabbitmq.Connection, error) {
	b.mu.Lock()
	b.dials++
	gate := b.gate
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &rabbitmq.TransportError{Addr: uri, Err: ctx.Err()}
		}
	}

	if err := b.record(OpDial, ""); err != nil {
		return nil, err
	}

	conn := &Conn{broker: b}
	b.mu.Lock()
	b.conns = append(b.conns, conn)
	b.mu.Unlock()
	return conn, nil
}

// Dials returns how many times Dial was called.
func (b *Broker) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

// Calls returns the successful operations in the order the broker saw them.
func (b *Broker) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// Published returns the messages accepted so far.
func (b *Broker) Published() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.published...)
}

// HasQueue reports whether name was declared.
func (b *Broker) HasQueue(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.queues[name]
	return ok
}

// ExchangeType returns the type name was declared with, or "" if undeclared.
func (b *Broker) ExchangeType(name string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exchanges[name]
}

// HasBinding reports whether queue is bound to exchange with key.
func (b *Broker) HasBinding(queue, exchange, key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.bindings[bindingKey(queue, exchange, key)]
	return ok
}

// Connections returns every connection opened so far.
func (b *Broker) Connections() []*Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Conn(nil), b.conns...)
}

// record fails with the configured error for op, or logs the call.
func (b *Broker) record(op Op, detail string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err, ok := b.failures[op]; ok {
		return err
	}
	call := string(op)
	if detail != "" {
		call += " " + detail
	}
	b.calls = append(b.calls, call)
	return nil
}

func bindingKey(queue, exchange, key string) string {
	return fmt.Sprintf("%s|%s|%s", queue, exchange, key)
}
