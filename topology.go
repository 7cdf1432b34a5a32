package rabbitmq

import (
	"strings"

	"golang.org/x/exp/slog"
)

// Topology is the queue, exchange and binding a publisher relies on.
type Topology struct {
	Queue      QueueConfig
	Exchange   ExchangeConfig
	RoutingKey string
}

// NewTopology returns the topology binding queue to a direct exchange with routingKey,
// using DefaultQueueConfig and DefaultExchangeConfig for everything else.
func NewTopology(queue, exchange, routingKey string) Topology {
	q := DefaultQueueConfig
	q.Name = queue
	e := DefaultExchangeConfig
	e.Name = exchange
	return Topology{Queue: q, Exchange: e, RoutingKey: routingKey}
}

// WithQueue returns a copy of t with opts applied to its queue.
func (t Topology) WithQueue(opts ...QueueOption) Topology {
	t.Queue.Arguments = cloneTable(t.Queue.Arguments)
	for _, opt := range opts {
		opt(&t.Queue)
	}
	return t
}

// WithExchange returns a copy of t with opts applied to its exchange.
func (t Topology) WithExchange(opts ...ExchangeOption) Topology {
	t.Exchange.Arguments = cloneTable(t.Exchange.Arguments)
	for _, opt := range opts {
		opt(&t.Exchange)
	}
	return t
}

// Key identifies the topology by its queue, exchange and routing key.
func (t Topology) Key() string {
	return strings.Join([]string{t.Queue.Name, t.Exchange.Name, t.RoutingKey}, "\x00")
}

// Validate checks the names before anything is sent to the broker.
func (t Topology) Validate() error {
	if t.Queue.Name == "" {
		return &TopologyError{Step: StepValidate, Err: ErrEmptyQueueName}
	}
	if t.Exchange.Name == "" {
		return &TopologyError{Step: StepValidate, Err: ErrEmptyExchangeName}
	}
	return nil
}

// Provisioner declares topologies. Declarations are idempotent on the broker
// side, running Provision twice with the same topology is harmless.
type Provisioner struct {
	logger *slog.Logger
}

// NewProvisioner returns a Provisioner logging to logger.
func NewProvisioner(logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{logger: logger}
}

// Provision declares the queue, then the exchange, then binds them, waiting
// for the broker to answer each step. The first failure aborts the sequence.
func (p *Provisioner) Provision(ch AMQPChannel, t Topology) error {
	if err := t.Validate(); err != nil {
		return err
	}

	_, err := ch.QueueDeclare(
		t.Queue.Name,
		t.Queue.IsDurable,
		t.Queue.AutoDelete,
		t.Queue.IsExclusive,
		false, // no-wait
		t.Queue.Arguments,
	)
	if err != nil {
		return &TopologyError{Step: StepDeclareQueue, Name: t.Queue.Name, Err: err}
	}
	p.logger.Debug("Declared queue", slog.String("queue_name", t.Queue.Name))

	err = ch.ExchangeDeclare(
		t.Exchange.Name,
		t.Exchange.Type.String(),
		t.Exchange.IsDurable,
		t.Exchange.IsAutoDelete,
		t.Exchange.IsInternal,
		false, // no-wait
		t.Exchange.Arguments,
	)
	if err != nil {
		return &TopologyError{Step: StepDeclareExchange, Name: t.Exchange.Name, Err: err}
	}
	p.logger.Debug("Declared exchange", slog.String("exchange_name", t.Exchange.Name))

	err = ch.QueueBind(t.Queue.Name, t.RoutingKey, t.Exchange.Name, false, nil)
	if err != nil {
		return &TopologyError{Step: StepBindQueue, Name: t.Queue.Name, Err: err}
	}
	p.logger.Debug("Bound queue",
		slog.String("queue_name", t.Queue.Name),
		slog.String("exchange_name", t.Exchange.Name),
		slog.String("routing_key", t.RoutingKey),
	)

	return nil
}
