package rabbitmq

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/exp/slog"
)

// ClientConfig represents the configuration of a client instance.
type ClientConfig struct {
	ConnectionConfig ConnectionConfig
	Logger           *slog.Logger
	Dial             DialFunc
}

// ConnectionConfig contains all the configurable parameters used by a client instance
// to connect to a RabbitMQ server.
type ConnectionConfig struct {
	URL         string
	Username    string
	Password    string
	Host        string
	Port        string
	VirtualHost string
	// Timeout bounds a whole establishment: TCP connect, handshake, channel
	// opening and topology declaration.
	Timeout   time.Duration
	Heartbeat time.Duration
	FrameSize int
	Locale    string
	// Name is advertised to the broker as the connection_name client property.
	Name string
}

const (
	// DefaultConnectionTimeout is the default duration allowed to establish a session.
	DefaultConnectionTimeout = time.Second * 30
	// DefaultHeartbeat is the default heartbeat interval negotiated with the server.
	DefaultHeartbeat = time.Second * 10
	// DefaultFrameSize is the maximum frame size proposed during the handshake.
	DefaultFrameSize = 65535
	// DefaultLocale is the locale used during the handshake.
	DefaultLocale = "en_US"
)

// DefaultConnectionConfig is the default configuration used by the client to connect
// to the server.
var DefaultConnectionConfig = ConnectionConfig{
	Username:    "guest",
	Password:    "guest",
	Host:        "localhost",
	Port:        "5672",
	VirtualHost: "",
	Timeout:     DefaultConnectionTimeout,
	Heartbeat:   DefaultHeartbeat,
	FrameSize:   DefaultFrameSize,
	Locale:      DefaultLocale,
	Name:        "rabbitmq-channel",
}

// PublishConfig contains all the configurable parameters used when publishing a message.
type PublishConfig struct {
	TTL            string // TTL is applied on a message-by-message basis and is represented in millisecond.
	MessageHeaders amqp.Table
	// Timeout bounds the wait for the broker confirmation when the caller's
	// context carries no deadline.
	Timeout time.Duration
}

const (
	// DefaultPublishTimeout is the default duration the client will wait until the server
	// confirms to the client the message a successfully been published.
	DefaultPublishTimeout = time.Second * 20
)

// DefaultPublishConfig is the default configuration used to publish messages.
var DefaultPublishConfig = PublishConfig{
	TTL:            "",
	MessageHeaders: nil,
	Timeout:        DefaultPublishTimeout,
}

// ExchangeType defines the functionality of the exchange i.e. how messages are routed through it.
type ExchangeType string

func (t ExchangeType) String() string {
	return string(t)
}

const (
	// https://www.rabbitmq.com/tutorials/amqp-concepts.html#exchange-direct
	DirectExchangeType ExchangeType = "direct"
	// https://www.rabbitmq.com/tutorials/amqp-concepts.html#exchange-fanout
	FanoutExchangeType ExchangeType = "fanout"
	// https://www.rabbitmq.com/tutorials/amqp-concepts.html#exchange-topic
	TopicExchangeType ExchangeType = "topic"
	// https://www.rabbitmq.com/tutorials/amqp-concepts.html#exchange-headers
	HeadersExchangeType ExchangeType = "headers"
	// https://github.com/rabbitmq/rabbitmq-delayed-message-exchange
	DelayedMessageExchangeType ExchangeType = "x-delayed-message"
)

const (
	// DelayedTypeArgument is the key used to specify the exchange type of a
	// delayed message exchange.
	//
	// https://github.com/rabbitmq/rabbitmq-delayed-message-exchange
	DelayedTypeArgument = "x-delayed-type"
)

const (
	// DelayMessageHeader is the key used to specify the delay before publishing
	// the message to the queue.
	//
	// https://github.com/rabbitmq/rabbitmq-delayed-message-exchange
	DelayMessageHeader = "x-delay"
)

// ExchangeConfig contains all the configurable parameters used to declare an exchange.
type ExchangeConfig struct {
	Name         string
	Type         ExchangeType
	IsDurable    bool
	IsAutoDelete bool
	IsInternal   bool
	Arguments    amqp.Table
}

// DefaultExchangeConfig is the default configuration used to declare exchanges.
var DefaultExchangeConfig = ExchangeConfig{
	Type:         DirectExchangeType,
	IsDurable:    true,
	IsAutoDelete: false,
	IsInternal:   false,
}

// QueueConfig contains all the configurable parameters used to declare a queue.
type QueueConfig struct {
	Name        string
	IsDurable   bool
	IsExclusive bool
	AutoDelete  bool
	Arguments   amqp.Table
}

// DefaultQueueConfig is the default configuration used to declare queues.
var DefaultQueueConfig = QueueConfig{
	IsDurable:   true,
	IsExclusive: false,
	AutoDelete:  false,
	Arguments:   nil,
}

const (
	// DeadLetterExchangeNameArgument is the key used in the queue optional arguments
	// to specify the name of the dead letter exchange of a queue through its optional arguments.
	DeadLetterExchangeNameArgument = "x-dead-letter-exchange"
	// DeadLetterRoutingKeyArgument is the key used in the queue optional arguments
	// to specify the routing key of the message sent to the dead letter exchange.
	DeadLetterRoutingKeyArgument = "x-dead-letter-routing-key"
	// QueueTypeArgument is the key used in the queue optional arguments to specify
	// the queue type.
	QueueTypeArgument = "x-queue-type"
	// QueueRedeliveryLimit is queue optional arguments to limit
	// redelivery count('x-delivery-count') of unacked message
	// https://www.rabbitmq.com/quorum-queues.html#configuration
	QueueRedeliveryLimit = "x-delivery-limit"
)

const (
	// QuorumQueueType is the value used with the key "x-queue-type" in the optional
	// arguments when declaring a queue to declare a Quorum queue.
	QuorumQueueType = "quorum"
)
