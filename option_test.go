package rabbitmq_test

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	rabbitmq "github.com/connectfit-team/rabbitmq-channel"
)

func TestOptions(t *testing.T) {
	logger := discardLogger()

	t.Run("client", func(t *testing.T) {
		tests := []struct {
			name string
			opt  rabbitmq.Option
			want func(cfg *rabbitmq.ClientConfig)
		}{
			{name: "url", opt: rabbitmq.WithURL("amqp://a:b@c:1/"), want: func(c *rabbitmq.ClientConfig) { c.ConnectionConfig.URL = "amqp://a:b@c:1/" }},
			{name: "username", opt: rabbitmq.WithUsername("wayne"), want: func(c *rabbitmq.ClientConfig) { c.ConnectionConfig.Username = "wayne" }},
			{name: "password", opt: rabbitmq.WithPassword("alfred"), want: func(c *rabbitmq.ClientConfig) { c.ConnectionConfig.Password = "alfred" }},
			{name: "host", opt: rabbitmq.WithHost("rabbitmq"), want: func(c *rabbitmq.ClientConfig) { c.ConnectionConfig.Host = "rabbitmq" }},
			{name: "port", opt: rabbitmq.WithPort("5673"), want: func(c *rabbitmq.ClientConfig) { c.ConnectionConfig.Port = "5673" }},
			{name: "virtual host", opt: rabbitmq.WithVirtualHost("gotham"), want: func(c *rabbitmq.ClientConfig) { c.ConnectionConfig.VirtualHost = "gotham" }},
			{name: "timeout", opt: rabbitmq.WithConnectionTimeout(time.Second), want: func(c *rabbitmq.ClientConfig) { c.ConnectionConfig.Timeout = time.Second }},
			{name: "heartbeat", opt: rabbitmq.WithHeartbeat(time.Minute), want: func(c *rabbitmq.ClientConfig) { c.ConnectionConfig.Heartbeat = time.Minute }},
			{name: "frame size", opt: rabbitmq.WithFrameSize(131072), want: func(c *rabbitmq.ClientConfig) { c.ConnectionConfig.FrameSize = 131072 }},
			{name: "locale", opt: rabbitmq.WithLocale("fr_FR"), want: func(c *rabbitmq.ClientConfig) { c.ConnectionConfig.Locale = "fr_FR" }},
			{name: "connection name", opt: rabbitmq.WithConnectionName("hello"), want: func(c *rabbitmq.ClientConfig) { c.ConnectionConfig.Name = "hello" }},
			{name: "logger", opt: rabbitmq.WithLogger(logger), want: func(c *rabbitmq.ClientConfig) { c.Logger = logger }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := rabbitmq.ClientConfig{ConnectionConfig: rabbitmq.DefaultConnectionConfig}
				want := got
				tt.opt(&got)
				tt.want(&want)
				assert.Equal(t, want, got)
			})
		}
	})

	t.Run("queue", func(t *testing.T) {
		tests := []struct {
			name string
			opt  rabbitmq.QueueOption
			want func(q *rabbitmq.QueueConfig)
		}{
			{name: "durable", opt: rabbitmq.WithQueueDurable(false), want: func(q *rabbitmq.QueueConfig) { q.IsDurable = false }},
			{name: "exclusive", opt: rabbitmq.WithQueueExclusive(true), want: func(q *rabbitmq.QueueConfig) { q.IsExclusive = true }},
			{name: "auto delete", opt: rabbitmq.WithQueueAutoDelete(true), want: func(q *rabbitmq.QueueConfig) { q.AutoDelete = true }},
			{
				name: "arguments",
				opt:  rabbitmq.WithQueueArguments(amqp.Table{"x-max-length": int64(10)}),
				want: func(q *rabbitmq.QueueConfig) { q.Arguments = amqp.Table{"x-max-length": int64(10)} },
			},
			{
				name: "dead letter exchange",
				opt:  rabbitmq.WithQueueDeadLetterExchange("dlx"),
				want: func(q *rabbitmq.QueueConfig) { q.Arguments = amqp.Table{rabbitmq.DeadLetterExchangeNameArgument: "dlx"} },
			},
			{
				name: "dead letter routing key",
				opt:  rabbitmq.WithQueueDeadLetterRoutingKey("raw_dead"),
				want: func(q *rabbitmq.QueueConfig) { q.Arguments = amqp.Table{rabbitmq.DeadLetterRoutingKeyArgument: "raw_dead"} },
			},
			{
				name: "quorum",
				opt:  rabbitmq.WithQueueQuorum(),
				want: func(q *rabbitmq.QueueConfig) { q.Arguments = amqp.Table{rabbitmq.QueueTypeArgument: rabbitmq.QuorumQueueType} },
			},
			{
				name: "redelivery limit",
				opt:  rabbitmq.WithQueueRedeliveryLimit(5),
				want: func(q *rabbitmq.QueueConfig) { q.Arguments = amqp.Table{rabbitmq.QueueRedeliveryLimit: int64(5)} },
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := rawTopology.WithQueue(tt.opt).Queue
				want := rawTopology.Queue
				tt.want(&want)
				assert.Equal(t, want, got)
			})
		}
	})

	t.Run("exchange", func(t *testing.T) {
		tests := []struct {
			name string
			opt  rabbitmq.ExchangeOption
			want func(e *rabbitmq.ExchangeConfig)
		}{
			{name: "type", opt: rabbitmq.WithExchangeType(rabbitmq.HeadersExchangeType), want: func(e *rabbitmq.ExchangeConfig) { e.Type = rabbitmq.HeadersExchangeType }},
			{name: "durable", opt: rabbitmq.WithExchangeDurable(false), want: func(e *rabbitmq.ExchangeConfig) { e.IsDurable = false }},
			{name: "auto delete", opt: rabbitmq.WithExchangeAutoDelete(true), want: func(e *rabbitmq.ExchangeConfig) { e.IsAutoDelete = true }},
			{name: "internal", opt: rabbitmq.WithExchangeInternal(true), want: func(e *rabbitmq.ExchangeConfig) { e.IsInternal = true }},
			{
				name: "arguments",
				opt:  rabbitmq.WithExchangeArguments(amqp.Table{"alternate-exchange": "ae"}),
				want: func(e *rabbitmq.ExchangeConfig) { e.Arguments = amqp.Table{"alternate-exchange": "ae"} },
			},
			{
				name: "delayed",
				opt:  rabbitmq.WithDelayedMessageExchangeType(rabbitmq.FanoutExchangeType),
				want: func(e *rabbitmq.ExchangeConfig) {
					e.Type = rabbitmq.DelayedMessageExchangeType
					e.Arguments = amqp.Table{rabbitmq.DelayedTypeArgument: "fanout"}
				},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := rawTopology.WithExchange(tt.opt).Exchange
				want := rawTopology.Exchange
				tt.want(&want)
				assert.Equal(t, want, got)
			})
		}
	})

	t.Run("publish", func(t *testing.T) {
		tests := []struct {
			name string
			opt  rabbitmq.PublishOption
			want func(p *rabbitmq.PublishConfig)
		}{
			{name: "ttl", opt: rabbitmq.WithMessageTTL(2 * time.Second), want: func(p *rabbitmq.PublishConfig) { p.TTL = "2000" }},
			{name: "timeout", opt: rabbitmq.WithPublishTimeout(time.Second), want: func(p *rabbitmq.PublishConfig) { p.Timeout = time.Second }},
			{
				name: "headers",
				opt:  rabbitmq.WithMessageHeaders(amqp.Table{"tenant": "wayne"}),
				want: func(p *rabbitmq.PublishConfig) { p.MessageHeaders = amqp.Table{"tenant": "wayne"} },
			},
			{
				name: "delay",
				opt:  rabbitmq.WithMessageDelay(time.Second),
				want: func(p *rabbitmq.PublishConfig) { p.MessageHeaders = amqp.Table{rabbitmq.DelayMessageHeader: "1000"} },
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := rabbitmq.DefaultPublishConfig
				want := rabbitmq.DefaultPublishConfig
				tt.opt(&got)
				tt.want(&want)
				assert.Equal(t, want, got)
			})
		}
	})
}
