package rabbitmq

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/slog"

	"github.com/connectfit-team/rabbitmq-channel/opentelemetry"
)

// PublishRequest is one message to publish.
type PublishRequest struct {
	Exchange   string
	RoutingKey string
	Message    amqp.Publishing
}

// NewPublishRequest returns a request publishing body as a persistent message.
func NewPublishRequest(exchange, routingKey string, body []byte) PublishRequest {
	return PublishRequest{
		Exchange:   exchange,
		RoutingKey: routingKey,
		Message: amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	}
}

// Outcome is how the broker answered a publish.
type Outcome int

const (
	// OutcomeFailed means the message could not be sent or the answer never came.
	OutcomeFailed Outcome = iota
	// OutcomeAcked means the broker took responsibility for the message.
	OutcomeAcked
	// OutcomeNacked means the broker refused the message.
	OutcomeNacked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAcked:
		return "acked"
	case OutcomeNacked:
		return "nacked"
	default:
		return "failed"
	}
}

// ConfirmationResult is the outcome of one Publish.
type ConfirmationResult struct {
	Outcome     Outcome
	DeliveryTag uint64
	MessageID   string
}

// Acknowledged reports whether the broker positively confirmed the message.
func (r ConfirmationResult) Acknowledged() bool {
	return r.Outcome == OutcomeAcked
}

// Publish sends the message and waits for the broker confirmation. The result
// is acknowledged only when the broker acked; any other outcome comes with a
// *PublishError and the message must be considered not delivered.
// Publish never retries.
func (c *Channel) Publish(ctx context.Context, req PublishRequest, opts ...PublishOption) (ConfirmationResult, error) {
	publishCfg := DefaultPublishConfig
	for _, opt := range opts {
		opt(&publishCfg)
	}

	msg := req.Message
	if publishCfg.TTL != "" {
		msg.Expiration = publishCfg.TTL
	}
	headers := cloneTable(msg.Headers)
	if headers == nil {
		headers = make(amqp.Table, len(publishCfg.MessageHeaders))
	}
	for k, v := range publishCfg.MessageHeaders {
		headers[k] = v
	}
	if msg.MessageId == "" {
		msg.MessageId = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	ctx, span := c.tracer.Start(ctx, "rabbitmq.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", req.Exchange),
			attribute.String("messaging.rabbitmq.destination.routing_key", req.RoutingKey),
			attribute.String("messaging.message.id", msg.MessageId),
		),
	)
	defer span.End()

	msg.Headers = opentelemetry.InjectTraceIntoMessageHeader(ctx, headers)

	if _, ok := ctx.Deadline(); !ok && publishCfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishCfg.Timeout)
		defer cancel()
	}

	result := ConfirmationResult{Outcome: OutcomeFailed, MessageID: msg.MessageId}
	fail := func(err error) (ConfirmationResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, result.Outcome.String())
		c.logger.Error("Failed to publish the message",
			slog.Any("err", err),
			slog.String("exchange_name", req.Exchange),
			slog.String("routing_key", req.RoutingKey),
		)
		return result, &PublishError{Exchange: req.Exchange, RoutingKey: req.RoutingKey, Err: err}
	}

	if c.IsClosed() {
		return fail(ErrChannelClosed)
	}

	confirmation, err := c.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		req.Exchange,
		req.RoutingKey,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return fail(err)
	}
	result.DeliveryTag = confirmation.DeliveryTag()
	span.SetAttributes(attribute.Int64("messaging.rabbitmq.delivery_tag", int64(result.DeliveryTag)))

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(ErrPublishTimeout, err)
		}
		return fail(err)
	}
	if !acked {
		// Pending confirmations are nacked when the channel goes away.
		if c.IsClosed() {
			return fail(ErrChannelClosed)
		}
		result.Outcome = OutcomeNacked
		return fail(ErrPublishNotConfirmed)
	}

	result.Outcome = OutcomeAcked
	c.logger.Debug("Message confirmed",
		slog.String("exchange_name", req.Exchange),
		slog.String("routing_key", req.RoutingKey),
		slog.Uint64("delivery_tag", result.DeliveryTag),
	)
	return result, nil
}
