package rabbitmq

import (
	"context"
	"errors"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/slog"
)

// Establisher opens a session to the broker and a confirm-mode channel on it.
// It does not cache anything.
type Establisher struct {
	config ConnectionConfig
	url    string
	dial   DialFunc
	logger *slog.Logger
	tracer trace.Tracer
}

// NewEstablisher returns an Establisher dialing with dial, or DialAMQP when dial is nil.
func NewEstablisher(cfg ConnectionConfig, dial DialFunc, logger *slog.Logger, tracer trace.Tracer) *Establisher {
	if dial == nil {
		dial = DialAMQP
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("")
	}
	return &Establisher{
		config: cfg,
		url:    buildURL(cfg),
		dial:   dial,
		logger: logger,
		tracer: tracer,
	}
}

// Establish connects, performs the handshake, starts the session monitor and
// opens a channel in confirm mode. Everything opened is closed again when a
// later step fails.
func (e *Establisher) Establish(ctx context.Context) (*Channel, error) {
	e.logger.Debug("Attempting to connect to the broker",
		slog.String("broker_url", SanitizeURL(e.url)),
	)

	conn, err := e.dial(ctx, e.url, e.config)
	if err != nil {
		var (
			transportErr *TransportError
			handshakeErr *HandshakeError
		)
		if !errors.As(err, &transportErr) && !errors.As(err, &handshakeErr) && !errors.Is(err, ErrInvalidConfiguration) {
			err = &TransportError{Addr: SanitizeURL(e.url), Err: err}
		}
		return nil, err
	}
	e.logger.Debug("Successfully connected")

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, &ChannelError{Op: "open", Err: err}
	}

	err = ch.Confirm(false)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, &ChannelError{Op: "confirm", Err: err}
	}

	channel := newChannel(uuid.NewString(), conn, ch, e.logger, e.tracer)

	// Registered before returning so a close racing with the caller is not missed.
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chanClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	go channel.monitor(connClosed, chanClosed)

	channel.logger.Debug("Successfully initialized channel")
	return channel, nil
}
