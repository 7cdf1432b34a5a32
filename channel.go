package rabbitmq

import (
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/slog"
)

// Channel is a live confirm-mode channel and the session that owns it.
// It is safe for concurrent use: the broker sequences confirms per channel.
type Channel struct {
	// ID identifies the channel in logs. It is generated locally, the broker
	// side channel number is not exposed by amqp091.
	ID string

	conn   Connection
	ch     AMQPChannel
	logger *slog.Logger
	tracer trace.Tracer

	done      chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	provisioned map[string]struct{}
}

func newChannel(id string, conn Connection, ch AMQPChannel, logger *slog.Logger, tracer trace.Tracer) *Channel {
	return &Channel{
		ID:          id,
		conn:        conn,
		ch:          ch,
		logger:      logger.With(slog.String("channel_id", id)),
		tracer:      tracer,
		done:        make(chan struct{}),
		provisioned: make(map[string]struct{}),
	}
}

// Done returns a channel closed once the session is known to be gone.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// IsClosed reports whether the channel or its connection has been closed,
// locally or by the broker.
func (c *Channel) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
	}
	return c.ch.IsClosed() || c.conn.IsClosed()
}

// Provisioned reports whether t has already been declared on this channel.
func (c *Channel) Provisioned(t Topology) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.provisioned[t.Key()]
	return ok
}

func (c *Channel) markProvisioned(t Topology) {
	c.mu.Lock()
	c.provisioned[t.Key()] = struct{}{}
	c.mu.Unlock()
}

// Close closes the channel then its connection. The broker is told the close
// is normal (reply code 200).
func (c *Channel) Close() error {
	c.markClosed()

	var err error
	if !c.ch.IsClosed() {
		err = c.ch.Close()
	}
	if !c.conn.IsClosed() {
		if cerr := c.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (c *Channel) markClosed() {
	c.closeOnce.Do(func() { close(c.done) })
}

// monitor runs for the lifetime of the session, detached from any request.
// amqp091 sends heartbeats on its own; monitor reacts when they stop being
// answered or the broker closes the channel, then marks the handle closed so
// the next acquisition establishes a new session.
func (c *Channel) monitor(connClosed, chanClosed <-chan *amqp.Error) {
	var (
		err  *amqp.Error
		what string
	)
	select {
	case err = <-connClosed:
		what = "connection"
	case err = <-chanClosed:
		what = "channel"
	case <-c.done:
		c.logger.Debug("Session monitor stopped")
		return
	}
	c.markClosed()

	if err == nil {
		c.logger.Debug("Session closed", slog.String("closed", what))
		return
	}
	c.logger.Error("Session closed by the server",
		slog.String("closed", what),
		slog.Int("code", err.Code),
		slog.String("reason", err.Reason),
		slog.Any("err", err),
	)
}
