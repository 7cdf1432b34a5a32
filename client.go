package rabbitmq

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/singleflight"
)

const instrumentationName = "github.com/connectfit-team/rabbitmq-channel"

// sessionKey is the singleflight key of the establishment. Provisioning keys
// always contain a NUL byte so they cannot collide with it.
const sessionKey = "session"

// Client lazily establishes a single confirm-mode channel and shares it
// between all callers for the lifetime of the process.
//
// Establishment is single-flight: concurrent AcquireChannel calls on an empty
// cache wait for the same attempt and receive the same channel or the same
// error. A failed attempt leaves the cache empty so a later call may retry.
type Client struct {
	config      ClientConfig
	logger      *slog.Logger
	tracer      trace.Tracer
	establisher *Establisher
	provisioner *Provisioner

	group singleflight.Group

	mu      sync.Mutex
	channel *Channel
	closed  bool
}

// NewClient creates a new client instance. No connection is made until the
// first AcquireChannel.
func NewClient(opts ...Option) *Client {
	cfg := ClientConfig{
		ConnectionConfig: DefaultConnectionConfig,
		Logger:           slog.Default(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	// Format the URL if no URL provided through the options.
	cfg.ConnectionConfig.URL = buildURL(cfg.ConnectionConfig)

	tracer := otel.Tracer(instrumentationName)
	return &Client{
		config:      cfg,
		logger:      cfg.Logger,
		tracer:      tracer,
		establisher: NewEstablisher(cfg.ConnectionConfig, cfg.Dial, cfg.Logger, tracer),
		provisioner: NewProvisioner(cfg.Logger),
	}
}

// AcquireChannel returns the shared channel with t declared on it.
//
// When the channel is cached and t was already declared it returns
// immediately. Otherwise it waits for the single in-flight establishment
// and/or declaration of t. If ctx ends first AcquireChannel returns ctx.Err()
// while the shared attempt keeps running for the other callers.
func (c *Client) AcquireChannel(ctx context.Context, t Topology) (*Channel, error) {
	ch, err := c.cached()
	if err != nil {
		return nil, err
	}
	if ch != nil && ch.Provisioned(t) {
		return ch, nil
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "rabbitmq.acquire", trace.WithAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.rabbitmq.queue", t.Queue.Name),
		attribute.String("messaging.destination.name", t.Exchange.Name),
	))
	defer span.End()

	if ch == nil {
		ch, err = c.await(ctx, sessionKey, func() (*Channel, error) {
			return c.establish(t)
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "establish")
			return nil, err
		}
	}

	if !ch.Provisioned(t) {
		session := ch
		ch, err = c.await(ctx, provisionKey(session, t), func() (*Channel, error) {
			return c.provision(session, t)
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "provision")
			return nil, err
		}
	}

	return ch, nil
}

// await runs fn once per key across concurrent callers.
func (c *Client) await(ctx context.Context, key string, fn func() (*Channel, error)) (*Channel, error) {
	res := c.group.DoChan(key, func() (interface{}, error) {
		return fn()
	})
	select {
	case r := <-res:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Channel), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// provisionKey scopes a provisioning flight to one channel, so a caller never
// joins a flight still running on an evicted channel.
func provisionKey(ch *Channel, t Topology) string {
	return ch.ID + "\x00" + t.Key()
}

// establish opens a session and declares t on it before caching it, so the
// cache only ever holds a channel that served its first topology.
func (c *Client) establish(t Topology) (*Channel, error) {
	// A caller that missed the cache may lead a new flight after the previous
	// one stored its channel.
	ch, err := c.cached()
	if err != nil {
		return nil, err
	}
	if ch != nil {
		return ch, nil
	}

	ctx, cancel := c.establishContext()
	defer cancel()

	ch, err = c.establisher.Establish(ctx)
	if err != nil {
		c.logger.Error("Connection attempt failed", slog.Any("err", err))
		return nil, err
	}

	err = c.provisioner.Provision(ch.ch, t)
	if err != nil {
		c.logger.Error("Failed to declare the topology", slog.Any("err", err))
		_ = ch.Close()
		return nil, err
	}
	ch.markProvisioned(t)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = ch.Close()
		return nil, ErrClientClosed
	}
	c.channel = ch
	return ch, nil
}

func (c *Client) provision(ch *Channel, t Topology) (*Channel, error) {
	if ch.Provisioned(t) {
		return ch, nil
	}
	err := c.provisioner.Provision(ch.ch, t)
	if err != nil {
		c.logger.Error("Failed to declare the topology", slog.Any("err", err))
		return nil, err
	}
	ch.markProvisioned(t)
	return ch, nil
}

// establishContext bounds an establishment independently of the request that
// triggered it, since other requests may be waiting on the same attempt.
func (c *Client) establishContext() (context.Context, context.CancelFunc) {
	if c.config.ConnectionConfig.Timeout > 0 {
		return context.WithTimeout(context.Background(), c.config.ConnectionConfig.Timeout)
	}
	return context.WithCancel(context.Background())
}

// cached returns the cached channel, evicting it first if the session is gone.
func (c *Client) cached() (*Channel, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClientClosed
	}
	var stale *Channel
	if c.channel != nil && c.channel.IsClosed() {
		stale = c.channel
		c.channel = nil
	}
	ch := c.channel
	c.mu.Unlock()

	if stale != nil {
		c.logger.Debug("Evicting closed channel", slog.String("channel_id", stale.ID))
		// The connection may still be open when only the channel was closed.
		_ = stale.Close()
	}
	return ch, nil
}

// IsConnected reports whether an open channel is cached.
func (c *Client) IsConnected() bool {
	ch, err := c.cached()
	return err == nil && ch != nil
}

// Close closes the cached channel and its connection. Any later
// AcquireChannel returns ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	c.closed = true
	ch := c.channel
	c.channel = nil
	c.mu.Unlock()

	c.logger.Debug("Closing the client")
	if ch == nil {
		return nil
	}
	err := ch.Close()
	if err != nil {
		return err
	}
	c.logger.Debug("Successfully closed the client")
	return nil
}
