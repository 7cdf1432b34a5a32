// Package middleware hands the shared RabbitMQ channel to HTTP handlers.
//
// The middleware only stores a reference to an Acquirer in the request
// context. No connection is made per request: the first handler that
// acquires a channel triggers the establishment and later ones are served
// from the client cache.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	rabbitmq "github.com/connectfit-team/rabbitmq-channel"
)

const acquirerKey = "rabbitmq.acquirer"

// RequestIDHeader is read to tag the middleware log line. A random ID is used
// when the request carries none.
const RequestIDHeader = "X-Request-Id"

type contextKey struct{}

// Acquirer returns a channel with a topology declared on it.
// *rabbitmq.Client implements it.
type Acquirer interface {
	AcquireChannel(ctx context.Context, t rabbitmq.Topology) (*rabbitmq.Channel, error)
}

var _ Acquirer = (*rabbitmq.Client)(nil)

// Static returns an Acquirer always handing out ch, whose topology was
// declared when it was established.
func Static(ch *rabbitmq.Channel) Acquirer {
	return staticAcquirer{ch: ch}
}

type staticAcquirer struct {
	ch *rabbitmq.Channel
}

func (s staticAcquirer) AcquireChannel(ctx context.Context, _ rabbitmq.Topology) (*rabbitmq.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.ch == nil || s.ch.IsClosed() {
		return nil, rabbitmq.ErrChannelClosed
	}
	return s.ch, nil
}

// Gin stores acq in the gin context and in the request context, then runs the
// rest of the chain. The response and c.Errors are left to the handlers.
// A nil logger means slog.Default().
func Gin(acq Acquirer, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		c = storeAcquirer(c, acq, logger)

		// Forward request to the next endpoint handler
		c.Next()
	}
}

// storeAcquirer stores the acquirer to the request context
func storeAcquirer(c *gin.Context, acq Acquirer, logger *slog.Logger) *gin.Context {
	logPreChain(logger, c.Request)

	c.Set(acquirerKey, acq)
	c.Request = c.Request.WithContext(NewContext(c.Request.Context(), acq))

	return c
}

// Handler is the net/http counterpart of Gin.
func Handler(acq Acquirer, logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logPreChain(logger, r)
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), acq)))
	})
}

func logPreChain(logger *slog.Logger, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	logger.Debug("Pre chain", slog.String("request_id", id), slog.String("path", r.URL.Path))
}

// NewContext returns a copy of ctx carrying acq.
func NewContext(ctx context.Context, acq Acquirer) context.Context {
	return context.WithValue(ctx, contextKey{}, acq)
}

// FromContext extracts the acquirer stored by Gin, Handler or NewContext.
func FromContext(ctx context.Context) (Acquirer, bool) {
	acq, ok := ctx.Value(contextKey{}).(Acquirer)
	return acq, ok
}

// FromGin extracts the acquirer stored by Gin.
func FromGin(c *gin.Context) (Acquirer, bool) {
	v, ok := c.Get(acquirerKey)
	if !ok {
		return nil, false
	}
	acq, ok := v.(Acquirer)
	return acq, ok
}
