package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"

	rabbitmq "github.com/connectfit-team/rabbitmq-channel"
	"github.com/connectfit-team/rabbitmq-channel/middleware"
)

const greeting = "Hello, Lapin!"

type publishResponse struct {
	DeliveryTag uint64 `json:"delivery_tag"`
	MessageID   string `json:"message_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handlers struct {
	topology rabbitmq.Topology
	logger   *slog.Logger
}

// newRouter returns the routes of the hello server. Every request runs under
// timeout so a stalled handshake or confirmation cannot hold it forever.
func newRouter(acq middleware.Acquirer, topology rabbitmq.Topology, timeout time.Duration, logger *slog.Logger) *gin.Engine {
	h := &handlers{topology: topology, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestTimeout(timeout), middleware.Gin(acq, logger))
	r.GET("/", hello)
	r.POST("/messages", h.publish)

	return r
}

func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func hello(c *gin.Context) {
	c.String(http.StatusOK, greeting)
}

// publish sends the request body on the configured topology and answers once
// the broker confirmed it.
func (h *handlers) publish(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "empty message body"})
		return
	}

	acq, ok := middleware.FromGin(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "no channel acquirer configured"})
		return
	}

	ctx := c.Request.Context()
	ch, err := acq.AcquireChannel(ctx, h.topology)
	if err != nil {
		h.logger.Error("Failed to acquire a channel", slog.Any("err", err))
		c.JSON(statusFor(err, http.StatusServiceUnavailable), errorResponse{Error: err.Error()})
		return
	}

	req := rabbitmq.NewPublishRequest(h.topology.Exchange.Name, h.topology.RoutingKey, body)
	req.Message.ContentType = c.ContentType()
	res, err := ch.Publish(ctx, req)
	if err != nil {
		c.JSON(statusFor(err, http.StatusBadGateway), errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, publishResponse{DeliveryTag: res.DeliveryTag, MessageID: res.MessageID})
}

func statusFor(err error, fallback int) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return fallback
}

// announce publishes a greeting once at startup.
func announce(ctx context.Context, acq middleware.Acquirer, topology rabbitmq.Topology) (rabbitmq.ConfirmationResult, error) {
	ch, err := acq.AcquireChannel(ctx, topology)
	if err != nil {
		return rabbitmq.ConfirmationResult{}, err
	}
	req := rabbitmq.NewPublishRequest(topology.Exchange.Name, topology.RoutingKey, []byte("hello from Gotham"))
	req.Message.ContentType = "text/plain"
	return ch.Publish(ctx, req)
}
