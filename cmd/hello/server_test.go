package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	rabbitmq "github.com/connectfit-team/rabbitmq-channel"
	"github.com/connectfit-team/rabbitmq-channel/rabbitmqtest"
)

var rawTopology = rabbitmq.NewTopology("raw", "raw_ex", "raw_2")

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, broker *rabbitmqtest.Broker, timeout time.Duration) *gin.Engine {
	t.Helper()
	client := rabbitmq.NewClient(
		rabbitmq.WithDialFunc(broker.Dial),
		rabbitmq.WithLogger(discardLogger()),
	)
	t.Cleanup(func() { _ = client.Close() })
	return newRouter(client, rawTopology, timeout, discardLogger())
}

func postMessage(router http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(body))
	r.Header.Set("Content-Type", "text/plain")
	router.ServeHTTP(w, r)
	return w
}

func TestHello(t *testing.T) {
	broker := rabbitmqtest.NewBroker()
	router := newTestRouter(t, broker, time.Second)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello, Lapin!", w.Body.String())
	assert.Equal(t, 0, broker.Dials())
}

func TestPublishMessage(t *testing.T) {
	t.Run("confirmed message is accepted", func(t *testing.T) {
		broker := rabbitmqtest.NewBroker()
		router := newTestRouter(t, broker, time.Second)

		w := postMessage(router, "hello")
		require.Equal(t, http.StatusAccepted, w.Code)

		var res publishResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, uint64(1), res.DeliveryTag)
		assert.NotEmpty(t, res.MessageID)

		published := broker.Published()
		require.Len(t, published, 1)
		assert.Equal(t, "raw_ex", published[0].Exchange)
		assert.Equal(t, "raw_2", published[0].RoutingKey)
		assert.Equal(t, []byte("hello"), published[0].Publishing.Body)
		assert.Equal(t, "text/plain", published[0].Publishing.ContentType)

		w = postMessage(router, "hello again")
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, 1, broker.Dials())
	})

	t.Run("empty body is rejected", func(t *testing.T) {
		broker := rabbitmqtest.NewBroker()
		router := newTestRouter(t, broker, time.Second)

		w := postMessage(router, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 0, broker.Dials())
	})

	t.Run("unreachable broker", func(t *testing.T) {
		broker := rabbitmqtest.NewBroker()
		broker.Fail(rabbitmqtest.OpDial, errors.New("connection refused"))
		router := newTestRouter(t, broker, time.Second)

		w := postMessage(router, "hello")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "transport error")
	})

	t.Run("nack", func(t *testing.T) {
		broker := rabbitmqtest.NewBroker()
		broker.SetNack(true)
		router := newTestRouter(t, broker, time.Second)

		w := postMessage(router, "hello")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "publish not confirmed")
	})

	t.Run("stalled establishment hits the request deadline", func(t *testing.T) {
		broker := rabbitmqtest.NewBroker()
		release := broker.Block()
		t.Cleanup(release)
		router := newTestRouter(t, broker, 20*time.Millisecond)

		w := postMessage(router, "hello")
		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	})

	t.Run("stalled confirmation hits the request deadline", func(t *testing.T) {
		broker := rabbitmqtest.NewBroker()
		broker.SetHoldConfirms(true)
		router := newTestRouter(t, broker, 50*time.Millisecond)

		w := postMessage(router, "hello")
		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Contains(t, w.Body.String(), "publish timeout")
	})
}

func TestAnnounce(t *testing.T) {
	broker := rabbitmqtest.NewBroker()
	client := rabbitmq.NewClient(rabbitmq.WithDialFunc(broker.Dial), rabbitmq.WithLogger(discardLogger()))
	t.Cleanup(func() { _ = client.Close() })

	res, err := announce(context.Background(), client, rawTopology)
	require.NoError(t, err)
	assert.True(t, res.Acknowledged())

	published := broker.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "hello from Gotham", string(published[0].Publishing.Body))
}

func TestServe(t *testing.T) {
	broker := rabbitmqtest.NewBroker()
	cfg := &Config{
		Listen:         "127.0.0.1:0",
		RequestTimeout: time.Second,
		Announce:       true,
		Topology:       rawTopology,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, discardLogger(), rabbitmq.WithDialFunc(broker.Dial))
	}()

	require.Eventually(t, func() bool { return len(broker.Published()) == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout):
		t.Fatal("server did not shut down")
	}
	assert.True(t, broker.Connections()[0].IsClosed())
}
