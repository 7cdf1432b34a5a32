package rabbitmq

import (
	"net"
	"net/url"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func durationToMillisecondsString(duration time.Duration) string {
	return strconv.FormatInt(duration.Milliseconds(), 10)
}

// buildURL formats the broker URL from its parts when no URL was configured.
func buildURL(cfg ConnectionConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	u := &url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, cfg.Port),
		Path:   cfg.VirtualHost,
	}
	return u.String()
}

// SanitizeURL strips the password from a broker URL so it can be logged.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	return u.String()
}

func cloneTable(t amqp.Table) amqp.Table {
	if t == nil {
		return nil
	}
	c := make(amqp.Table, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}
