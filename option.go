package rabbitmq

import (
	"time"

	"golang.org/x/exp/slog"
)

// Option are options used to configure the client.
type Option func(*ClientConfig)

// WithLogger configures the structured logger used by the client and by the
// sessions it establishes.
func WithLogger(logger *slog.Logger) Option {
	return func(cc *ClientConfig) {
		cc.Logger = logger
	}
}

// WithURL configures the URL the client will use to dial with the server.
// If this option is used, username, password, host and virtual host options
// will be ignored.
func WithURL(url string) Option {
	return func(cc *ClientConfig) {
		cc.ConnectionConfig.URL = url
	}
}

// WithUsername configures the username the client will use to connect to the server.
// This option is ignored if you supplied an URL in the option.
func WithUsername(username string) Option {
	return func(cc *ClientConfig) {
		cc.ConnectionConfig.Username = username
	}
}

// WithPassword configures the password the client will use to connect to the server.
// This option is ignored if you supplied an URL in the option.
func WithPassword(password string) Option {
	return func(cc *ClientConfig) {
		cc.ConnectionConfig.Password = password
	}
}

// WithHost configures the host the client will use to connect to the server.
// This option is ignored if you supplied an URL in the option.
func WithHost(host string) Option {
	return func(cc *ClientConfig) {
		cc.ConnectionConfig.Host = host
	}
}

// WithPort configures the port the client will use to connect to the server.
// This option is ignored if you supplied an URL in the option.
func WithPort(port string) Option {
	return func(cc *ClientConfig) {
		cc.ConnectionConfig.Port = port
	}
}

// WithVirtualHost configures the virtual host the client will use to connect to the server.
// This option is ignored if you supplied an URL in the option.
func WithVirtualHost(vhost string) Option {
	return func(cc *ClientConfig) {
		cc.ConnectionConfig.VirtualHost = vhost
	}
}

// WithConnectionTimeout configures how long a single establishment attempt
// (connect, handshake, channel and topology) may take.
func WithConnectionTimeout(timeout time.Duration) Option {
	return func(cc *ClientConfig) {
		cc.ConnectionConfig.Timeout = timeout
	}
}

// WithHeartbeat configures the heartbeat interval proposed to the server.
func WithHeartbeat(interval time.Duration) Option {
	return func(cc *ClientConfig) {
		cc.ConnectionConfig.Heartbeat = interval
	}
}

// WithFrameSize configures the maximum frame size proposed to the server.
func WithFrameSize(size int) Option {
	return func(cc *ClientConfig) {
		cc.ConnectionConfig.FrameSize = size
	}
}

// WithLocale configures the locale sent during the handshake.
func WithLocale(locale string) Option {
	return func(cc *ClientConfig) {
		cc.ConnectionConfig.Locale = locale
	}
}

// WithConnectionName configures the connection name shown in the broker management UI.
func WithConnectionName(name string) Option {
	return func(cc *ClientConfig) {
		cc.ConnectionConfig.Name = name
	}
}

// WithDialFunc replaces the function used to open sessions. It defaults to DialAMQP.
func WithDialFunc(dial DialFunc) Option {
	return func(cc *ClientConfig) {
		cc.Dial = dial
	}
}
