package persistence

import (
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// NATS wraps a core NATS connection used for event fan-out.
type NATS struct {
	Conn *nats.Conn
}

// NewNATS connects when a URL is configured. Connection failures are logged
// and leave forwarding disabled.
func NewNATS(cfg config.NATSConfig, appName string, logger *zap.Logger) *NATS {
	if cfg.URL == "" {
		return &NATS{}
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(appName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500*time.Millisecond),
		nats.Timeout(3*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		logger.Warn("unable to reach nats; event forwarding disabled", zap.Error(err))
		return &NATS{}
	}

	logger.Info("connected to nats", zap.String("url", conn.ConnectedUrl()))
	return &NATS{Conn: conn}
}

// Close drains the connection.
func (n *NATS) Close() {
	if n != nil && n.Conn != nil {
		_ = n.Conn.Drain()
	}
}

// Ping reports whether the connection is usable.
func (n *NATS) Ping() error {
	if n == nil || n.Conn == nil {
		return errors.New("nats not configured")
	}
	if !n.Conn.IsConnected() {
		return errors.New("nats disconnected")
	}
	return nil
}
