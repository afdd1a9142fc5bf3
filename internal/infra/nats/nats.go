package natsclient

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/ResourceHub/config"
	"go.uber.org/zap"
)

const (
	connectionName  = "resourcehub"
	connectTimeout  = 5 * time.Second
	reconnectWait   = 2 * time.Second
	defaultNATSPort = 4222
)

// Connect opens the event bus connection and its JetStream context. The
// connection reconnects forever; state changes are logged on log.
func Connect(cfg config.NATSConfig, log *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := nats.Connect(buildURL(cfg), options(cfg, log)...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect %s: %w", buildURL(cfg), err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("nats: init jetstream: %w", err)
	}

	return conn, js, nil
}

func options(cfg config.NATSConfig, log *zap.Logger) []nats.Option {
	opts := []nats.Option{
		nats.Name(connectionName),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	return opts
}

func buildURL(cfg config.NATSConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = defaultNATSPort
	}
	return fmt.Sprintf("nats://%s:%d", host, port)
}
