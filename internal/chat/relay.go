package chat

import (
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
)

const subjectPrefix = "alias.chat."

// Relay publishes frames through NATS so every server process delivers them
// to its own subscribers.
type Relay struct {
	nc     *nats.Conn
	broker *Broker
	sub    *nats.Subscription
	logger *slog.Logger
}

func NewRelay(nc *nats.Conn, broker *Broker, logger *slog.Logger) (*Relay, error) {
	r := &Relay{nc: nc, broker: broker, logger: logger}
	sub, err := nc.Subscribe(subjectPrefix+">", func(msg *nats.Msg) {
		channel := strings.TrimPrefix(msg.Subject, subjectPrefix)
		_ = r.broker.Publish(channel, msg.Data)
	})
	if err != nil {
		return nil, err
	}
	r.sub = sub
	return r, nil
}

func (r *Relay) Publish(channel string, data []byte) error {
	return r.nc.Publish(subjectPrefix+channel, data)
}

func (r *Relay) Close() error {
	return r.sub.Unsubscribe()
}
