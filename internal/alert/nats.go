package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// SubjectDecision is the NATS subject decision alerts are published to.
const SubjectDecision = "moderation.decision"

// NATSNotifier publishes decision summaries to a NATS subject so other
// services (dashboards, escalation bots) can subscribe.
type NATSNotifier struct {
	conn *nats.Conn
}

// NewNATSNotifier connects to the NATS server at url.
func NewNATSNotifier(url string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("modguard"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("alert: nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("alert: nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("alert: nats connected")
	return &NATSNotifier{conn: nc}, nil
}

// Send publishes the summary to the decision subject.
func (n *NATSNotifier) Send(ctx context.Context, summary string) error {
	if err := n.conn.Publish(SubjectDecision, []byte(summary)); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Close drains the connection.
func (n *NATSNotifier) Close() {
	if err := n.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("alert: nats drain failed")
	}
}
