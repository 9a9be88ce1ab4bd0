package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultSubject is the NATS subject enrichment requests travel on.
	DefaultSubject = "wardrobe.analyze"

	natsConnectTimeout = 2 * time.Second
	natsReconnectWait  = 2 * time.Second
	natsMaxReconnects  = 60
)

// NATSQueue is a broker-backed dispatcher for multi-process deployments.
// Consumers join the "workers" queue group so each request is handled by
// one worker, at least once.
type NATSQueue struct {
	conn    *nats.Conn
	subject string
	analyze AnalyzeFunc
}

var _ Dispatcher = (*NATSQueue)(nil)

// NewNATSQueue connects to the broker at url.
func NewNATSQueue(url, subject string, analyze AnalyzeFunc) (*NATSQueue, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(
		url,
		nats.Name("wardrobe"),
		nats.Timeout(natsConnectTimeout),
		nats.ReconnectWait(natsReconnectWait),
		nats.MaxReconnects(natsMaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSQueue{conn: conn, subject: subject, analyze: analyze}, nil
}

// Enqueue publishes an enrichment request.
func (q *NATSQueue) Enqueue(_ context.Context, itemID string) error {
	if err := q.conn.Publish(q.subject, []byte(itemID)); err != nil {
		return fmt.Errorf("failed to publish enrichment request: %w", err)
	}
	return nil
}

// Run subscribes to the queue group and handles requests until the context
// is cancelled, then drains the subscription.
func (q *NATSQueue) Run(ctx context.Context) error {
	sub, err := q.conn.QueueSubscribe(q.subject, "workers", func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		itemID := string(msg.Data)
		if err := q.analyze(ctx, itemID); err != nil {
			log.Error().Err(err).Str("itemID", itemID).Msg("deferred enrichment failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("failed to flush nats connection: %w", err)
	}
	log.Info().Str("subject", q.subject).Msg("nats enrichment consumer started")

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		return fmt.Errorf("failed to drain subscription: %w", err)
	}
	return nil
}

// Close closes the broker connection.
func (q *NATSQueue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}
