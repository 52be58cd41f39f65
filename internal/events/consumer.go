package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const auditDurableName = "import-audits"

// AuditConsumer is a durable JetStream consumer that records every import
// notification as an ImportAudit row. Failed writes are negatively
// acknowledged so the server redelivers them.
type AuditConsumer struct {
	js     nats.JetStreamContext
	store  AuditStore
	logger zerolog.Logger
	sub    *nats.Subscription
}

func NewAuditConsumer(conn *nats.Conn, store AuditStore, logger zerolog.Logger) (*AuditConsumer, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if err := ensureStream(js); err != nil {
		return nil, err
	}
	return &AuditConsumer{
		js:     js,
		store:  store,
		logger: logger.With().Str("component", "audit-consumer").Logger(),
	}, nil
}

// Start subscribes and processes messages until Close.
func (c *AuditConsumer) Start(ctx context.Context) error {
	sub, err := c.js.Subscribe(SubjectWaybillsImported, func(msg *nats.Msg) {
		if err := c.handle(ctx, msg.Data); err != nil {
			c.logger.Error().Err(err).Msg("audit write failed, requesting redelivery")
			if nakErr := msg.Nak(); nakErr != nil {
				c.logger.Error().Err(nakErr).Msg("nak failed")
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			c.logger.Error().Err(ackErr).Msg("ack failed")
		}
	}, nats.Durable(auditDurableName), nats.ManualAck())
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectWaybillsImported, err)
	}
	c.sub = sub
	return nil
}

func (c *AuditConsumer) handle(ctx context.Context, data []byte) error {
	var event ImportedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		// A malformed message never becomes valid; log and drop it.
		c.logger.Error().Err(err).Msg("dropping malformed import event")
		return nil
	}
	if err := c.store.Insert(ctx, NewAuditFromEvent(event)); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	c.logger.Debug().
		Str("tenant", event.TenantID).
		Str("job_id", event.ImportJobID).
		Msg("import event recorded")
	return nil
}

// Close drains the subscription.
func (c *AuditConsumer) Close() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Drain()
}
