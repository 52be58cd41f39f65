package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher emits import notifications on JetStream. Publish errors
// propagate to the caller; a committed import whose notification cannot be
// delivered is reported as a failed operation.
type Publisher struct {
	js     nats.JetStreamContext
	logger zerolog.Logger
}

// NewPublisher derives a JetStream context from the connection and makes
// sure the stream exists.
func NewPublisher(conn *nats.Conn, logger zerolog.Logger) (*Publisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if err := ensureStream(js); err != nil {
		return nil, err
	}
	return &Publisher{js: js, logger: logger}, nil
}

func ensureStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(StreamName)
	if err == nil {
		return nil
	}
	if err != nats.ErrStreamNotFound {
		return fmt.Errorf("stream info: %w", err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"waybills.>"},
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", StreamName, err)
	}
	return nil
}

func (p *Publisher) PublishImported(ctx context.Context, event ImportedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal import event: %w", err)
	}
	if _, err := p.js.Publish(SubjectWaybillsImported, payload, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", SubjectWaybillsImported, err)
	}
	p.logger.Debug().
		Str("tenant", event.TenantID).
		Str("job_id", event.ImportJobID).
		Msg("import event published")
	return nil
}
