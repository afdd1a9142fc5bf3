package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sifan077/ResourceHub/internal/app/model"
)

// ResourcePublisher announces persisted records to downstream consumers.
type ResourcePublisher interface {
	PublishCreated(ctx context.Context, resource model.Resource) error
}

type noopPublisher struct{}

func (noopPublisher) PublishCreated(context.Context, model.Resource) error { return nil }

// JetStream is the part of nats.JetStreamContext the publisher uses.
type JetStream interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSResourcePublisher publishes resource events to NATS JetStream.
type NATSResourcePublisher struct {
	js JetStream
}

// NewNATSResourcePublisher creates a publisher on js.
func NewNATSResourcePublisher(js JetStream) *NATSResourcePublisher {
	return &NATSResourcePublisher{js: js}
}

// EnsureStream creates the resource stream if it does not exist yet.
func (p *NATSResourcePublisher) EnsureStream() error {
	if _, err := p.js.StreamInfo(model.ResourceStreamName); err == nil {
		return nil
	}

	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:     model.ResourceStreamName,
		Subjects: []string{model.ResourceStreamSubjects},
		MaxBytes: model.ResourceStreamMaxBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PublishCreated publishes a created event for resource.
func (p *NATSResourcePublisher) PublishCreated(ctx context.Context, resource model.Resource) error {
	event := model.ResourceEvent{
		ID:         uuid.New().String(),
		Kind:       model.ResourceEventCreated,
		Resource:   resource,
		OccurredAt: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// the event id doubles as the JetStream dedup key
	_, err = p.js.Publish(model.ResourceCreatedSubject, data, nats.Context(ctx), nats.MsgId(event.ID))
	return err
}
