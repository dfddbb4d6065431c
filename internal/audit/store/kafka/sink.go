// Package kafka forwards audit events to a Kafka topic as JSON, keyed by
// the affected user so one user's events stay ordered.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"kycportal/internal/audit"
)

// Producer is the subset of the platform producer the sink needs.
type Producer interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type Sink struct {
	producer Producer
}

func NewSink(producer Producer) *Sink {
	return &Sink{producer: producer}
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	key := string(event.UserID)
	if key == "" {
		key = event.ID
	}
	if err := s.producer.Publish(ctx, key, payload); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}
