package model

import "time"

// ResourceEvent is published after a record has been persisted.
type ResourceEvent struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Resource   Resource  `json:"resource"`
	OccurredAt time.Time `json:"occurredAt"`
}

const (
	ResourceEventCreated = "created"

	ResourceStreamName     = "RESOURCES"
	ResourceStreamSubjects = "resources.>"
	ResourceCreatedSubject = "resources.created"
	ResourceStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
