package queue

import (
	"context"
	"encoding/json"
)

// Job handles every message of one type.
type Job interface {
	// Type is the message type routed to this job.
	Type() string

	// Handle processes one payload. Errors that expose Permanent() true skip the
	// retry schedule and go straight to the dead letter list.
	Handle(ctx context.Context, payload json.RawMessage) error
}
