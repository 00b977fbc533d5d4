package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Config controls workers and retries.
type Config struct {
	Workers     int
	RetryLimit  int
	RetryDelay  time.Duration
	PollTimeout time.Duration
	KeyPrefix   string
}

func (c *Config) withDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "trendpull:queue"
	}
}

// Message is the envelope stored in Redis.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}

// Decode unmarshals a payload into T.
func Decode[T any](payload json.RawMessage) (*T, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode %T payload: %w", out, err)
	}
	return &out, nil
}

type action int

const (
	actionDone action = iota
	actionRetry
	actionDead
	actionRequeue
)

// nextAction decides what happens to msg after its handler returned err.
func nextAction(msg Message, err error, retryLimit int) action {
	switch {
	case err == nil:
		return actionDone
	case errors.Is(err, context.Canceled):
		return actionRequeue
	case errors.Is(err, errNoJob):
		return actionDead
	case isPermanent(err):
		return actionDead
	case msg.Attempts < retryLimit:
		return actionRetry
	default:
		return actionDead
	}
}

var errNoJob = errors.New("no job registered")

func isPermanent(err error) bool {
	var p interface{ Permanent() bool }
	return errors.As(err, &p) && p.Permanent()
}
