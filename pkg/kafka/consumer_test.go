package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPull/pkg/logger"
)

type countingHandler struct {
	calls int
	errs  []error
}

func (h *countingHandler) Topic() string { return "runs" }

func (h *countingHandler) Handle(_ context.Context, _ []byte) error {
	h.calls++
	if len(h.errs) == 0 {
		return nil
	}
	err := h.errs[0]
	h.errs = h.errs[1:]
	return err
}

func newTestConsumer(t *testing.T, retries int) *Consumer {
	t.Helper()
	c, err := NewConsumer(logger.Nop(),
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(retries, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func TestConsumerRetriesTransientErrors(t *testing.T) {
	c := newTestConsumer(t, 3)
	h := &countingHandler{errs: []error{errors.New("boom"), errors.New("boom")}}

	attempts, err := c.handle(h, []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, h.calls)
}

func TestConsumerGivesUpAfterRetryMax(t *testing.T) {
	c := newTestConsumer(t, 2)
	boom := errors.New("boom")
	h := &countingHandler{errs: []error{boom, boom, boom, boom}}

	attempts, err := c.handle(h, nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
}

func TestConsumerDoesNotRetryPermanentErrors(t *testing.T) {
	c := newTestConsumer(t, 5)
	h := &countingHandler{errs: []error{Permanent(errors.New("bad payload"))}}

	attempts, err := c.handle(h, nil)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, attempts)
}

type panicHandler struct{}

func (panicHandler) Topic() string { return "runs" }
func (panicHandler) Handle(context.Context, []byte) error { panic("nil map") }

func TestConsumerRecoversHandlerPanic(t *testing.T) {
	c := newTestConsumer(t, 3)
	attempts, err := c.handle(panicHandler{}, nil)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, attempts)
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer(logger.Nop())
	require.Error(t, err)
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.LessOrEqual(t, d, 100*time.Millisecond)
		assert.Greater(t, d, time.Duration(0))
	}
}

func TestEncodeValue(t *testing.T) {
	b, err := EncodeValue(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	b, err = EncodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))
}
