package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPull/internal/domain/models"
	pkgkafka "TrendPull/pkg/kafka"
	"TrendPull/pkg/logger"
)

type fakeStatus struct {
	mu      sync.Mutex
	history []models.RunStatus
	err     error
}

func (s *fakeStatus) SetStatus(_ context.Context, st models.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.history = append(s.history, st)
	return nil
}

func (s *fakeStatus) GetStatus(_ context.Context, id string) (*models.RunStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].ID == id {
			st := s.history[i]
			return &st, true, nil
		}
	}
	return nil, false, nil
}

func (s *fakeStatus) states() []models.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RunState, len(s.history))
	for i, st := range s.history {
		out[i] = st.State
	}
	return out
}

type fakeEnqueuer struct {
	typ     string
	id      string
	payload interface{}
	err     error
}

func (e *fakeEnqueuer) Enqueue(_ context.Context, typ, id string, payload interface{}) (string, error) {
	e.typ, e.id, e.payload = typ, id, payload
	return id, e.err
}

const jobRunID = "8d3c5d8e-5f2a-4d4e-9d4b-6f0c3e2a1b7c"

func TestRunJobDone(t *testing.T) {
	st := &fakeStatus{}
	store := &fakeStore{}
	job := NewRunJob(newRunUseCase(func(d *RunDeps) { d.Store = store }), st, logger.Nop())
	assert.Equal(t, RunJobType, job.Type())

	payload, err := json.Marshal(models.RunRequest{RunID: jobRunID, Symbol: "BTC", Bars: wave(40)})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), payload))

	assert.Equal(t, []models.RunState{models.RunRunning, models.RunDone}, st.states())
	last, ok, _ := st.GetStatus(context.Background(), jobRunID)
	require.True(t, ok)
	require.NotNil(t, last.Summary)
	assert.Equal(t, jobRunID, last.Summary.Run.ID)
	require.Len(t, store.runs, 1)
	assert.Equal(t, jobRunID, store.runs[0].ID)
}

func TestRunJobFailures(t *testing.T) {
	t.Run("input error is permanent", func(t *testing.T) {
		st := &fakeStatus{}
		job := NewRunJob(newRunUseCase(nil), st, logger.Nop())
		payload := []byte(`{"run_id":"` + jobRunID + `","symbol":"BTC"}`)

		err := job.Handle(context.Background(), payload)
		require.ErrorIs(t, err, ErrNoBarSource)
		assert.True(t, pkgkafka.IsPermanent(err))
		assert.Equal(t, []models.RunState{models.RunRunning, models.RunFailed}, st.states())
	})

	t.Run("outage is retried", func(t *testing.T) {
		st := &fakeStatus{}
		uc := newRunUseCase(func(d *RunDeps) { d.Store = &fakeStore{err: errors.New("connection refused")} })
		payload, _ := json.Marshal(models.RunRequest{RunID: jobRunID, Symbol: "BTC", Bars: wave(40)})

		err := NewRunJob(uc, st, logger.Nop()).Handle(context.Background(), payload)
		require.Error(t, err)
		assert.False(t, pkgkafka.IsPermanent(err))
		assert.Equal(t, []models.RunState{models.RunRunning}, st.states())
	})

	t.Run("malformed payload", func(t *testing.T) {
		err := NewRunJob(newRunUseCase(nil), nil, logger.Nop()).Handle(context.Background(), []byte(`{`))
		assert.True(t, pkgkafka.IsPermanent(err))
	})

	t.Run("status errors are not fatal", func(t *testing.T) {
		st := &fakeStatus{err: errors.New("redis down")}
		payload, _ := json.Marshal(models.RunRequest{RunID: jobRunID, Symbol: "BTC", Bars: wave(40)})
		assert.NoError(t, NewRunJob(newRunUseCase(nil), st, logger.Nop()).Handle(context.Background(), payload))
	})
}

func TestRunQueueSubmit(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, NewRunQueue(nil, nil))

	var disabled *RunQueue
	_, err := disabled.Submit(ctx, models.RunRequest{Symbol: "BTC"})
	assert.ErrorIs(t, err, ErrQueueUnavailable)
	_, _, err = disabled.Status(ctx, "x")
	assert.ErrorIs(t, err, ErrQueueUnavailable)

	q := &fakeEnqueuer{}
	st := &fakeStatus{}
	rq := NewRunQueue(q, st)

	_, err = rq.Submit(ctx, models.RunRequest{})
	var se *models.SchemaError
	assert.ErrorAs(t, err, &se)

	status, err := rq.Submit(ctx, models.RunRequest{Symbol: "BTC"})
	require.NoError(t, err)
	assert.Equal(t, models.RunQueued, status.State)
	assert.NotEmpty(t, status.ID)
	assert.Equal(t, RunJobType, q.typ)
	assert.Equal(t, status.ID, q.id)
	assert.Equal(t, status.ID, q.payload.(models.RunRequest).RunID)

	got, ok, err := rq.Status(ctx, status.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.RunQueued, got.State)

	q.err = errors.New("redis down")
	_, err = rq.Submit(ctx, models.RunRequest{Symbol: "BTC"})
	assert.Error(t, err)
}
