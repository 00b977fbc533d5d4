package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/google/uuid"

	"TrendPull/internal/domain/models"
	domrepo "TrendPull/internal/domain/repository"
	pkgkafka "TrendPull/pkg/kafka"
	"TrendPull/pkg/logger"
	"TrendPull/pkg/queue"
)

// RunJobType is the queue message type of an asynchronous run.
const RunJobType = "run"

// ErrQueueUnavailable is returned by Submit when no queue is wired.
var ErrQueueUnavailable = errors.New("run queue not configured")

// Enqueuer pushes a typed message onto a work queue and returns its id.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ, id string, payload interface{}) (string, error)
}

// RunJob executes queued run requests and records their status.
type RunJob struct {
	runs   *RunUseCase
	status domrepo.RunStatusStore
	log    *logger.Logger
}

func NewRunJob(runs *RunUseCase, status domrepo.RunStatusStore, log *logger.Logger) *RunJob {
	return &RunJob{runs: runs, status: status, log: log}
}

func (j *RunJob) Type() string { return RunJobType }

// Handle runs one request. Input errors are permanent and end in the failed state;
// other failures stay running so the queue retry can pick them up.
func (j *RunJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.Decode[models.RunRequest](payload)
	if err != nil {
		return pkgkafka.Permanent(err)
	}
	j.setStatus(ctx, models.RunStatus{ID: req.RunID, State: models.RunRunning})

	out, err := j.runs.Execute(ctx, *req)
	if err != nil {
		if IsInputError(err) {
			j.setStatus(ctx, models.RunStatus{ID: req.RunID, State: models.RunFailed, Error: err.Error()})
			return pkgkafka.Permanent(err)
		}
		return err
	}
	j.setStatus(ctx, models.RunStatus{ID: req.RunID, State: models.RunDone, Summary: &out.Summary})
	return nil
}

func (j *RunJob) setStatus(ctx context.Context, st models.RunStatus) {
	if j.status == nil || st.ID == "" {
		return
	}
	st.UpdatedAt = time.Now().UTC()
	if err := j.status.SetStatus(ctx, st); err != nil {
		j.log.Warn("set run status", logger.String("run_id", st.ID), logger.String("state", string(st.State)), logger.Error(err))
	}
}

// RunQueue accepts run requests for asynchronous execution.
type RunQueue struct {
	q      Enqueuer
	status domrepo.RunStatusStore
}

// NewRunQueue returns nil when q is nil so callers can treat a missing queue as disabled.
func NewRunQueue(q Enqueuer, status domrepo.RunStatusStore) *RunQueue {
	if q == nil {
		return nil
	}
	return &RunQueue{q: q, status: status}
}

// Submit assigns a run id, records the queued state and enqueues req.
func (rq *RunQueue) Submit(ctx context.Context, req models.RunRequest) (models.RunStatus, error) {
	if rq == nil {
		return models.RunStatus{}, ErrQueueUnavailable
	}
	if req.Symbol == "" {
		return models.RunStatus{}, &models.SchemaError{Column: "symbol", Row: -1, Reason: "symbol required"}
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	st := models.RunStatus{ID: req.RunID, State: models.RunQueued, UpdatedAt: time.Now().UTC()}
	if rq.status != nil {
		if err := rq.status.SetStatus(ctx, st); err != nil {
			return models.RunStatus{}, fmt.Errorf("record queued run: %w", err)
		}
	}
	if _, err := rq.q.Enqueue(ctx, RunJobType, req.RunID, req); err != nil {
		return models.RunStatus{}, fmt.Errorf("enqueue run: %w", err)
	}
	return st, nil
}

// Status returns the recorded state of runID.
func (rq *RunQueue) Status(ctx context.Context, runID string) (*models.RunStatus, bool, error) {
	if rq == nil || rq.status == nil {
		return nil, false, ErrQueueUnavailable
	}
	return rq.status.GetStatus(ctx, runID)
}

var _ queue.Job = (*RunJob)(nil)

// decodeRunRequest applies struct defaults before b is decoded.
func decodeRunRequest(b []byte) (models.RunRequest, error) {
	var req models.RunRequest
	if err := defaults.Set(&req); err != nil {
		return req, fmt.Errorf("defaults: %w", err)
	}
	if err := json.Unmarshal(b, &req); err != nil {
		return req, fmt.Errorf("decode run request: %w", err)
	}
	return req, nil
}
