package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"TrendPull/pkg/logger"
)

// RedisQueue is a list-backed job queue with a sorted-set retry schedule and a
// dead letter list.
type RedisQueue struct {
	log    *logger.Logger
	cfg    Config
	client *redis.Client

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisQueue creates a stopped queue. Register jobs before Start.
func NewRedisQueue(log *logger.Logger, client *redis.Client, cfg Config) *RedisQueue {
	cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisQueue{
		log:    log,
		cfg:    cfg,
		client: client,
		jobs:   make(map[string]Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register routes messages of job.Type() to job. A second job for the same type is ignored.
func (q *RedisQueue) Register(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.jobs[job.Type()]; ok {
		q.log.Warn("job already registered", logger.String("type", job.Type()))
		return
	}
	q.jobs[job.Type()] = job
	q.log.Info("job registered", logger.String("type", job.Type()))
}

// Start pings Redis and launches the workers and the retry mover.
func (q *RedisQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}

	ctx, cancel := context.WithTimeout(q.ctx, 5*time.Second)
	defer cancel()
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	q.running = true

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.wg.Add(1)
	go q.retryMover()

	q.log.Info("run queue started",
		logger.Int("workers", q.cfg.Workers),
		logger.String("addr", q.client.Options().Addr),
		logger.String("key", q.queueKey()))
	return nil
}

// Stop cancels in-flight handlers and waits for the workers.
func (q *RedisQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("stop queue: %w", ctx.Err())
	case <-done:
		q.log.Info("run queue stopped")
		return nil
	}
}

// Enqueue pushes a message of typ. An empty id is replaced by a new uuid; the id is returned.
func (q *RedisQueue) Enqueue(ctx context.Context, typ, id string, payload interface{}) (string, error) {
	q.mu.RLock()
	_, ok := q.jobs[typ]
	q.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w for type %s", errNoJob, typ)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	if id == "" {
		id = uuid.NewString()
	}
	msg := Message{ID: id, Type: typ, Payload: raw, EnqueuedAt: time.Now().UTC()}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	if err := q.client.LPush(ctx, q.queueKey(), data).Err(); err != nil {
		return "", fmt.Errorf("lpush: %w", err)
	}
	return id, nil
}

func (q *RedisQueue) worker(id int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		default:
		}
		msg, ok := q.pop()
		if !ok {
			continue
		}
		q.process(msg, id)
	}
}

func (q *RedisQueue) pop() (Message, bool) {
	res, err := q.client.BRPop(q.ctx, q.cfg.PollTimeout, q.queueKey()).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
			q.log.Error("brpop error", logger.Error(err))
			select {
			case <-q.ctx.Done():
			case <-time.After(time.Second):
			}
		}
		return Message{}, false
	}
	if len(res) < 2 {
		return Message{}, false
	}
	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		q.log.Error("unmarshal queue message", logger.Error(err))
		return Message{}, false
	}
	return msg, true
}

func (q *RedisQueue) process(msg Message, worker int) {
	q.mu.RLock()
	job, ok := q.jobs[msg.Type]
	q.mu.RUnlock()

	start := time.Now()
	var err error
	if ok {
		err = job.Handle(q.ctx, msg.Payload)
	} else {
		err = fmt.Errorf("%w for type %s", errNoJob, msg.Type)
	}

	fields := []logger.Field{
		logger.String("id", msg.ID),
		logger.String("type", msg.Type),
		logger.Int("worker", worker),
		logger.Int("attempt", msg.Attempts+1),
		logger.Duration("elapsed", time.Since(start)),
	}
	switch nextAction(msg, err, q.cfg.RetryLimit) {
	case actionDone:
		q.log.Debug("queue message done", fields...)
	case actionRequeue:
		// shutting down: hand the message back for the next process
		q.push(context.Background(), q.queueKey(), msg)
	case actionRetry:
		msg.Attempts++
		msg.LastError = err.Error()
		at := time.Now().Add(q.cfg.RetryDelay * time.Duration(msg.Attempts))
		q.log.Warn("queue message failed, retry scheduled", append(fields, logger.Error(err), logger.String("retry_at", at.Format(time.RFC3339)))...)
		q.scheduleRetry(msg, at)
	case actionDead:
		msg.LastError = err.Error()
		q.log.Error("queue message dead-lettered", append(fields, logger.Error(err))...)
		q.push(context.Background(), q.deadLetterKey(), msg)
	}
}

func (q *RedisQueue) push(ctx context.Context, key string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		q.log.Error("marshal queue message", logger.Error(err))
		return
	}
	if err := q.client.LPush(ctx, key, data).Err(); err != nil {
		q.log.Error("lpush", logger.String("key", key), logger.Error(err))
	}
}

func (q *RedisQueue) scheduleRetry(msg Message, at time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		q.log.Error("marshal retry", logger.Error(err))
		return
	}
	if err := q.client.ZAdd(context.Background(), q.retryKey(), redis.Z{Score: float64(at.Unix()), Member: data}).Err(); err != nil {
		q.log.Error("zadd retry", logger.Error(err))
	}
}

func (q *RedisQueue) retryMover() {
	defer q.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.moveDueRetries()
		}
	}
}

// moveDueRetries moves every retry whose time has come back onto the main list.
func (q *RedisQueue) moveDueRetries() {
	due, err := q.client.ZRangeByScore(q.ctx, q.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			q.log.Error("fetch due retries", logger.Error(err))
		}
		return
	}
	for _, member := range due {
		pipe := q.client.TxPipeline()
		pipe.ZRem(q.ctx, q.retryKey(), member)
		pipe.LPush(q.ctx, q.queueKey(), member)
		if _, err := pipe.Exec(q.ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				q.log.Error("move retry to queue", logger.Error(err))
			}
			return
		}
	}
}

func (q *RedisQueue) queueKey() string      { return q.cfg.KeyPrefix + ":messages" }
func (q *RedisQueue) retryKey() string      { return q.cfg.KeyPrefix + ":retry" }
func (q *RedisQueue) deadLetterKey() string { return q.cfg.KeyPrefix + ":dlq" }
