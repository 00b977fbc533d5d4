package repository

import (
	"context"
	"time"

	"TrendPull/internal/domain/models"
	domrepo "TrendPull/internal/domain/repository"
	"TrendPull/pkg/cache"
)

// RowsCache implements FrameCache on top of a cache.Service.
type RowsCache struct {
	svc cache.Service
	ttl time.Duration
}

func NewRowsCache(svc cache.Service, ttl time.Duration) *RowsCache {
	return &RowsCache{svc: svc, ttl: ttl}
}

func (c *RowsCache) GetRows(ctx context.Context, key string) ([]models.Row, bool, error) {
	return cache.GetTyped[[]models.Row](ctx, c.svc, key)
}

func (c *RowsCache) SetRows(ctx context.Context, key string, rows []models.Row) error {
	return c.svc.Set(ctx, key, rows, c.ttl)
}

var _ domrepo.FrameCache = (*RowsCache)(nil)

// StatusCache implements RunStatusStore on top of a cache.Service.
type StatusCache struct {
	svc cache.Service
	ttl time.Duration
}

func NewStatusCache(svc cache.Service, ttl time.Duration) *StatusCache {
	return &StatusCache{svc: svc, ttl: ttl}
}

func statusKey(runID string) string { return "run:" + runID + ":status" }

func (c *StatusCache) SetStatus(ctx context.Context, st models.RunStatus) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	return c.svc.Set(ctx, statusKey(st.ID), st, c.ttl)
}

func (c *StatusCache) GetStatus(ctx context.Context, runID string) (*models.RunStatus, bool, error) {
	st, ok, err := cache.GetTyped[models.RunStatus](ctx, c.svc, statusKey(runID))
	if err != nil || !ok {
		return nil, ok, err
	}
	return &st, true, nil
}

var _ domrepo.RunStatusStore = (*StatusCache)(nil)
