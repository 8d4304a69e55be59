package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("没有找到优化进度")

// Progress 是一次优化在 redis 中的进度快照
type Progress struct {
	RunID       int64     `json:"runID"`
	Generation  int32     `json:"generation"`
	Generations int32     `json:"generations"`
	BestPenalty float64   `json:"bestPenalty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Store struct {
	rdb        *redis.Client
	expiration time.Duration
}

func NewStore(rdb *redis.Client, expiration time.Duration) *Store {
	return &Store{
		rdb:        rdb,
		expiration: expiration,
	}
}

func Key(runID int64) string {
	return fmt.Sprintf("allocation_progress_%d", runID)
}

// ShouldReport 每隔 interval 代上报一次，最后一代总是上报
func ShouldReport(gen, total, interval int32) bool {
	if gen == total {
		return true
	}
	if interval <= 0 {
		return false
	}
	return gen%interval == 0
}

func (s *Store) Set(ctx context.Context, p *Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, Key(p.RunID), data, s.expiration).Err()
}

func (s *Store) Get(ctx context.Context, runID int64) (*Progress, error) {
	data, err := s.rdb.Get(ctx, Key(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p := &Progress{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) Delete(ctx context.Context, runID int64) error {
	return s.rdb.Del(ctx, Key(runID)).Err()
}
