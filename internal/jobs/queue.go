package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
)

const (
	TypeMetrics  = "metrics"
	TypeInsights = "insights"
	TypeMatch    = "match"
)

var (
	ErrInvalidJob = errors.New("invalid job")
	// ErrQueueEmpty indica que el BLPOP vencio sin trabajos.
	ErrQueueEmpty = errors.New("job queue empty")
)

// Job es el mensaje que encola el sistema que rodea al motor.
type Job struct {
	Type        string `json:"type" validate:"required,oneof=metrics insights match"`
	WorkspaceID string `json:"workspace_id" validate:"required"`
	GoalID      string `json:"goal_id,omitempty" validate:"required_if=Type match"`
}

var validate = validator.New()

// ParseJob decodifica y valida un payload.
func ParseJob(payload string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	job.Type = strings.TrimSpace(job.Type)
	job.WorkspaceID = strings.TrimSpace(job.WorkspaceID)
	job.GoalID = strings.TrimSpace(job.GoalID)
	if err := validate.Struct(job); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return job, nil
}

type redisList interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Queue es una lista Redis con semantica FIFO.
type Queue struct {
	client redisList
	key    string
	wait   time.Duration
}

// NewQueue devuelve nil si no hay cliente Redis.
func NewQueue(client *redis.Client, key string) *Queue {
	if client == nil {
		return nil
	}
	return newQueue(client, key)
}

func newQueue(client redisList, key string) *Queue {
	return &Queue{client: client, key: key, wait: 5 * time.Second}
}

// Push valida y encola un trabajo.
func (q *Queue) Push(ctx context.Context, job Job) error {
	if err := validate.Struct(job); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.key, payload).Err()
}

// Pop bloquea hasta que haya un payload o venza la espera.
func (q *Queue) Pop(ctx context.Context) (string, error) {
	vals, err := q.client.BLPop(ctx, q.wait, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	if err != nil {
		return "", err
	}
	if len(vals) != 2 {
		return "", fmt.Errorf("unexpected BLPOP reply: %v", vals)
	}
	return vals[1], nil
}
