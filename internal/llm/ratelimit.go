package llm

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// redisWindowScript cuenta llamadas por ventana fija.
const redisWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

// DistributedLimiter comparte un cupo de llamadas entre workers.
type DistributedLimiter interface {
	Allow(ctx context.Context) bool
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisWindowLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	key    string
	now    func() time.Time
}

// NewRedisLimiter permite hasta max llamadas por ventana entre todos los
// procesos que comparten Redis. Devuelve nil sin cliente.
func NewRedisLimiter(client *redis.Client, window time.Duration, max int) DistributedLimiter {
	if client == nil {
		return nil
	}
	return newRedisLimiter(client, window, max)
}

func newRedisLimiter(client redisEvaler, window time.Duration, max int) *redisWindowLimiter {
	if window <= 0 {
		window = time.Second
	}
	if max <= 0 {
		max = 1
	}
	return &redisWindowLimiter{
		client: client,
		window: window,
		max:    max,
		key:    "emb:rl:",
		now:    time.Now,
	}
}

// Allow falla abierto: si Redis no responde, la llamada pasa y queda el
// limitador local.
func (l *redisWindowLimiter) Allow(ctx context.Context) bool {
	if l == nil || l.client == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	bucket := l.now().Unix() / int64(seconds)
	key := l.key + time.Unix(bucket*int64(seconds), 0).UTC().Format("20060102T150405")

	count, err := l.client.Eval(ctx, redisWindowScript, []string{key}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}

// NewLocalLimiter limita las llamadas del proceso. rps <= 0 desactiva el
// limite.
func NewLocalLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
