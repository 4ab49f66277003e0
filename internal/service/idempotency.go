package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

const saveLockPrefix = "brief:save:"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Guard serializes work per key. With Redis the lock spans instances;
// without it, or when Redis errors, only this process is covered.
type Guard struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu   sync.Mutex
	held map[string]struct{}
}

// NewGuard builds a guard. client may be nil.
func NewGuard(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Guard{client: client, ttl: ttl, logger: logger, held: make(map[string]struct{})}
}

// Acquire takes the lock for key or returns a conflict error when another
// caller holds it. The returned release func must be called once.
func (g *Guard) Acquire(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()
	if _, busy := g.held[key]; busy {
		g.mu.Unlock()
		return nil, inProgress(key)
	}
	g.held[key] = struct{}{}
	g.mu.Unlock()

	releaseLocal := func() {
		g.mu.Lock()
		delete(g.held, key)
		g.mu.Unlock()
	}
	if g.client == nil {
		return releaseLocal, nil
	}

	redisKey := saveLockPrefix + key
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, redisKey, token, g.ttl).Result()
	if err != nil {
		g.logger.Warn("redis lock unavailable; using process lock", zap.String("key", key), zap.Error(err))
		return releaseLocal, nil
	}
	if !ok {
		releaseLocal()
		return nil, inProgress(key)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, g.client, []string{redisKey}, token).Err(); err != nil && err != redis.Nil {
			g.logger.Warn("release redis lock", zap.String("key", key), zap.Error(err))
		}
		releaseLocal()
	}, nil
}

func inProgress(key string) error {
	return apperrors.NewConflict("This conversation is already being saved or emailed", map[string]any{"conversationId": key})
}
