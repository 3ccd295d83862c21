package refcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/campus-hr/hrdesk/modules/hrm/domain/aggregates/employee"
)

const redisPrefix = "hrdesk:ref:"

// Redis shares reference data between server replicas. A failing redis degrades to the provider.
type Redis struct {
	next   Provider
	client redis.UniversalClient
	ttl    time.Duration
	log    *logrus.Entry
}

func NewRedis(next Provider, client redis.UniversalClient, ttl time.Duration, logger *logrus.Logger) *Redis {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Redis{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    logger.WithField("component", "refcache.redis"),
	}
}

// NewRedisClient accepts either a redis:// URL or a bare host:port.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		if redisURL == "" {
			return nil, errors.New("empty redis url")
		}
		opts = &redis.Options{Addr: redisURL}
	}
	return redis.NewClient(opts), nil
}

func cached[T any](ctx context.Context, r *Redis, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	key = redisPrefix + key
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out []T
		if jsonErr := json.Unmarshal(raw, &out); jsonErr == nil {
			return out, nil
		}
		r.log.WithField("key", key).Warn("discarding undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		r.log.WithError(err).WithField("key", key).Warn("redis get failed")
	}

	out, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if r.ttl > 0 {
		if b, err := json.Marshal(out); err == nil {
			if err := r.client.Set(ctx, key, b, r.ttl).Err(); err != nil {
				r.log.WithError(err).WithField("key", key).Warn("redis set failed")
			}
		}
	}
	return out, nil
}

func (r *Redis) Branches(ctx context.Context, campus string) ([]employee.Branch, error) {
	return cached(ctx, r, branchesKey(campus), func(ctx context.Context) ([]employee.Branch, error) {
		return r.next.Branches(ctx, campus)
	})
}

func (r *Redis) Roles(ctx context.Context, campus string) ([]employee.Role, error) {
	return cached(ctx, r, rolesKey(campus), func(ctx context.Context) ([]employee.Role, error) {
		return r.next.Roles(ctx, campus)
	})
}

func (r *Redis) Invalidate(ctx context.Context, campus string) error {
	return r.client.Del(ctx, redisPrefix+branchesKey(campus), redisPrefix+rolesKey(campus)).Err()
}
