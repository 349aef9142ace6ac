package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

const (
	redisUpdateRetries = 10
	// redisExpiryGrace keeps a session readable for a while after its TTL so
	// callers get ErrSessionExpired instead of ErrSessionNotFound.
	redisExpiryGrace = time.Minute
)

// RedisSessionStore keeps sessions as JSON values with an expiry index in a
// sorted set. Updates use WATCH/MULTI and retry when another writer wins.
type RedisSessionStore struct {
	client    redis.UniversalClient
	namespace string
	now       func() time.Time
}

func NewRedisSessionStore(client redis.UniversalClient, namespace string) *RedisSessionStore {
	return &RedisSessionStore{client: client, namespace: namespace, now: time.Now}
}

// Keys share the {namespace} hash tag so MULTI stays in one cluster slot.
func (r *RedisSessionStore) key(id string) string {
	return fmt.Sprintf("{%s}:session:%s", r.namespace, id)
}

func (r *RedisSessionStore) indexKey() string {
	return fmt.Sprintf("{%s}:session_expiry", r.namespace)
}

func (r *RedisSessionStore) ttl(session *domain.Session) time.Duration {
	return max(session.ExpiresAt.Sub(r.now()), 0) + redisExpiryGrace
}

// Create stores a new session unless the ID is taken
func (r *RedisSessionStore) Create(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("create session: encode: %w", err)
	}

	created, err := r.client.SetNX(ctx, r.key(session.ID), data, r.ttl(session)).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !created {
		return domain.ErrSessionExists
	}

	err = r.client.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(session.ExpiresAt.UnixMilli()),
		Member: session.ID,
	}).Err()
	if err != nil {
		return fmt.Errorf("create session: index: %w", err)
	}

	return nil
}

// GetByID retrieves a session by ID
func (r *RedisSessionStore) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	session, err := r.get(ctx, r.client, id)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Update applies fn inside an optimistic transaction on the session key.
func (r *RedisSessionStore) Update(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	key := r.key(id)
	var updated *domain.Session

	txf := func(tx *redis.Tx) error {
		session, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := fn(session); err != nil {
			return err
		}

		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, data, redis.SetArgs{KeepTTL: true})
			return nil
		})
		if err != nil {
			return err
		}

		updated = session
		return nil
	}

	for i := 0; i < redisUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("update session: %w", err)
	}

	return nil, fmt.Errorf("update session %s: too much contention", id)
}

// Delete removes a session by ID
func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.key(id))
		pipe.ZRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if del.Val() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteExpired removes indexed sessions whose expiry is before now. Each
// candidate is re-read under WATCH so a concurrent update is not lost.
func (r *RedisSessionStore) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	candidates, err := r.client.ZRangeByScore(ctx, r.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("delete expired sessions: %w", err)
	}

	var removed []string
	for _, id := range candidates {
		key := r.key(id)
		deleted := false

		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			session, err := r.get(ctx, tx, id)
			if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
				return err
			}
			if session != nil && !session.IsExpiredAt(now) {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.ZRem(ctx, r.indexKey(), id)
				return nil
			})
			deleted = err == nil
			return err
		}, key)
		if err != nil && !errors.Is(err, redis.TxFailedErr) {
			return removed, fmt.Errorf("delete expired session %s: %w", id, err)
		}

		if deleted {
			removed = append(removed, id)
		}
	}

	return removed, nil
}

// Stats counts the indexed sessions
func (r *RedisSessionStore) Stats(ctx context.Context, now time.Time) (domain.SessionStats, error) {
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return domain.SessionStats{}, fmt.Errorf("session stats: %w", err)
	}

	var stats domain.SessionStats
	if len(ids) == 0 {
		return stats, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return domain.SessionStats{}, fmt.Errorf("session stats: %w", err)
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var session domain.Session
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			continue
		}
		stats.Count(&session, now)
	}

	return stats, nil
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisSessionStore) get(ctx context.Context, c redisGetter, id string) (*domain.Session, error) {
	data, err := c.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("get session: decode: %w", err)
	}
	return &session, nil
}
