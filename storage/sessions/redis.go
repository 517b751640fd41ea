package sessionstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/session"
)

const (
	sessKeyPrefix  = "sess:"
	userKeyPrefix  = "sess-user:"
	userSetMaxTTL  = 30 * 24 * time.Hour
	defaultTimeout = 3 * time.Second
)

// redisStore persists sessions in Redis. Each session lives under `sess:<key>`
// with a TTL matching its absolute expiry; a per-user set under
// `sess-user:<id>` backs DeleteUserSessions.
type redisStore struct {
	client *redis.Client
}

var _ session.Store = (*redisStore)(nil)

func NewRedisStore(client *redis.Client) session.Store {
	return &redisStore{client: client}
}

// OpenRedis connects to the configured Redis instance and pings it.
func OpenRedis() (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     core.Conf.Redis.Addr,
		Password: core.Conf.Redis.Password,
		DB:       core.Conf.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func (st *redisStore) SaveSession(sess session.Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "marshalling session")
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return session.ErrSessionExpired
	}
	pipe := st.client.TxPipeline()
	pipe.Set(ctx, sessKeyPrefix+sess.Key, data, ttl)
	pipe.SAdd(ctx, userKeyPrefix+sess.UserID, sess.Key)
	pipe.Expire(ctx, userKeyPrefix+sess.UserID, userSetMaxTTL)
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "saving session")
}

func (st *redisStore) GetSession(key string) (session.Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	data, err := st.client.Get(ctx, sessKeyPrefix+key).Result()
	if err != nil {
		if err == redis.Nil {
			return session.Session{}, session.ErrInvalidSession
		}
		return session.Session{}, errors.Wrap(err, "getting session")
	}
	var sess session.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return session.Session{}, errors.Wrap(err, "unmarshalling session")
	}
	sess.Key = key
	return sess, nil
}

func (st *redisStore) DeleteSessions(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, sessKeyPrefix+key)
	}
	return errors.Wrap(st.client.Del(ctx, full...).Err(), "deleting sessions")
}

func (st *redisStore) DeleteUserSessions(userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	keys, err := st.client.SMembers(ctx, userKeyPrefix+userID).Result()
	if err != nil {
		return errors.Wrap(err, "listing user sessions")
	}
	full := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		full = append(full, sessKeyPrefix+key)
	}
	full = append(full, userKeyPrefix+userID)
	return errors.Wrap(st.client.Del(ctx, full...).Err(), "deleting user sessions")
}
