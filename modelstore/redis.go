package modelstore

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/redis.v5"
)

// RedisStore is a Store keeping models in redis under "<prefix>:<name>".
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps a redis client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// DialRedis connects to a redis server and checks the connection.
func DialRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "connect to redis at %s", addr)
	}
	return client, nil
}

func (r *RedisStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.client.Set(r.keyFor(name), data, 0).Err(); err != nil {
		return errors.Wrapf(err, "store model %q in redis", name)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := r.client.Get(r.keyFor(name)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, errors.Wrapf(err, "retrieve model %q from redis", name)
	}
	return data, nil
}

func (r *RedisStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.client.Del(r.keyFor(name)).Err(); err != nil {
		return errors.Wrapf(err, "delete model %q from redis", name)
	}
	return nil
}

func (r *RedisStore) keyFor(name string) string {
	return fmt.Sprintf("%s:%s", r.prefix, name)
}
