package nonce

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// RedisBackend: key <prefix>nonce:<addr> con el entry en JSON. Take usa
// GETDEL, así que el consumo es atómico también entre réplicas.
type RedisBackend struct {
	client *rdb.Client
	prefix string
}

func NewRedisBackend(client *rdb.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) key(address string) string { return r.prefix + "nonce:" + address }

func (r *RedisBackend) Get(ctx context.Context, address string) (Entry, bool, error) {
	b, err := r.client.Get(ctx, r.key(address)).Bytes()
	return decodeRedis(b, err)
}

func (r *RedisBackend) Put(ctx context.Context, e Entry, keep time.Duration) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(e.Address), b, keep).Err()
}

func (r *RedisBackend) Take(ctx context.Context, address string) (Entry, bool, error) {
	b, err := r.client.GetDel(ctx, r.key(address)).Bytes()
	return decodeRedis(b, err)
}

func decodeRedis(b []byte, err error) (Entry, bool, error) {
	if errors.Is(err, rdb.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}
