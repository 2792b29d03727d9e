package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

const redisKeyPrefix = "tmap:map:"

// RedisStore keeps a map's snapshot in a Redis hash together with its
// revision and save time, so several editors can share one server.
type RedisStore struct {
	client *redis.Client
	name   string
	owned  bool
}

// NewRedisStore wraps an existing client. The caller keeps ownership.
func NewRedisStore(client *redis.Client, name string) *RedisStore {
	return &RedisStore{client: client, name: name}
}

// OpenRedis connects using a redis:// URL.
func OpenRedis(url, name string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts), name: name, owned: true}, nil
}

// Close closes the client if this store created it.
func (r *RedisStore) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

func (r *RedisStore) key() string {
	return redisKeyPrefix + r.name
}

// Load reads the snapshot field of the map hash.
func (r *RedisStore) Load(ctx context.Context) (model.Snapshot, error) {
	data, err := r.client.HGet(ctx, r.key(), "snapshot").Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Snapshot{}, loadErr(BackendRedis, ErrNoSnapshot)
	}
	if err != nil {
		return model.Snapshot{}, loadErr(BackendRedis, err)
	}
	s, err := Decode(data)
	if err != nil {
		return model.Snapshot{}, loadErr(BackendRedis, err)
	}
	return s, nil
}

// Save writes the snapshot, revision and timestamp in one MULTI block and
// records the map name in the index set.
func (r *RedisStore) Save(ctx context.Context, s model.Snapshot) error {
	data, err := Encode(s, false)
	if err != nil {
		return saveErr(BackendRedis, err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key(),
			"snapshot", data,
			"revision", strconv.FormatUint(s.Revision, 10),
			"saved_at", time.Now().UTC().Format(time.RFC3339))
		pipe.SAdd(ctx, redisKeyPrefix+"index", r.name)
		return nil
	})
	if err != nil {
		return saveErr(BackendRedis, err)
	}
	return nil
}

// Maps lists map names saved on this server, sorted.
func (r *RedisStore) Maps(ctx context.Context) ([]string, error) {
	names, err := r.client.SMembers(ctx, redisKeyPrefix+"index").Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
