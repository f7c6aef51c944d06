package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matheusschuckar/look-pro/core"
)

// DefaultChannelPrefix 是修改通知的 Pub/Sub 频道前缀，频道名为 前缀 + key。
const DefaultChannelPrefix = "lookpro:changed:"

// RedisStore 是 Redis 实现的 Store，多个服务实例共享偏好时使用。
// Set/Delete 在同一事务中发布修改通知，Watch 通过 Pub/Sub 订阅。
type RedisStore struct {
	client        redis.UniversalClient
	channelPrefix string
}

func NewRedisStore(addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis ping: %v", core.ErrStoreUnavailable, err)
	}
	return NewRedisStoreFromClient(client), nil
}

// NewRedisStoreFromClient 复用已有客户端（单机、哨兵或集群）。
func NewRedisStoreFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, channelPrefix: DefaultChannelPrefix}
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrStoreNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return val, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	var expiration time.Duration
	if len(ttl) > 0 && ttl[0] > 0 {
		expiration = time.Duration(ttl[0]) * time.Second
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, value, expiration)
	pipe.Publish(ctx, r.channelPrefix+key, value)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.Publish(ctx, r.channelPrefix+key, "")
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *RedisStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return make(map[string][]byte), nil
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	result := make(map[string][]byte, len(keys))
	for i, k := range keys {
		if s, ok := vals[i].(string); ok {
			result[k] = []byte(s)
		}
	}
	return result, nil
}

// Watch 订阅 key 的修改通知。删除通知的 payload 为空，回调收到 nil。
func (r *RedisStore) Watch(ctx context.Context, key string, fn func(value []byte)) (func(), error) {
	pubsub := r.client.Subscribe(ctx, r.channelPrefix+key)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, unavailable(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload == "" {
					fn(nil)
					continue
				}
				fn([]byte(msg.Payload))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			pubsub.Close()
			wg.Wait()
		})
	}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
}

// 确保 RedisStore 实现了 core.Store 和 core.Watcher 接口
var (
	_ core.Store   = (*RedisStore)(nil)
	_ core.Watcher = (*RedisStore)(nil)
)
