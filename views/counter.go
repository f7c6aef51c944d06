package views

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/pkg/conv"
)

// Key 是浏览计数在存储中的 key，值为 JSON {"<id>": count}。
const Key = "look.metrics.v1.views"

// Counter 是本地浏览计数（商品 ID -> 次数），趋势分的本地信号来源。
//
// 内存中保留一份计数；读取存储或收到其他写入方的通知时按每个商品取较大值合并，
// 计数只增不减。存储不可用时仅在内存中累加。
type Counter struct {
	backend core.Store
	key     string
	logger  zerolog.Logger

	mu     sync.Mutex
	counts map[int64]int64
}

// Option 配置 Counter。
type Option func(*Counter)

func WithKey(key string) Option {
	return func(c *Counter) {
		if key != "" {
			c.key = key
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Counter) { c.logger = l }
}

func NewCounter(backend core.Store, opts ...Option) *Counter {
	c := &Counter{
		backend: backend,
		key:     Key,
		logger:  zerolog.Nop(),
		counts:  make(map[int64]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load 从存储读取并合并，返回合并后的计数副本。
func (c *Counter) Load(ctx context.Context) map[int64]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresh(ctx)
	return maps.Clone(c.counts)
}

// Snapshot 返回内存中计数的副本，不读存储。
func (c *Counter) Snapshot() map[int64]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.counts)
}

// Increment 将 id 的计数加一并写回，返回新计数。写入失败时内存计数仍然生效。
func (c *Counter) Increment(ctx context.Context, id int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.refresh(ctx)
	c.counts[id]++
	n := c.counts[id]

	raw, err := Encode(c.counts)
	if err != nil {
		return n, err
	}
	if err := c.backend.Set(ctx, c.key, raw); err != nil {
		return n, fmt.Errorf("save views: %w", err)
	}
	return n, nil
}

// Watch 订阅其他写入方对浏览计数的修改并合并到内存。
// 后端不支持订阅时返回 core.ErrStoreNotSupported。
func (c *Counter) Watch(ctx context.Context) (stop func(), err error) {
	w, ok := c.backend.(core.Watcher)
	if !ok {
		return nil, core.ErrStoreNotSupported
	}
	return w.Watch(ctx, c.key, func(value []byte) {
		if value == nil {
			return
		}
		counts, err := Decode(value)
		if err != nil {
			c.logger.Warn().Err(err).Str("key", c.key).Msg("view counts notification discarded")
			return
		}
		c.mu.Lock()
		c.merge(counts)
		c.mu.Unlock()
	})
}

func (c *Counter) refresh(ctx context.Context) {
	raw, err := c.backend.Get(ctx, c.key)
	if err != nil {
		if !core.IsStoreNotFound(err) {
			c.logger.Warn().Err(err).Str("key", c.key).Msg("view counts unreadable")
		}
		return
	}
	counts, err := Decode(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", c.key).Msg("view counts discarded")
		return
	}
	c.merge(counts)
}

func (c *Counter) merge(in map[int64]int64) {
	for id, n := range in {
		if n > c.counts[id] {
			c.counts[id] = n
		}
	}
}

// Decode 解析 {"<id>": count}。无法解析的 id 或计数被跳过，负数按 0 处理。
func Decode(raw []byte) (map[int64]int64, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode views: %w", core.NewDomainError(core.ModuleStore, core.ErrorCodeCorrupt, err.Error()))
	}
	out := make(map[int64]int64, len(m))
	for k, v := range m {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		n, ok := conv.ToInt64(v)
		if !ok {
			continue
		}
		out[id] = max(n, 0)
	}
	return out, nil
}

// Encode 编码为 {"<id>": count}。
func Encode(counts map[int64]int64) ([]byte, error) {
	m := make(map[string]int64, len(counts))
	for id, n := range counts {
		m[strconv.FormatInt(id, 10)] = n
	}
	return json.Marshal(m)
}
