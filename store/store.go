// Package store 提供 core.Store 的实现：memory、redis、sqlite，以及不可用存储与命名空间包装。
// 接口定义在 core 包。
package store

import (
	"context"
	"fmt"

	"github.com/matheusschuckar/look-pro/core"
)

// Config 描述要打开的存储后端。
type Config struct {
	Backend string `koanf:"backend" validate:"omitempty,oneof=memory redis sqlite none"`
	Addr    string `koanf:"addr"`
	DB      int    `koanf:"db" validate:"gte=0"`
	Path    string `koanf:"path"`
}

// Open 按配置打开后端；Backend 为空时使用 memory，"none" 返回 Unavailable。
func Open(cfg Config) (core.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg.Addr, cfg.DB)
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "lookpro.db"
		}
		return OpenSQLite(path)
	case "none":
		return Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

// Unavailable 模拟完全不可用的存储（如浏览器隐私模式），所有操作返回 ErrStoreUnavailable。
type Unavailable struct{}

func (Unavailable) Name() string { return "unavailable" }

func (Unavailable) Get(context.Context, string) ([]byte, error) {
	return nil, core.ErrStoreUnavailable
}

func (Unavailable) Set(context.Context, string, []byte, ...int) error {
	return core.ErrStoreUnavailable
}

func (Unavailable) Delete(context.Context, string) error {
	return core.ErrStoreUnavailable
}

func (Unavailable) BatchGet(context.Context, []string) (map[string][]byte, error) {
	return nil, core.ErrStoreUnavailable
}

func (Unavailable) Close() error { return nil }

// Namespace 为所有 key 加前缀，用于多个用户共享一个后端。
type Namespace struct {
	inner  core.Store
	prefix string
}

func NewNamespace(inner core.Store, prefix string) *Namespace {
	return &Namespace{inner: inner, prefix: prefix}
}

func (n *Namespace) Name() string { return n.inner.Name() }

func (n *Namespace) Get(ctx context.Context, key string) ([]byte, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *Namespace) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	return n.inner.Set(ctx, n.prefix+key, value, ttl...)
}

func (n *Namespace) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

func (n *Namespace) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = n.prefix + k
	}
	raw, err := n.inner.BatchGet(ctx, prefixed)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(raw))
	for _, k := range keys {
		if v, ok := raw[n.prefix+k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Watch 在内层后端支持时透传，否则返回 ErrStoreNotSupported。
func (n *Namespace) Watch(ctx context.Context, key string, fn func([]byte)) (func(), error) {
	w, ok := n.inner.(core.Watcher)
	if !ok {
		return nil, core.ErrStoreNotSupported
	}
	return w.Watch(ctx, n.prefix+key, fn)
}

// Close 不关闭内层后端，内层由创建者负责。
func (n *Namespace) Close() error { return nil }

var (
	_ core.Store   = Unavailable{}
	_ core.Store   = (*Namespace)(nil)
	_ core.Watcher = (*Namespace)(nil)
)
