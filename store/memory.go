package store

import (
	"context"
	"sync"
	"time"

	"github.com/matheusschuckar/look-pro/core"
)

// MemoryStore 是内存实现的 Store，用于测试/开发/单进程部署。
// 支持 TTL 与 Watch，但进程重启后数据丢失。
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]*entry
	watchers map[string]map[*watcher]struct{}
	clean    *time.Ticker
	done     chan struct{}
	once     sync.Once
}

type entry struct {
	value  []byte
	expire time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expire.IsZero() && now.After(e.expire)
}

func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		data:     make(map[string]*entry),
		watchers: make(map[string]map[*watcher]struct{}),
		clean:    time.NewTicker(10 * time.Second),
		done:     make(chan struct{}),
	}
	go ms.cleanup()
	return ms
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok || e.expired(time.Now()) {
		return nil, core.ErrStoreNotFound
	}
	return clone(e.value), nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &entry{value: clone(value)}
	if len(ttl) > 0 && ttl[0] > 0 {
		e.expire = time.Now().Add(time.Duration(ttl[0]) * time.Second)
	}
	m.data[key] = e
	m.notify(key, e.value)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; ok {
		delete(m.data, key)
		m.notify(key, nil)
	}
	return nil
}

func (m *MemoryStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	now := time.Now()
	for _, k := range keys {
		e, ok := m.data[k]
		if !ok || e.expired(now) {
			continue
		}
		result[k] = clone(e.value)
	}
	return result, nil
}

// Watch 订阅 key 的修改。回调在独立协程中按写入顺序执行。
func (m *MemoryStore) Watch(ctx context.Context, key string, fn func(value []byte)) (func(), error) {
	w := newWatcher(fn)

	m.mu.Lock()
	if m.watchers[key] == nil {
		m.watchers[key] = make(map[*watcher]struct{})
	}
	m.watchers[key][w] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.watchers[key], w)
			m.mu.Unlock()
			w.close()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-w.done:
		}
	}()
	return stop, nil
}

func (m *MemoryStore) Close() error {
	m.once.Do(func() {
		m.clean.Stop()
		close(m.done)

		m.mu.Lock()
		for _, ws := range m.watchers {
			for w := range ws {
				w.close()
			}
		}
		m.watchers = make(map[string]map[*watcher]struct{})
		m.mu.Unlock()
	})
	return nil
}

// notify 需在持有写锁时调用。
func (m *MemoryStore) notify(key string, value []byte) {
	for w := range m.watchers[key] {
		w.push(clone(value))
	}
}

func (m *MemoryStore) cleanup() {
	for {
		select {
		case <-m.done:
			return
		case <-m.clean.C:
			m.mu.Lock()
			now := time.Now()
			for k, e := range m.data {
				if e.expired(now) {
					delete(m.data, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

// watcher 用无界队列投递通知，写入方不会被慢回调阻塞。
type watcher struct {
	fn     func([]byte)
	mu     sync.Mutex
	queue  [][]byte
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newWatcher(fn func([]byte)) *watcher {
	w := &watcher{
		fn:     fn,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *watcher) push(v []byte) {
	w.mu.Lock()
	w.queue = append(w.queue, v)
	w.mu.Unlock()
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *watcher) close() {
	w.once.Do(func() { close(w.done) })
}

func (w *watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case <-w.signal:
		}
		for {
			w.mu.Lock()
			if len(w.queue) == 0 {
				w.mu.Unlock()
				break
			}
			v := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()
			w.fn(v)
		}
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var (
	_ core.Store   = (*MemoryStore)(nil)
	_ core.Watcher = (*MemoryStore)(nil)
)
