package prefs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/matheusschuckar/look-pro/core"
)

// Store 是偏好状态的读写入口：解码/编码文档、串行化本进程内的修改。
//
// 读取永不失败：key 不存在、存储不可用、文档损坏或版本未知时都返回空状态并记录日志。
// 写入失败以 error 返回，由调用方决定是否忽略。
// 多进程共享同一后端时为最后写入者胜出。
type Store struct {
	backend   core.Store
	clock     core.Clock
	logger    zerolog.Logger
	key       string
	legacyKey string
	prune     float64
	onError   func(op string, err error)

	mu     sync.Mutex
	recent [][]byte
}

// recentWrites 是用于识别自身写入通知的最近写入条数。
const recentWrites = 8

// Option 配置 Store。
type Option func(*Store)

func WithClock(c core.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithKeys 覆盖存储 key（多用户共享一个后端时按用户加前缀）。
func WithKeys(key, legacyKey string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
		if legacyKey != "" {
			s.legacyKey = legacyKey
		}
	}
}

// WithPruneBelow 衰减后删除权重低于 eps 的 key；0 表示保留全部。
func WithPruneBelow(eps float64) Option {
	return func(s *Store) {
		if eps > 0 {
			s.prune = eps
		}
	}
}

// WithErrorHook 在存储读写失败时回调（用于打点）。
func WithErrorHook(fn func(op string, err error)) Option {
	return func(s *Store) { s.onError = fn }
}

func NewStore(backend core.Store, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		clock:     core.SystemClock{},
		logger:    zerolog.Nop(),
		key:       Key,
		legacyKey: LegacyKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key 返回当前文档的存储 key。
func (s *Store) Key() string { return s.key }

// Load 读取当前偏好状态。
func (s *Store) Load(ctx context.Context) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// LoadLegacy 读取旧版扁平计数并转换为 State（只读，不会写回）。
func (s *Store) LoadLegacy(ctx context.Context) *State {
	st, _ := s.read(ctx, s.legacyKey)
	return st
}

// Save 编码并同步写入。
func (s *Store) Save(ctx context.Context, st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, st)
}

// Update 在锁内执行 读取 -> fn 修改 -> 写回。fn 返回错误时不写回。
// 存储读失败或文档版本未知时同样不写回，避免覆盖无法读取的数据；返回读取错误。
func (s *Store) Update(ctx context.Context, fn func(*State) error) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, rerr := s.read(ctx, s.key)
	if err := fn(st); err != nil {
		return nil, err
	}
	if rerr != nil {
		s.fail("set", rerr)
		s.logger.Warn().Err(rerr).Str("key", s.key).Msg("preferences not saved, stored document was not read")
		return st, fmt.Errorf("save preferences: %w", rerr)
	}
	if err := s.save(ctx, st); err != nil {
		return st, err
	}
	return st, nil
}

// Bump 为 f/key 累加 inc，返回累加后的 KeyStat。
// 参数错误（空 key、负权重、未知维度）时不读写存储。
func (s *Store) Bump(ctx context.Context, f core.Facet, key string, inc float64) (KeyStat, error) {
	var normalized string
	st, err := s.Update(ctx, func(st *State) error {
		k, err := Apply(st, f, key, inc, s.clock.Now())
		normalized = k
		return err
	})
	if st == nil {
		return KeyStat{}, err
	}
	return *st.Table(f)[normalized], err
}

// DecayAll 读取、衰减并写回全部偏好。
func (s *Store) DecayAll(ctx context.Context, halfLifeDays float64) (*State, error) {
	var n int
	st, err := s.Update(ctx, func(st *State) error {
		var err error
		n, err = Decay(st, halfLifeDays, s.clock.Now(), s.prune)
		return err
	})
	if err == nil {
		s.logger.Debug().Int("decayed", n).Float64("half_life_days", halfLifeDays).Msg("preferences decayed")
	}
	return st, err
}

// OnExternalChange 订阅其他写入方对偏好文档的修改，回调参数为新状态。
// 后端不支持订阅时返回 core.ErrStoreNotSupported。
// 本 Store 自己写入的内容不会触发回调。
func (s *Store) OnExternalChange(ctx context.Context, fn func(*State)) (stop func(), err error) {
	w, ok := s.backend.(core.Watcher)
	if !ok {
		return nil, core.ErrStoreNotSupported
	}
	return w.Watch(ctx, s.key, func(value []byte) {
		s.mu.Lock()
		own := s.wrote(value)
		s.mu.Unlock()
		if own {
			return
		}
		st, err := s.decode(value, s.key)
		if err != nil {
			return
		}
		fn(st)
	})
}

func (s *Store) load(ctx context.Context) *State {
	st, _ := s.read(ctx, s.key)
	return st
}

// read 读取并解码 key。返回的 error 非空表示存储中可能仍有当前进程无法理解的数据
// （读失败或版本未知），此时不应覆盖写入；key 不存在或文档损坏视为空，可以覆盖。
func (s *Store) read(ctx context.Context, key string) (*State, error) {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return NewState(), nil
		}
		s.fail("get", err)
		s.logger.Warn().Err(err).Str("key", key).Str("backend", s.backend.Name()).Msg("preferences unreadable, using empty state")
		return NewState(), err
	}
	return s.decode(raw, key)
}

func (s *Store) decode(raw []byte, key string) (*State, error) {
	if raw == nil {
		return NewState(), nil
	}
	doc, err := Decode(raw)
	if err != nil {
		s.fail("decode", err)
		s.logger.Warn().Err(err).Str("key", key).Msg("preferences document discarded")
		if errors.Is(err, ErrUnsupportedVersion) {
			return NewState(), err
		}
		return NewState(), nil
	}
	st := Upgrade(doc)
	if _, legacy := doc.(*LegacyDocument); legacy && key == s.key {
		// 当前 key 下的无版本文档按读取时刻打时间戳，之后正常衰减
		stampZero(st, s.clock.Now())
	}
	return st, nil
}

func (s *Store) save(ctx context.Context, st *State) error {
	raw, err := Encode(st)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := s.backend.Set(ctx, s.key, raw); err != nil {
		s.fail("set", err)
		return fmt.Errorf("save preferences: %w", err)
	}
	s.recent = append(s.recent, raw)
	if len(s.recent) > recentWrites {
		s.recent = s.recent[len(s.recent)-recentWrites:]
	}
	return nil
}

func (s *Store) wrote(value []byte) bool {
	if value == nil {
		return false
	}
	for _, raw := range s.recent {
		if bytes.Equal(raw, value) {
			return true
		}
	}
	return false
}

func (s *Store) fail(op string, err error) {
	if s.onError != nil {
		s.onError(op, err)
	}
}

func stampZero(st *State, now time.Time) {
	for _, tbl := range st.Facets {
		for _, ks := range tbl {
			if ks != nil && ks.LastUpdated.IsZero() {
				ks.LastUpdated = now
			}
		}
	}
}
