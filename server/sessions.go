package server

import (
	"container/list"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/engine"
	"github.com/matheusschuckar/look-pro/feedback"
	"github.com/matheusschuckar/look-pro/store"
)

// ErrMissingUser 表示请求没有携带 user_id。
var ErrMissingUser = core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "user_id is required")

const (
	DefaultSessionIdleTTL = 30 * time.Minute
	DefaultMaxSessions    = 10000
)

// Sessions 为每个用户维护一个 engine.Engine，所有用户共享同一个存储后端（按用户加 key 前缀）。
//
// 空闲超过 idleTTL 的会话在下次创建新会话时回收；会话数达到上限时淘汰最久未使用的。
// 偏好保存在后端，被回收的用户下次访问时开始新会话（重新衰减、更换噪声种子）。
type Sessions struct {
	backend core.Store
	opts    []engine.Option
	clock   core.Clock
	idleTTL time.Duration
	max     int

	mu      sync.Mutex
	lru     *list.List // front 为最近使用
	entries map[string]*list.Element
}

type session struct {
	user     string
	engine   *engine.Engine
	lastUsed time.Time
}

// SessionOption 配置 Sessions。
type SessionOption func(*Sessions)

// WithIdleTTL 设置空闲回收时间，<= 0 表示不按时间回收。
func WithIdleTTL(d time.Duration) SessionOption {
	return func(s *Sessions) { s.idleTTL = d }
}

// WithMaxSessions 设置会话数上限，<= 0 表示不限制。
func WithMaxSessions(n int) SessionOption {
	return func(s *Sessions) { s.max = n }
}

func WithSessionClock(c core.Clock) SessionOption {
	return func(s *Sessions) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithEngineOptions 追加所有会话共享的引擎选项。
func WithEngineOptions(opts ...engine.Option) SessionOption {
	return func(s *Sessions) { s.opts = append(s.opts, opts...) }
}

func NewSessions(backend core.Store, opts ...SessionOption) *Sessions {
	s := &Sessions{
		backend: backend,
		clock:   core.SystemClock{},
		idleTTL: DefaultSessionIdleTTL,
		max:     DefaultMaxSessions,
		lru:     list.New(),
		entries: make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine 返回用户的引擎，首次访问或被回收后重新创建。
func (s *Sessions) Engine(_ context.Context, userID string) (*engine.Engine, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrMissingUser
	}
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.entries[userID]; ok {
		sess := el.Value.(*session)
		if !s.expired(sess, now) {
			sess.lastUsed = now
			s.lru.MoveToFront(el)
			return sess.engine, nil
		}
		s.remove(el)
	}

	e, err := engine.New(store.NewNamespace(s.backend, "u:"+userID+":"), s.opts...)
	if err != nil {
		return nil, err
	}
	s.evict(now)
	s.entries[userID] = s.lru.PushFront(&session{user: userID, engine: e, lastUsed: now})
	return e, nil
}

// Recorder 满足 feedback.Resolver。
func (s *Sessions) Recorder(ctx context.Context, userID string) (feedback.Recorder, error) {
	e, err := s.Engine(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Len 返回活跃会话数。
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Sweep 回收所有空闲超时的会话，返回回收数量。
func (s *Sessions) Sweep() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep(now)
}

// evict 在插入新会话前回收超时会话，并按上限淘汰最久未使用的会话。
func (s *Sessions) evict(now time.Time) {
	s.sweep(now)
	for s.max > 0 && s.lru.Len() >= s.max {
		s.remove(s.lru.Back())
	}
}

func (s *Sessions) sweep(now time.Time) int {
	n := 0
	for el := s.lru.Back(); el != nil; {
		prev := el.Prev()
		if !s.expired(el.Value.(*session), now) {
			break
		}
		s.remove(el)
		n++
		el = prev
	}
	return n
}

func (s *Sessions) expired(sess *session, now time.Time) bool {
	return s.idleTTL > 0 && now.Sub(sess.lastUsed) > s.idleTTL
}

func (s *Sessions) remove(el *list.Element) {
	sess := s.lru.Remove(el).(*session)
	delete(s.entries, sess.user)
}

func isInputError(err error) bool {
	return core.IsInvalidInput(err) || errors.Is(err, ErrMissingUser)
}
