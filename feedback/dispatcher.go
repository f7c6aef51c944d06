package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matheusschuckar/look-pro/core"
)

var (
	// ErrQueueFull 表示待处理事件已满，事件被丢弃
	ErrQueueFull = errors.New("feedback: queue full")

	// ErrClosed 表示 Dispatcher 已关闭
	ErrClosed = errors.New("feedback: dispatcher closed")
)

// Recorder 是事件的落地方，engine.Engine 满足此接口。
type Recorder interface {
	Bump(ctx context.Context, f core.Facet, key string, weight ...float64) error
	RecordTap(ctx context.Context, c *core.Candidate) error
	RecordFilterChip(ctx context.Context, f core.Facet, key string) error
}

// Resolver 按用户返回对应的 Recorder。
type Resolver func(ctx context.Context, userID string) (Recorder, error)

// Sink 接收已应用的事件（如写入 Kafka），必须非阻塞。
type Sink interface {
	Record(ev Event) error
	Close() error
}

// Dispatcher 在单个后台协程中按入队顺序应用事件，使 bump 不占用请求路径。
type Dispatcher struct {
	resolve   Resolver
	sinks     []Sink
	logger    zerolog.Logger
	now       func() time.Time
	onApplied func(Event, error)
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}
	once   sync.Once
}

// Option 配置 Dispatcher。
type Option func(*Dispatcher)

func WithSink(s Sink) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithQueueSize 设置待处理事件上限，默认 1024。
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
		}
	}
}

// WithClock 设置事件时间来源。
func WithClock(c core.Clock) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.now = c.Now
		}
	}
}

// WithAppliedHook 每个事件应用后回调。
func WithAppliedHook(fn func(Event, error)) Option {
	return func(d *Dispatcher) { d.onApplied = fn }
}

// WithApplyTimeout 限制单个事件的应用时间，默认 5 秒。
func WithApplyTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

var validate = validator.New()

func NewDispatcher(resolve Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolve: resolve,
		logger:  zerolog.Nop(),
		now:     time.Now,
		timeout: 5 * time.Second,
		queue:   make(chan Event, 1024),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.loop()
	return d
}

// Enqueue 校验事件、补全 ID 与时间并放入队列，不阻塞。
func (d *Dispatcher) Enqueue(ev Event) (Event, error) {
	if err := validate.Struct(ev); err != nil {
		return ev, fmt.Errorf("invalid event: %w", core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, err.Error()))
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = d.now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ev, ErrClosed
	}
	select {
	case d.queue <- ev:
		return ev, nil
	default:
		return ev, ErrQueueFull
	}
}

// Apply 同步应用单个事件。
func (d *Dispatcher) Apply(ctx context.Context, ev Event) error {
	r, err := d.resolve(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("resolve user %q: %w", ev.UserID, err)
	}
	switch ev.Kind {
	case KindTap:
		return r.RecordTap(ctx, ev.Candidate)
	case KindChip:
		f, ok := core.ParseFacet(ev.Facet)
		if !ok {
			return fmt.Errorf("unknown facet %q: %w", ev.Facet, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "unknown facet"))
		}
		return r.RecordFilterChip(ctx, f, ev.Key)
	case KindBump:
		f, ok := core.ParseFacet(ev.Facet)
		if !ok {
			return fmt.Errorf("unknown facet %q: %w", ev.Facet, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "unknown facet"))
		}
		return r.Bump(ctx, f, ev.Key, ev.Weights()...)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

// Close 停止接收事件，等待队列中的事件处理完毕并关闭 Sink。
func (d *Dispatcher) Close() error {
	var errs []error
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		<-d.done
		for _, s := range d.sinks {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.Apply(ctx, ev)
		cancel()

		if err != nil {
			d.logger.Warn().Err(err).Str("event", ev.ID).Str("kind", string(ev.Kind)).Msg("feedback event not applied")
		} else {
			for _, s := range d.sinks {
				if serr := s.Record(ev); serr != nil {
					d.logger.Warn().Err(serr).Str("event", ev.ID).Msg("feedback event not forwarded")
				}
			}
		}
		if d.onApplied != nil {
			d.onApplied(ev, err)
		}
	}
}
