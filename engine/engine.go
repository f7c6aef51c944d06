// Package engine 组装偏好存储、浏览计数与排序 Pipeline，对外提供会话级排序 API。
package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/feature"
	"github.com/matheusschuckar/look-pro/filter"
	"github.com/matheusschuckar/look-pro/model"
	"github.com/matheusschuckar/look-pro/pipeline"
	"github.com/matheusschuckar/look-pro/prefs"
	"github.com/matheusschuckar/look-pro/rank"
	"github.com/matheusschuckar/look-pro/rerank"
	"github.com/matheusschuckar/look-pro/store"
	"github.com/matheusschuckar/look-pro/views"
)

// Engine 是一个会话的排序引擎。
//
// 第一次 Rank 时执行一次衰减（配置 DecayInterval 后按间隔重复），
// 排序开始时读取一次偏好快照，排序过程中不再读取存储。
// 存储故障不会以 error 返回：读取得到空状态，写入被丢弃并记录日志，
// 排序退化为趋势 + 噪声。只有参数错误会返回 error。
type Engine struct {
	backend   core.Store
	prefs     *prefs.Store
	views     *views.Counter
	pipeline  *pipeline.Pipeline
	policy    Policy
	clock     core.Clock
	logger    zerolog.Logger
	metrics   *Metrics
	keyPrefix string

	rng    *lockedRand
	mu     sync.Mutex
	seed   uint32
	seeded bool

	decayMu   sync.Mutex
	lastDecay time.Time
}

// New 创建 Engine。backend 为 nil 时使用不可用存储（所有偏好退化为空）。
func New(backend core.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		backend: backend,
		policy:  DefaultPolicy(),
		clock:   core.SystemClock{},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.policy.Validate(); err != nil {
		return nil, err
	}
	if e.backend == nil {
		e.backend = store.Unavailable{}
	}
	if e.rng == nil {
		e.rng = &lockedRand{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	if !e.seeded {
		e.seed = rand.Uint32()
	}

	e.prefs = prefs.NewStore(e.backend,
		prefs.WithClock(e.clock),
		prefs.WithLogger(e.logger),
		prefs.WithKeys(e.keyPrefix+prefs.Key, e.keyPrefix+prefs.LegacyKey),
		prefs.WithPruneBelow(e.policy.PruneBelow),
		prefs.WithErrorHook(func(op string, _ error) { e.metrics.incStorageFailure(op) }),
	)
	e.views = views.NewCounter(e.backend,
		views.WithKey(e.keyPrefix+views.Key),
		views.WithLogger(e.logger),
	)
	if e.pipeline == nil {
		e.pipeline = &pipeline.Pipeline{Nodes: DefaultNodes(e.policy)}
	}
	if e.pipeline.Observer == nil {
		e.pipeline.Observer = e.observeNode
	}
	return e, nil
}

// DefaultNodes 按策略构建默认排序链：筛选 -> 特征 -> 线性打分 -> 探索注入 -> 截断。
func DefaultNodes(p Policy) []pipeline.Node {
	p = p.withDefaults()
	return []pipeline.Node{
		&filter.FilterNode{Filters: []filter.Filter{&filter.FacetFilter{}}},
		&feature.AffinityNode{Saturation: p.Saturation},
		&rank.ModelNode{Model: model.NewLinear(p.Weights), TrendBoost: p.TrendBoost},
		&rerank.ExploreNode{MaxInjected: p.MaxInjected, WindowStart: p.WindowStart, WindowEnd: p.WindowEnd},
		&rerank.TopNNode{N: p.TopN},
	}
}

// Policy 返回生效的策略。
func (e *Engine) Policy() Policy { return e.policy }

// Seed 返回当前会话噪声种子。
func (e *Engine) Seed() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seed
}

// Reseed 开始一个新会话：更换噪声种子，并在下一次 Rank 时重新衰减。
func (e *Engine) Reseed(seed uint32) {
	e.mu.Lock()
	e.seed = seed
	e.mu.Unlock()

	e.decayMu.Lock()
	e.lastDecay = time.Time{}
	e.decayMu.Unlock()
}

// Rank 对候选重新排序并返回新的切片；nil 候选被丢弃。
func (e *Engine) Rank(ctx context.Context, candidates []*core.Candidate, opts ...RankOption) ([]*core.Candidate, error) {
	var o rankOptions
	for _, opt := range opts {
		opt(&o)
	}
	start := time.Now()
	e.maybeDecay(ctx)

	snap, viewCounts := e.loadSnapshot(ctx)

	explore := e.rng.Float64() < e.policy.Epsilon
	if o.explore != nil {
		explore = *o.explore
	}

	rctx := &core.RecommendContext{
		UserID:   o.userID,
		Scene:    o.scene,
		Seed:     e.Seed(),
		Now:      e.clock.Now(),
		Explore:  explore,
		Affinity: snap,
		Views:    viewCounts,
		Rand:     e.rng,
		Params:   map[string]any{},
	}
	if o.criteria != nil {
		rctx.Params[filter.ParamCriteria] = o.criteria
	}
	if o.limit > 0 {
		rctx.Params["limit"] = o.limit
	}

	items, err := e.pipeline.Run(ctx, rctx, core.NewItems(candidates))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Warn().Err(err).Int("candidates", len(candidates)).Msg("ranking failed, returning feed unranked")
		return core.Candidates(core.NewItems(candidates)), nil
	}

	e.metrics.observeRank(time.Since(start), explore)
	e.logger.Debug().
		Int("candidates", len(candidates)).
		Int("ranked", len(items)).
		Bool("explore", explore).
		Dur("took", time.Since(start)).
		Msg("ranked feed")
	return core.Candidates(items), nil
}

// loadSnapshot 并发读取当前偏好、旧版计数与浏览计数。读取永不失败。
func (e *Engine) loadSnapshot(ctx context.Context) (*prefs.Snapshot, map[int64]int64) {
	var (
		current, legacy *prefs.State
		counts          map[int64]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		current = e.prefs.Load(gctx)
		return nil
	})
	g.Go(func() error {
		legacy = e.prefs.LoadLegacy(gctx)
		return nil
	})
	g.Go(func() error {
		counts = e.views.Load(gctx)
		return nil
	})
	_ = g.Wait()
	return prefs.NewSnapshot(current, legacy), counts
}

func (e *Engine) maybeDecay(ctx context.Context) {
	e.decayMu.Lock()
	defer e.decayMu.Unlock()

	now := e.clock.Now()
	if !e.lastDecay.IsZero() && (e.policy.DecayInterval <= 0 || now.Sub(e.lastDecay) < e.policy.DecayInterval) {
		return
	}
	e.lastDecay = now
	if _, err := e.prefs.DecayAll(ctx, e.policy.HalfLifeDays); err != nil {
		e.logger.Warn().Err(err).Msg("session decay not persisted")
	}
}

// DecayAll 以 halfLifeDays 衰减全部偏好并写回。半衰期非法时返回 prefs.ErrInvalidHalfLife，
// 存储故障被记录并忽略。
func (e *Engine) DecayAll(ctx context.Context, halfLifeDays float64) error {
	_, err := e.prefs.DecayAll(ctx, halfLifeDays)
	if err == nil {
		return nil
	}
	if errors.Is(err, prefs.ErrInvalidHalfLife) {
		return err
	}
	e.logger.Warn().Err(err).Msg("decay not persisted")
	return nil
}

// GetPreferences 返回按当前时间衰减后的偏好快照（只读副本，不写回）。
func (e *Engine) GetPreferences(ctx context.Context) *prefs.State {
	st := e.prefs.Load(ctx)
	if _, err := prefs.Decay(st, e.policy.HalfLifeDays, e.clock.Now(), 0); err != nil {
		e.logger.Warn().Err(err).Msg("preferences snapshot not decayed")
	}
	return st
}

// OnExternalChange 订阅其他写入方（其他进程/实例）对偏好的修改。
func (e *Engine) OnExternalChange(ctx context.Context, fn func(*prefs.State)) (stop func(), err error) {
	return e.prefs.OnExternalChange(ctx, fn)
}

// WatchViews 订阅其他写入方的浏览计数并合并到本地。
func (e *Engine) WatchViews(ctx context.Context) (stop func(), err error) {
	return e.views.Watch(ctx)
}

func (e *Engine) observeNode(node pipeline.Node, in, out int, d time.Duration, err error) {
	e.metrics.observeNode(node.Name(), d)
	if err != nil {
		e.logger.Warn().Err(err).Str("node", node.Name()).Msg("pipeline node failed")
		return
	}
	if in != out {
		e.logger.Debug().Str("node", node.Name()).Int("in", in).Int("out", out).Msg("pipeline node changed item count")
	}
}

// lockedRand 让多个并发 Rank 共享一个非并发安全的随机源。
type lockedRand struct {
	mu sync.Mutex
	r  core.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
