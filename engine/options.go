package engine

import (
	"github.com/rs/zerolog"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/filter"
	"github.com/matheusschuckar/look-pro/pipeline"
)

// Option 配置 Engine。
type Option func(*Engine)

func WithClock(c core.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRand 注入探索用的随机源（掷硬币与注入位置）。
func WithRand(r core.Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = &lockedRand{r: r}
		}
	}
}

// WithSeed 固定会话噪声种子。
func WithSeed(seed uint32) Option {
	return func(e *Engine) {
		e.seed = seed
		e.seeded = true
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPolicy 替换默认策略，零值字段补默认值。
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p.withDefaults() }
}

// WithPipeline 使用自定义 Pipeline 替换按策略构建的默认 Pipeline。
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

// WithKeyPrefix 为偏好、旧版计数与浏览计数的 key 加前缀。
func WithKeyPrefix(prefix string) Option {
	return func(e *Engine) { e.keyPrefix = prefix }
}

// RankOption 配置单次 Rank 调用。
type RankOption func(*rankOptions)

type rankOptions struct {
	explore  *bool
	criteria *filter.Criteria
	limit    int
	userID   string
	scene    string
}

// WithExplore 强制开启或关闭本次探索，跳过掷硬币。
func WithExplore(on bool) RankOption {
	return func(o *rankOptions) { o.explore = &on }
}

// WithCriteria 设置本次筛选条件。
func WithCriteria(c *filter.Criteria) RankOption {
	return func(o *rankOptions) { o.criteria = c }
}

// WithLimit 截断结果数量。
func WithLimit(n int) RankOption {
	return func(o *rankOptions) { o.limit = n }
}

// WithUser 设置用户与场景，供屏蔽列表与 CEL 规则使用。
func WithUser(userID, scene string) RankOption {
	return func(o *rankOptions) {
		o.userID = userID
		o.scene = scene
	}
}
