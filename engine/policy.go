package engine

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/matheusschuckar/look-pro/feature"
	"github.com/matheusschuckar/look-pro/model"
	"github.com/matheusschuckar/look-pro/prefs"
	"github.com/matheusschuckar/look-pro/rank"
	"github.com/matheusschuckar/look-pro/rerank"
)

// Policy 汇总排序策略常量。零值字段在 withDefaults 中补默认值，
// Epsilon、PruneBelow、DecayInterval、TopN 的零值有含义，保持不变。
type Policy struct {
	// HalfLifeDays 偏好半衰期（天）
	HalfLifeDays float64 `koanf:"half_life_days" validate:"gt=0"`

	// DecayInterval 长连接进程中两次衰减的最小间隔，0 表示每个会话只衰减一次
	DecayInterval time.Duration `koanf:"decay_interval" validate:"gte=0"`

	// Epsilon 探索概率，0 关闭探索
	Epsilon float64 `koanf:"epsilon" validate:"gte=0,lte=1"`

	// TrendBoost 探索会话中趋势权重的倍数
	TrendBoost float64 `koanf:"trend_boost" validate:"gte=1"`

	// Saturation 外部热度饱和值
	Saturation float64 `koanf:"saturation" validate:"gt=0"`

	// PruneBelow 衰减后删除低于该值的 key，0 表示保留
	PruneBelow float64 `koanf:"prune_below" validate:"gte=0"`

	// Weights 覆盖线性模型的特征权重
	Weights map[string]float64 `koanf:"weights" validate:"dive,gte=0"`

	MaxInjected int `koanf:"max_injected" validate:"gte=0"`
	WindowStart int `koanf:"window_start" validate:"gte=0"`
	WindowEnd   int `koanf:"window_end" validate:"gtfield=WindowStart"`

	// TopN 结果截断，0 表示不截断
	TopN int `koanf:"top_n" validate:"gte=0"`
}

// DefaultPolicy 返回默认策略。
func DefaultPolicy() Policy {
	return Policy{
		HalfLifeDays: prefs.DefaultHalfLifeDays,
		Epsilon:      0.08,
		TrendBoost:   rank.DefaultTrendBoost,
		Saturation:   feature.DefaultSaturation,
		Weights:      model.DefaultWeights(),
		MaxInjected:  rerank.DefaultMaxInjected,
		WindowStart:  rerank.DefaultWindowStart,
		WindowEnd:    rerank.DefaultWindowEnd,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.HalfLifeDays == 0 {
		p.HalfLifeDays = d.HalfLifeDays
	}
	if p.TrendBoost == 0 {
		p.TrendBoost = d.TrendBoost
	}
	if p.Saturation == 0 {
		p.Saturation = d.Saturation
	}
	if p.MaxInjected == 0 {
		p.MaxInjected = d.MaxInjected
	}
	if p.WindowStart == 0 {
		p.WindowStart = d.WindowStart
	}
	if p.WindowEnd == 0 {
		p.WindowEnd = d.WindowEnd
	}
	return p
}

var validate = validator.New()

// Validate 校验策略取值。
func (p Policy) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}
	return nil
}
