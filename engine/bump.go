package engine

import (
	"context"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/feature"
	"github.com/matheusschuckar/look-pro/prefs"
)

func (e *Engine) BumpCategory(ctx context.Context, key string, weight ...float64) error {
	return e.Bump(ctx, core.FacetCategory, key, weight...)
}

func (e *Engine) BumpStore(ctx context.Context, key string, weight ...float64) error {
	return e.Bump(ctx, core.FacetStore, key, weight...)
}

func (e *Engine) BumpGender(ctx context.Context, key string, weight ...float64) error {
	return e.Bump(ctx, core.FacetGender, key, weight...)
}

func (e *Engine) BumpSize(ctx context.Context, key string, weight ...float64) error {
	return e.Bump(ctx, core.FacetSize, key, weight...)
}

func (e *Engine) BumpPriceBucket(ctx context.Context, key string, weight ...float64) error {
	return e.Bump(ctx, core.FacetPrice, key, weight...)
}

func (e *Engine) BumpEtaBucket(ctx context.Context, key string, weight ...float64) error {
	return e.Bump(ctx, core.FacetETA, key, weight...)
}

func (e *Engine) BumpProduct(ctx context.Context, id int64, weight ...float64) error {
	return e.Bump(ctx, core.FacetProduct, core.ProductKey(id), weight...)
}

// Bump 为 f/key 累加权重（默认取 prefs.DefaultIncrements）。
// 参数错误返回 error；存储故障被记录并忽略。
func (e *Engine) Bump(ctx context.Context, f core.Facet, key string, weight ...float64) error {
	_, err := e.prefs.Bump(ctx, f, key, prefs.IncrementFor(f, weight...))
	return e.afterBump(err, f)
}

// RecordTap 记录一次商品点击：按点击权重表累加类目、店铺、性别、价格档、时效档与商品，
// 一次写回，并增加浏览计数。商品缺失的属性被跳过。
func (e *Engine) RecordTap(ctx context.Context, c *core.Candidate) error {
	if c == nil {
		return prefs.ErrEmptyKey
	}
	keys := map[core.Facet]string{
		core.FacetCategory: c.PrimaryCategory(),
		core.FacetStore:    c.StoreName,
		core.FacetGender:   c.Gender,
		core.FacetPrice:    feature.PriceBucket(c.PriceValue()),
		core.FacetETA:      feature.ETABucket(c.ETA()),
		core.FacetProduct:  core.ProductKey(c.ID),
	}

	var bumped []core.Facet
	_, err := e.prefs.Update(ctx, func(st *prefs.State) error {
		now := e.clock.Now()
		bumped = bumped[:0]
		for _, f := range core.AllFacets {
			key, ok := keys[f]
			if !ok || core.NormalizeKey(key) == "" {
				continue
			}
			if _, err := prefs.Apply(st, f, key, prefs.TapIncrements[f], now); err != nil {
				return err
			}
			bumped = append(bumped, f)
		}
		return nil
	})
	for _, f := range bumped {
		e.metrics.incBump(string(f))
	}
	if err != nil {
		e.logger.Warn().Err(err).Int64("product", c.ID).Msg("tap not persisted")
	}

	if _, err := e.views.Increment(ctx, c.ID); err != nil {
		e.metrics.incStorageFailure("views")
		e.logger.Warn().Err(err).Int64("product", c.ID).Msg("view not persisted")
	}
	return nil
}

// RecordFilterChip 记录一次筛选 chip 点选。
func (e *Engine) RecordFilterChip(ctx context.Context, f core.Facet, key string) error {
	return e.Bump(ctx, f, key, prefs.ChipIncrement)
}

func (e *Engine) afterBump(err error, f core.Facet) error {
	if err == nil {
		e.metrics.incBump(string(f))
		return nil
	}
	if core.IsInvalidInput(err) {
		return err
	}
	e.metrics.incBump(string(f))
	e.logger.Warn().Err(err).Str("facet", string(f)).Msg("bump not persisted")
	return nil
}
