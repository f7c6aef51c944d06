package rank

import (
	"context"
	"maps"
	"sort"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/model"
	"github.com/matheusschuckar/look-pro/pipeline"
	"github.com/matheusschuckar/look-pro/pkg/utils"
)

// DefaultTrendBoost 是探索会话中趋势权重的放大倍数。
const DefaultTrendBoost = 2.2

// ModelNode 使用 RankModel 给每个候选打分，并按分数降序稳定排序。
// - 写入 labels：rank_model
// - rctx.Explore 为真时，趋势特征的权重乘以 TrendBoost
type ModelNode struct {
	Model model.RankModel

	// TrendBoost <= 0 时使用 DefaultTrendBoost
	TrendBoost float64

	// TrendFeature 默认 "trend"
	TrendFeature string
}

func (n *ModelNode) Name() string        { return "rank.linear" }
func (n *ModelNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *ModelNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Model == nil || len(items) == 0 {
		return items, nil
	}

	m, scaleTrend := n.modelFor(rctx)
	trend := n.trendFeature()

	for _, it := range items {
		if it == nil {
			continue
		}
		features := it.Features
		if scaleTrend != 1 {
			features = maps.Clone(it.Features)
			if features != nil {
				features[trend] *= scaleTrend
			}
		}
		score, err := m.Predict(features)
		if err != nil {
			return nil, err
		}
		it.Score = score
		it.PutLabel("rank_model", utils.Label{Value: m.Name(), Source: "rank"})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		return items[i].Score > items[j].Score
	})
	return items, nil
}

// modelFor 返回本次请求使用的模型；Scalable 模型直接放大权重，其它模型改为放大特征值。
func (n *ModelNode) modelFor(rctx *core.RecommendContext) (model.RankModel, float64) {
	if rctx == nil || !rctx.Explore {
		return n.Model, 1
	}
	boost := n.TrendBoost
	if boost <= 0 {
		boost = DefaultTrendBoost
	}
	if sm, ok := n.Model.(model.Scalable); ok {
		return sm.Scaled(n.trendFeature(), boost), 1
	}
	return n.Model, boost
}

func (n *ModelNode) trendFeature() string {
	if n.TrendFeature != "" {
		return n.TrendFeature
	}
	return "trend"
}
