package feature

import (
	"context"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/pipeline"
)

// AffinityNode 是特征注入节点：为每个候选写入七个维度的归一化偏好、趋势分与噪声。
//
// 偏好来自 rctx.Affinity（请求开始时的快照），浏览计数来自 rctx.Views，
// 噪声种子来自 rctx.Seed。属性缺失时对应特征为 0。
type AffinityNode struct {
	// Saturation 外部热度饱和值，<= 0 时使用 DefaultSaturation
	Saturation float64

	// KeysFunc 自定义维度 key 推导，默认 KeysOf
	KeysFunc func(c *core.Candidate) FacetKeys
}

func (n *AffinityNode) Name() string {
	return "feature.affinity"
}

func (n *AffinityNode) Kind() pipeline.Kind {
	return pipeline.KindFeature
}

func (n *AffinityNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	keysOf := n.KeysFunc
	if keysOf == nil {
		keysOf = KeysOf
	}

	var (
		affinity core.AffinityScorer
		views    map[int64]int64
		seed     uint32
	)
	if rctx != nil {
		affinity, views, seed = rctx.Affinity, rctx.Views, rctx.Seed
	}
	maxLocal := MaxViews(views)

	for _, it := range items {
		if it == nil {
			continue
		}
		if it.Features == nil {
			it.Features = make(map[string]float64)
		}

		keys := keysOf(it.Candidate)
		for _, f := range core.AllFacets {
			it.Features[FacetFeatures[f]] = keys.Score(affinity, f)
		}

		var external int64
		if it.Candidate != nil {
			external = it.Candidate.Views()
		}
		it.Features[FeatureTrend] = Trend(views[it.ID], maxLocal, external, n.Saturation)
		it.Features[FeatureNoise] = Noise(it.ID, seed)
	}
	return items, nil
}
