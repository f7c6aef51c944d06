package rerank

import (
	"context"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/pipeline"
	"github.com/matheusschuckar/look-pro/pkg/conv"
)

// TopNNode 在排序与探索之后截取前 N 个物品。
//
// 请求参数 limit（rctx.Params["limit"]）存在且大于 0 时覆盖 N。
type TopNNode struct {
	// N 要保留的物品数量，<= 0 时不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if v, ok := rctx.Param("limit"); ok {
		if l, ok := conv.ToInt64(v); ok && l > 0 {
			limit = int(l)
		}
	}
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
