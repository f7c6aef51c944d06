package rerank

import (
	"context"
	"math/rand/v2"
	"slices"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/pipeline"
	"github.com/matheusschuckar/look-pro/pkg/utils"
)

// 探索注入默认参数。
const (
	DefaultMaxInjected = 6
	DefaultDivisor     = 8
	DefaultWindowStart = 3
	DefaultWindowEnd   = 24
	DefaultFirstSlot   = 1
	DefaultStride      = 2
)

// ExploreNode 在探索会话中把头部窗口内随机挑出的物品提前到固定槽位。
//
// 仅当 rctx.Explore 为真时生效：k = min(MaxInjected, n/Divisor, 窗口大小)，
// 窗口为 [WindowStart, min(WindowEnd, n))；第 i 个被选中的物品插回
// min(FirstSlot + i×Stride, len) 处。窗口之外的物品位置不变。
// 随机源取 rctx.Rand，为空时以 rctx.Seed 构造确定性 PCG。
type ExploreNode struct {
	MaxInjected int
	Divisor     int
	WindowStart int
	WindowEnd   int
	FirstSlot   int
	Stride      int
}

func (n *ExploreNode) Name() string {
	return "rerank.explore"
}

func (n *ExploreNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *ExploreNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if rctx == nil || !rctx.Explore {
		return items, nil
	}

	start, end := orDefault(n.WindowStart, DefaultWindowStart), min(orDefault(n.WindowEnd, DefaultWindowEnd), len(items))
	if end <= start {
		return items, nil
	}
	k := min(orDefault(n.MaxInjected, DefaultMaxInjected), len(items)/orDefault(n.Divisor, DefaultDivisor), end-start)
	if k <= 0 {
		return items, nil
	}

	rng := rctx.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(rctx.Seed), 0x6c6f6f6b))
	}

	// 部分 Fisher-Yates：window[:k] 即按抽取顺序的 k 个不同下标
	window := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		window = append(window, i)
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(window)-i)
		window[i], window[j] = window[j], window[i]
	}
	picked := window[:k]

	chosen := make([]*core.Item, 0, k)
	for _, idx := range picked {
		chosen = append(chosen, items[idx])
	}
	rest := make([]*core.Item, 0, len(items))
	for i, it := range items {
		if !slices.Contains(picked, i) {
			rest = append(rest, it)
		}
	}

	first, stride := orDefault(n.FirstSlot, DefaultFirstSlot), orDefault(n.Stride, DefaultStride)
	for i, it := range chosen {
		if it != nil {
			it.PutLabel("explore", utils.Label{Value: "injected", Source: "rerank"})
		}
		pos := min(first+i*stride, len(rest))
		rest = slices.Insert(rest, pos, it)
	}
	return rest, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
