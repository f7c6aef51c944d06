// Package filter 实现排序前的候选过滤：筛选条件、CEL 规则与屏蔽列表。
package filter

import (
	"context"

	"github.com/matheusschuckar/look-pro/core"
)

// Filter 判断候选是否应当移除，返回 true 表示移除。
type Filter interface {
	Name() string
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Func 把谓词函数适配为 Filter，适合一次性的业务规则。
type Func struct {
	FilterName string
	Drop       func(rctx *core.RecommendContext, item *core.Item) bool
}

func (f Func) Name() string { return f.FilterName }

func (f Func) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	if f.Drop == nil {
		return false, nil
	}
	return f.Drop(rctx, item), nil
}
