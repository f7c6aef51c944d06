package filter

import (
	"context"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/pkg/dsl"
)

// ExprFilter 使用 CEL 表达式过滤：表达式为 true 的物品保留，false 的被过滤。
//
// 示例：
//
//	item.has_price && item.price < 300.0
//	"shoes" in item.categories || rctx.scene == "home"
type ExprFilter struct {
	Program *dsl.Program
}

// NewExprFilter 编译表达式，语法错误在构建时返回。
func NewExprFilter(expr string) (*ExprFilter, error) {
	p, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{Program: p}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if f.Program == nil {
		return false, nil
	}
	keep, err := f.Program.Eval(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
