package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/matheusschuckar/look-pro/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译后的规则表达式，可并发重复执行。
//
// 表达式使用 CEL 语法，可访问：
//   - item.id / item.name / item.store / item.category / item.categories
//   - item.gender / item.sizes / item.price / item.has_price / item.eta / item.views
//   - item.score / item.features["category"]
//   - label.explore（Label 的 value）
//   - rctx.scene / rctx.explore / rctx.params
//
// 示例：
//   - `item.has_price && item.price < 300.0`
//   - `"tenis" in item.categories && item.gender == "female"`
//   - `item.views >= 10`
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，语法错误在此阶段返回。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

func (p *Program) String() string { return p.expr }

// Eval 对单个 item 执行表达式，返回布尔结果。
func (p *Program) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// Evaluate 编译并执行一次表达式；空表达式视为 true。
func Evaluate(expr string, item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if expr == "" {
		return true, nil
	}
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Eval(item, rctx)
}

func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(it.Labels))
	for k, v := range it.Labels {
		labels[k] = v.Value
	}

	item := map[string]any{
		"id":         it.ID,
		"score":      it.Score,
		"features":   it.Features,
		"name":       "",
		"store":      "",
		"category":   "",
		"categories": []string{},
		"gender":     "",
		"sizes":      []string{},
		"price":      0.0,
		"has_price":  false,
		"eta":        "",
		"views":      int64(0),
	}
	if c := it.Candidate; c != nil {
		item["name"] = c.Name
		item["store"] = core.NormalizeKey(c.StoreName)
		item["category"] = c.PrimaryCategory()
		item["categories"] = c.AllCategories()
		item["gender"] = core.NormalizeKey(c.Gender)
		item["sizes"] = c.SizeKeys()
		if price, ok := c.PriceValue(); ok {
			item["price"] = price
			item["has_price"] = true
		}
		item["eta"] = c.ETA()
		item["views"] = c.Views()
	}

	ctx := map[string]any{
		"user_id": "",
		"scene":   "",
		"explore": false,
		"params":  map[string]any{},
	}
	if rctx != nil {
		ctx["user_id"] = rctx.UserID
		ctx["scene"] = rctx.Scene
		ctx["explore"] = rctx.Explore
		if rctx.Params != nil {
			ctx["params"] = rctx.Params
		}
	}

	return map[string]any{
		"item":  item,
		"label": labels,
		"rctx":  ctx,
	}
}
