package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matheusschuckar/look-pro/core"
)

// Pipeline 把排序逻辑拆成可组合的 Node 链，按顺序执行。
type Pipeline struct {
	Nodes []Node

	// Observer 在每个 Node 执行后回调（打点/日志），可为空
	Observer func(node Node, in, out int, elapsed time.Duration, err error)
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if p.Observer != nil {
			p.Observer(node, len(cur), len(next), time.Since(start), err)
		}
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}

// With 返回在当前节点前插入 head、之后追加 tail 的新 Pipeline，原 Pipeline 不变。
func (p *Pipeline) With(head []Node, tail ...Node) *Pipeline {
	nodes := make([]Node, 0, len(head)+len(p.Nodes)+len(tail))
	nodes = append(nodes, head...)
	nodes = append(nodes, p.Nodes...)
	nodes = append(nodes, tail...)
	return &Pipeline{Nodes: nodes, Observer: p.Observer}
}
