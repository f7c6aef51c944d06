package pipeline

import (
	"context"

	"github.com/matheusschuckar/look-pro/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindFilter      Kind = "filter"      // 过滤阶段：剔除不符合筛选条件的候选
	KindFeature     Kind = "feature"     // 特征阶段：写入偏好/趋势/噪声特征
	KindRank        Kind = "rank"        // 排序阶段：对候选打分并排序
	KindReRank      Kind = "rerank"      // 重排阶段：探索注入、截断
	KindPostProcess Kind = "postprocess" // 后处理阶段：最终结果修饰
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 items -> 输出 items”的形态，方便 Filter 截断、ReRank 重排等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// NodeBuilder 根据配置构建 Node。
type NodeBuilder func(config map[string]any) (Node, error)
