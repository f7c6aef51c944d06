package core

import (
	"time"

	"github.com/matheusschuckar/look-pro/pkg/utils"
)

// RecommendContext 承载会话/偏好快照/实时信号，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Scene  string

	// Seed 是会话级噪声种子，同一会话内保持不变
	Seed uint32

	// Now 是本次请求的时间点
	Now time.Time

	// Explore 表示本次请求是否进入探索模式
	Explore bool

	// Affinity 是本次请求开始时的偏好快照，排序过程中不会重新读取
	Affinity AffinityScorer

	// Views 是本地浏览计数（商品 ID -> 次数）
	Views map[int64]int64

	// Rand 供探索注入等随机策略使用
	Rand Rand

	// Labels 是会话级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级参数，例如 query、selected_categories、chip_category 等
	Params map[string]any
}

// PutLabel 写入会话级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取会话级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// Param 读取请求参数。
func (rctx *RecommendContext) Param(key string) (any, bool) {
	if rctx == nil || rctx.Params == nil {
		return nil, false
	}
	v, ok := rctx.Params[key]
	return v, ok
}
