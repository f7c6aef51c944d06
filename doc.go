// Package lookpro 是商品信息流的偏好排序工具包。
//
// 设计要点：
// - Pipeline-first: 排序逻辑通过 Node 串联（Filter → Feature → Rank → ReRank）
// - 偏好由被动交互信号（点击、筛选）累积，按半衰期衰减
// - 打分 = 七个维度的归一化偏好 + 热度趋势 + 会话级噪声，并保留少量探索
package lookpro

import "github.com/matheusschuckar/look-pro/pipeline"

// 轻量 facade：便于直接 import 根包使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindFilter      = pipeline.KindFilter
	KindFeature     = pipeline.KindFeature
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
