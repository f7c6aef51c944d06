// Package feedback 把交互事件（点击、筛选 chip、显式 bump）异步地应用到偏好，
// 并可选地投递到事件流。
package feedback

import (
	"time"

	"github.com/matheusschuckar/look-pro/core"
)

// Kind 是交互事件类型。
type Kind string

const (
	KindTap  Kind = "tap"  // 点击商品卡片
	KindChip Kind = "chip" // 点选筛选 chip
	KindBump Kind = "bump" // 显式累加某个维度
)

// Event 是一次用户交互。
type Event struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind" validate:"required,oneof=tap chip bump"`
	UserID    string          `json:"user_id"`
	Facet     string          `json:"facet,omitempty" validate:"required_unless=Kind tap"`
	Key       string          `json:"key,omitempty" validate:"required_unless=Kind tap"`
	Weight    *float64        `json:"weight,omitempty" validate:"omitempty,gte=0"`
	Candidate *core.Candidate `json:"candidate,omitempty" validate:"required_if=Kind tap"`
	At        time.Time       `json:"at"`
}

// Weights 返回可变参数形式的权重，未设置时为空。
func (e Event) Weights() []float64 {
	if e.Weight == nil {
		return nil
	}
	return []float64{*e.Weight}
}
