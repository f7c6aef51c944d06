package core

import "github.com/matheusschuckar/look-pro/pkg/utils"

// Item 是排序链路中的统一承载结构：候选商品、特征、分数、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID       int64
	Score    float64
	Features map[string]float64
	Labels   map[string]utils.Label

	// Candidate 是原始商品数据，只读
	Candidate *Candidate
}

func NewItem(c *Candidate) *Item {
	it := &Item{
		Features:  make(map[string]float64),
		Labels:    make(map[string]utils.Label),
		Candidate: c,
	}
	if c != nil {
		it.ID = c.ID
	}
	return it
}

// NewItems 将候选列表包装为 Item，nil 候选被跳过。
func NewItems(cands []*Candidate) []*Item {
	items := make([]*Item, 0, len(cands))
	for _, c := range cands {
		if c == nil {
			continue
		}
		items = append(items, NewItem(c))
	}
	return items
}

// Candidates 按 items 的当前顺序取回候选商品。
func Candidates(items []*Item) []*Candidate {
	out := make([]*Candidate, 0, len(items))
	for _, it := range items {
		if it == nil || it.Candidate == nil {
			continue
		}
		out = append(out, it.Candidate)
	}
	return out
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Feature 读取特征值，不存在时返回 0。
func (it *Item) Feature(name string) float64 {
	if it.Features == nil {
		return 0
	}
	return it.Features[name]
}
