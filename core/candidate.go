package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Candidate 是上游商品目录返回的候选商品，排序过程中只读。
// 可选字段缺失时对应维度的偏好得分为 0。
type Candidate struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	StoreName  string     `json:"store_name"`
	StoreID    *int64     `json:"store_id,omitempty"`
	StoreSlug  string     `json:"store_slug,omitempty"`
	PhotoURL   StringList `json:"photo_url,omitempty"`
	Price      *float64   `json:"price_tag,omitempty"`
	Category   string     `json:"category,omitempty"`
	Categories []string   `json:"categories,omitempty"`
	Gender     string     `json:"gender,omitempty"`
	Sizes      StringList `json:"sizes,omitempty"`
	ViewCount  *int64     `json:"view_count,omitempty"`

	// ETATextRuntime 来自实时视图，优先于 ETAText
	ETATextRuntime string `json:"eta_text_runtime,omitempty"`
	ETAText        string `json:"eta_text,omitempty"`
}

// AllCategories 合并 category 与 categories：去空白、小写、去重，保持出现顺序。
func (c *Candidate) AllCategories() []string {
	seen := make(map[string]struct{}, len(c.Categories)+1)
	out := make([]string, 0, len(c.Categories)+1)
	add := func(s string) {
		k := NormalizeKey(s)
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	add(c.Category)
	for _, s := range c.Categories {
		add(s)
	}
	return out
}

// PrimaryCategory 返回第一个有效类目，没有时返回空串。
func (c *Candidate) PrimaryCategory() string {
	if cats := c.AllCategories(); len(cats) > 0 {
		return cats[0]
	}
	return ""
}

// ETA 返回展示用的配送时间文案，实时文案优先。
func (c *Candidate) ETA() string {
	if s := strings.TrimSpace(c.ETATextRuntime); s != "" {
		return s
	}
	return strings.TrimSpace(c.ETAText)
}

// SizeKeys 返回大写、去空白后的尺码列表（PP/P/M/G/GG）。
func (c *Candidate) SizeKeys() []string {
	out := make([]string, 0, len(c.Sizes))
	for _, s := range c.Sizes {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PriceValue 返回价格；缺失或非正数时 ok 为 false。
func (c *Candidate) PriceValue() (float64, bool) {
	if c.Price == nil || *c.Price <= 0 {
		return 0, false
	}
	return *c.Price, true
}

// Views 返回外部热度，缺失时为 0。
func (c *Candidate) Views() int64 {
	if c.ViewCount == nil || *c.ViewCount < 0 {
		return 0
	}
	return *c.ViewCount
}

// StringList 兼容 "a,b" 与 ["a","b"] 两种 JSON 形态，统一按逗号拆分。
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	var parts []string
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parts = []string{s}
	case '[':
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
	default:
		return fmt.Errorf("string list: unexpected json %q", data)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		for _, s := range strings.Split(p, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	*l = out
	return nil
}
