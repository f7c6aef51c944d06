package filter

import (
	"context"
	"slices"
	"strings"

	"github.com/matheusschuckar/look-pro/core"
)

// ChipAll 是“全部类目”chip 的取值。
const ChipAll = "Tudo"

// ParamCriteria 是 rctx.Params 中筛选条件的 key。
const ParamCriteria = "criteria"

// Criteria 是 feed 顶部的筛选条件。零值表示不过滤。
type Criteria struct {
	// Query 在名称、店铺、类目中做不区分大小写的子串匹配
	Query string `json:"query,omitempty"`

	// Categories 多选类目（任一命中），非空时忽略 Chip
	Categories []string `json:"categories,omitempty"`

	// Chip 单选类目，空或 "Tudo" 表示全部
	Chip string `json:"chip,omitempty"`

	// Genders 多选性别
	Genders []string `json:"genders,omitempty"`

	// Sizes 多选尺码（PP/P/M/G/GG）
	Sizes []string `json:"sizes,omitempty"`
}

// Empty 判断是否没有任何筛选条件。
func (c *Criteria) Empty() bool {
	if c == nil {
		return true
	}
	chip := strings.TrimSpace(c.Chip)
	return strings.TrimSpace(c.Query) == "" &&
		len(c.Categories) == 0 &&
		(chip == "" || strings.EqualFold(chip, ChipAll)) &&
		len(c.Genders) == 0 &&
		len(c.Sizes) == 0
}

// Match 判断候选是否满足全部条件。
func (c *Criteria) Match(cand *core.Candidate) bool {
	if c.Empty() {
		return true
	}
	if cand == nil {
		return false
	}
	cats := cand.AllCategories()

	if q := core.NormalizeKey(c.Query); q != "" {
		hit := strings.Contains(strings.ToLower(cand.Name), q) ||
			strings.Contains(strings.ToLower(cand.StoreName), q) ||
			slices.ContainsFunc(cats, func(cat string) bool { return strings.Contains(cat, q) })
		if !hit {
			return false
		}
	}

	if selected := normalizeAll(c.Categories, core.NormalizeKey); len(selected) > 0 {
		if !intersects(selected, cats) {
			return false
		}
	} else if chip := core.NormalizeKey(c.Chip); chip != "" && chip != strings.ToLower(ChipAll) {
		if !slices.Contains(cats, chip) {
			return false
		}
	}

	if genders := normalizeAll(c.Genders, core.NormalizeKey); len(genders) > 0 {
		g := core.NormalizeKey(cand.Gender)
		if g == "" || !slices.Contains(genders, g) {
			return false
		}
	}

	if sizes := normalizeAll(c.Sizes, upper); len(sizes) > 0 {
		if !intersects(sizes, cand.SizeKeys()) {
			return false
		}
	}
	return true
}

// FacetFilter 按 Criteria 过滤候选。Criteria 为空时读取 rctx.Params["criteria"]。
type FacetFilter struct {
	Criteria *Criteria
}

func (f *FacetFilter) Name() string {
	return "filter.facet"
}

func (f *FacetFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	c := f.Criteria
	if c == nil {
		c = CriteriaFrom(rctx)
	}
	return !c.Match(item.Candidate), nil
}

// CriteriaFrom 从请求参数中取出筛选条件，没有时返回 nil。
func CriteriaFrom(rctx *core.RecommendContext) *Criteria {
	v, ok := rctx.Param(ParamCriteria)
	if !ok {
		return nil
	}
	switch c := v.(type) {
	case *Criteria:
		return c
	case Criteria:
		return &c
	default:
		return nil
	}
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func normalizeAll(in []string, norm func(string) string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = norm(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intersects(a, b []string) bool {
	return slices.ContainsFunc(a, func(s string) bool { return slices.Contains(b, s) })
}
