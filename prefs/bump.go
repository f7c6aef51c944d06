package prefs

import (
	"math"
	"time"

	"github.com/matheusschuckar/look-pro/core"
)

// DefaultIncrements 是各维度单次累加的默认权重。
var DefaultIncrements = map[core.Facet]float64{
	core.FacetCategory: 1.0,
	core.FacetStore:    0.8,
	core.FacetGender:   0.5,
	core.FacetSize:     0.4,
	core.FacetPrice:    0.5,
	core.FacetETA:      0.3,
	core.FacetProduct:  1.2,
}

// TapIncrements 是点击商品卡片时各维度的累加权重（不含尺码）。
var TapIncrements = map[core.Facet]float64{
	core.FacetCategory: 1.2,
	core.FacetStore:    1.0,
	core.FacetGender:   0.5,
	core.FacetPrice:    0.5,
	core.FacetETA:      0.3,
	core.FacetProduct:  1.2,
}

// ChipIncrement 是点选筛选 chip 时的累加权重。
const ChipIncrement = 0.4

var (
	// ErrEmptyKey 表示规范化后 key 为空，调用被忽略
	ErrEmptyKey = core.NewDomainError(core.ModulePrefs, core.ErrorCodeInvalidInput, "prefs: empty key")

	// ErrInvalidWeight 表示累加权重为负数或非有限数
	ErrInvalidWeight = core.NewDomainError(core.ModulePrefs, core.ErrorCodeInvalidInput, "prefs: increment must be a non-negative finite number")

	// ErrUnknownFacet 表示维度未知
	ErrUnknownFacet = core.NewDomainError(core.ModulePrefs, core.ErrorCodeInvalidInput, "prefs: unknown facet")
)

// Apply 在 State 上累加一次：key 规范化，缺失时从 0 创建，权重 += inc，时间戳推进到 now。
// 时钟回拨时时间戳保持不变，LastUpdated 不会减小。
// 返回规范化后的 key。
func Apply(s *State, f core.Facet, key string, inc float64, now time.Time) (string, error) {
	if !f.Valid() {
		return "", ErrUnknownFacet
	}
	key = core.NormalizeKey(key)
	if key == "" {
		return "", ErrEmptyKey
	}
	if math.IsNaN(inc) || math.IsInf(inc, 0) || inc < 0 {
		return "", ErrInvalidWeight
	}

	tbl := s.Table(f)
	st, ok := tbl[key]
	if !ok {
		st = &KeyStat{}
		tbl[key] = st
	}
	st.Weight += inc
	if now.After(st.LastUpdated) {
		st.LastUpdated = now
	}
	if now.After(st.DecayedAt) {
		st.DecayedAt = now
	}
	return key, nil
}

// IncrementFor 返回维度的默认累加值；weight 非空时取第一个。
func IncrementFor(f core.Facet, weight ...float64) float64 {
	if len(weight) > 0 {
		return weight[0]
	}
	return DefaultIncrements[f]
}
