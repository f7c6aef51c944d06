// Package prefs 维护用户在七个维度上的偏好权重：持久化、衰减、累加与归一化。
package prefs

import (
	"sort"
	"time"

	"github.com/matheusschuckar/look-pro/core"
)

// KeyStat 是单个偏好 key 的累积权重。
//
// Weight 恒 >= 0。LastUpdated 只在累加时前移；DecayedAt 记录最近一次衰减的时间点，
// 下次衰减从 max(LastUpdated, DecayedAt) 开始计算，保证多次衰减可组合。
// 两个时间都为零值表示来源未知（如旧版计数），衰减时跳过。
type KeyStat struct {
	Weight      float64
	LastUpdated time.Time
	DecayedAt   time.Time
}

func (k *KeyStat) reference() time.Time {
	if k.DecayedAt.After(k.LastUpdated) {
		return k.DecayedAt
	}
	return k.LastUpdated
}

// State 是完整的偏好状态：维度 -> key -> KeyStat，七个维度总是存在。
type State struct {
	Facets map[core.Facet]map[string]*KeyStat
}

func NewState() *State {
	s := &State{Facets: make(map[core.Facet]map[string]*KeyStat, len(core.AllFacets))}
	s.ensure()
	return s
}

func (s *State) ensure() {
	if s.Facets == nil {
		s.Facets = make(map[core.Facet]map[string]*KeyStat, len(core.AllFacets))
	}
	for _, f := range core.AllFacets {
		if s.Facets[f] == nil {
			s.Facets[f] = make(map[string]*KeyStat)
		}
	}
}

// Table 返回某个维度的 key 表（可写）。
func (s *State) Table(f core.Facet) map[string]*KeyStat {
	s.ensure()
	return s.Facets[f]
}

// Get 读取某维度某 key，key 会先规范化。
func (s *State) Get(f core.Facet, key string) (KeyStat, bool) {
	st, ok := s.Facets[f][core.NormalizeKey(key)]
	if !ok || st == nil {
		return KeyStat{}, false
	}
	return *st, true
}

// Weight 读取权重，不存在时为 0。
func (s *State) Weight(f core.Facet, key string) float64 {
	st, _ := s.Get(f, key)
	return st.Weight
}

// Keys 返回某维度的 key，按字典序排序。
func (s *State) Keys(f core.Facet) []string {
	keys := make([]string, 0, len(s.Facets[f]))
	for k := range s.Facets[f] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len 返回全部维度的 key 总数。
func (s *State) Len() int {
	n := 0
	for _, tbl := range s.Facets {
		n += len(tbl)
	}
	return n
}

// Clone 深拷贝。
func (s *State) Clone() *State {
	out := NewState()
	for f, tbl := range s.Facets {
		dst := out.Table(f)
		for k, st := range tbl {
			if st == nil {
				continue
			}
			cp := *st
			dst[k] = &cp
		}
	}
	return out
}

// merge 把 st 累加到 f/key 上：权重相加，时间取较新者。
func (s *State) merge(f core.Facet, key string, st KeyStat) {
	tbl := s.Table(f)
	cur, ok := tbl[key]
	if !ok {
		cp := st
		tbl[key] = &cp
		return
	}
	cur.Weight += st.Weight
	if st.LastUpdated.After(cur.LastUpdated) {
		cur.LastUpdated = st.LastUpdated
	}
	if st.DecayedAt.After(cur.DecayedAt) {
		cur.DecayedAt = st.DecayedAt
	}
}
