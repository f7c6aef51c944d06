package prefs

import "github.com/matheusschuckar/look-pro/core"

// Normalizer 将原始权重映射到 [0,1]：score = weight / max(1, 维度内最大权重)。
// 构造时固定最大值，之后对 State 的修改不会反映到已有的 Normalizer。
type Normalizer struct {
	weights map[core.Facet]map[string]float64
	max     map[core.Facet]float64
}

func NewNormalizer(s *State) *Normalizer {
	n := &Normalizer{
		weights: make(map[core.Facet]map[string]float64, len(core.AllFacets)),
		max:     make(map[core.Facet]float64, len(core.AllFacets)),
	}
	if s == nil {
		return n
	}
	for f, tbl := range s.Facets {
		m := 1.0
		ws := make(map[string]float64, len(tbl))
		for k, st := range tbl {
			if st == nil {
				continue
			}
			ws[k] = st.Weight
			if st.Weight > m {
				m = st.Weight
			}
		}
		n.weights[f] = ws
		n.max[f] = m
	}
	return n
}

// Score 实现 core.AffinityScorer。
func (n *Normalizer) Score(f core.Facet, key string) float64 {
	w, ok := n.weights[f][core.NormalizeKey(key)]
	if !ok || w <= 0 {
		return 0
	}
	return w / n.max[f]
}

// Max 返回维度的归一化分母。
func (n *Normalizer) Max(f core.Facet) float64 {
	if m, ok := n.max[f]; ok {
		return m
	}
	return 1
}

// Snapshot 同时持有当前偏好与旧版计数，打分取两者较大值。
type Snapshot struct {
	Current *Normalizer
	Legacy  *Normalizer
}

func NewSnapshot(current, legacy *State) *Snapshot {
	return &Snapshot{Current: NewNormalizer(current), Legacy: NewNormalizer(legacy)}
}

// Score 实现 core.AffinityScorer。
func (s *Snapshot) Score(f core.Facet, key string) float64 {
	var cur, old float64
	if s.Current != nil {
		cur = s.Current.Score(f, key)
	}
	if s.Legacy != nil {
		old = s.Legacy.Score(f, key)
	}
	if old > cur {
		return old
	}
	return cur
}

var (
	_ core.AffinityScorer = (*Normalizer)(nil)
	_ core.AffinityScorer = (*Snapshot)(nil)
)
