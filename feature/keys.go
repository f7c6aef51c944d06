package feature

import "github.com/matheusschuckar/look-pro/core"

// 特征名，与 core.Facet 一一对应，另加 trend 与 noise。
const (
	FeatureCategory = "category"
	FeatureStore    = "store"
	FeatureGender   = "gender"
	FeatureSize     = "size"
	FeaturePrice    = "price"
	FeatureETA      = "eta"
	FeatureProduct  = "product"
	FeatureTrend    = "trend"
	FeatureNoise    = "noise"
)

// FacetFeatures 是维度到特征名的映射。
var FacetFeatures = map[core.Facet]string{
	core.FacetCategory: FeatureCategory,
	core.FacetStore:    FeatureStore,
	core.FacetGender:   FeatureGender,
	core.FacetSize:     FeatureSize,
	core.FacetPrice:    FeaturePrice,
	core.FacetETA:      FeatureETA,
	core.FacetProduct:  FeatureProduct,
}

// FacetKeys 是一个候选商品在各维度上的偏好 key。尺码可有多个，其余至多一个。
type FacetKeys map[core.Facet][]string

// KeysOf 从候选商品推导各维度 key，缺失的属性不产生 key。
func KeysOf(c *core.Candidate) FacetKeys {
	keys := make(FacetKeys, len(core.AllFacets))
	if c == nil {
		return keys
	}
	put := func(f core.Facet, k string) {
		if k = core.NormalizeKey(k); k != "" {
			keys[f] = append(keys[f], k)
		}
	}

	put(core.FacetCategory, c.PrimaryCategory())
	put(core.FacetStore, c.StoreName)
	put(core.FacetGender, c.Gender)
	for _, s := range c.SizeKeys() {
		put(core.FacetSize, s)
	}
	put(core.FacetPrice, PriceBucket(c.PriceValue()))
	put(core.FacetETA, ETABucket(c.ETA()))
	put(core.FacetProduct, core.ProductKey(c.ID))
	return keys
}

// Score 返回该维度下所有 key 的最高偏好得分；没有 key 时为 0。
func (k FacetKeys) Score(a core.AffinityScorer, f core.Facet) float64 {
	if a == nil {
		return 0
	}
	best := 0.0
	for _, key := range k[f] {
		if s := a.Score(f, key); s > best {
			best = s
		}
	}
	return best
}
