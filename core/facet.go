package core

import (
	"strconv"
	"strings"
)

// Facet 是偏好的一个独立维度，每个维度维护自己的 key -> 权重表。
type Facet string

const (
	FacetCategory Facet = "cat"
	FacetStore    Facet = "store"
	FacetGender   Facet = "gender"
	FacetSize     Facet = "size"
	FacetPrice    Facet = "price"
	FacetETA      Facet = "eta"
	FacetProduct  Facet = "product"
)

// AllFacets 按固定顺序列出全部维度（持久化与打分均按此顺序遍历）。
var AllFacets = []Facet{
	FacetCategory,
	FacetStore,
	FacetGender,
	FacetSize,
	FacetPrice,
	FacetETA,
	FacetProduct,
}

var facetAliases = map[string]Facet{
	"cat":         FacetCategory,
	"category":    FacetCategory,
	"store":       FacetStore,
	"gender":      FacetGender,
	"size":        FacetSize,
	"price":       FacetPrice,
	"pricebucket": FacetPrice,
	"eta":         FacetETA,
	"etabucket":   FacetETA,
	"product":     FacetProduct,
}

// ParseFacet 解析维度名，接受持久化短名与完整名（如 "category"、"priceBucket"）。
func ParseFacet(s string) (Facet, bool) {
	f, ok := facetAliases[strings.ToLower(strings.TrimSpace(s))]
	return f, ok
}

func (f Facet) String() string { return string(f) }

// Valid 判断是否为已知维度。
func (f Facet) Valid() bool {
	g, ok := facetAliases[string(f)]
	return ok && g == f
}

// NormalizeKey 是所有偏好 key 的规范化规则：去首尾空白并转小写。
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ProductKey 将商品 ID 转为 product 维度的 key。
func ProductKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// AffinityScorer 返回某维度某 key 的归一化偏好得分，范围 [0,1]。
// 未见过的 key 返回 0。
type AffinityScorer interface {
	Score(f Facet, key string) float64
}
