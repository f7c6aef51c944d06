package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"os"
)

// 默认特征权重。类目远高于趋势，保证学到的偏好压过纯热度。
const (
	WeightCategory = 0.9
	WeightStore    = 0.6
	WeightGender   = 0.45
	WeightPrice    = 0.35
	WeightSize     = 0.3
	WeightETA      = 0.25
	WeightProduct  = 0.2
	WeightTrend    = 0.15
	WeightNoise    = 0.05
)

// DefaultWeights 返回默认权重表的副本，key 与 feature 包的特征名一致。
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"category": WeightCategory,
		"store":    WeightStore,
		"gender":   WeightGender,
		"price":    WeightPrice,
		"size":     WeightSize,
		"eta":      WeightETA,
		"product":  WeightProduct,
		"trend":    WeightTrend,
		"noise":    WeightNoise,
	}
}

// Linear 是线性加权打分模型：score = Bias + Σ weight × feature。
// 不做 sigmoid，分数只用于比较。
type Linear struct {
	Bias    float64
	Weights map[string]float64
}

// NewLinear 以默认权重为底，合并 overrides。
func NewLinear(overrides map[string]float64) *Linear {
	w := DefaultWeights()
	maps.Copy(w, overrides)
	return &Linear{Weights: w}
}

// LoadLinear 从 JSON 文件加载 {"bias":..,"weights":{..}}，未给出的特征使用默认权重。
func LoadLinear(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Bias    float64            `json:"bias"`
		Weights map[string]float64 `json:"weights"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse linear model %s: %w", path, err)
	}
	for k, v := range raw.Weights {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("linear model %s: weight %q is not finite", path, k)
		}
	}
	m := NewLinear(raw.Weights)
	m.Bias = raw.Bias
	return m, nil
}

func (m *Linear) Name() string { return "linear" }

func (m *Linear) Predict(features map[string]float64) (float64, error) {
	score := m.Bias
	for k, v := range features {
		if w, ok := m.Weights[k]; ok {
			score += w * v
		}
	}
	return score, nil
}

// WithScaled 返回将 feature 权重乘以 factor 后的副本，原模型不变。
func (m *Linear) WithScaled(feature string, factor float64) *Linear {
	w := maps.Clone(m.Weights)
	if w == nil {
		w = map[string]float64{}
	}
	w[feature] *= factor
	return &Linear{Bias: m.Bias, Weights: w}
}

// Scaled 满足 Scalable。
func (m *Linear) Scaled(feature string, factor float64) RankModel {
	return m.WithScaled(feature, factor)
}
