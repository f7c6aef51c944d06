package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLinear_Predict(t *testing.T) {
	m := NewLinear(nil)
	tests := []struct {
		name     string
		features map[string]float64
		want     float64
	}{
		{"empty", nil, 0},
		{"category only", map[string]float64{"category": 1}, 0.9},
		{"unknown feature ignored", map[string]float64{"color": 10, "trend": 1}, 0.15},
		{"mixed", map[string]float64{"category": 0.5, "store": 1, "noise": 0.2}, 0.45 + 0.6 + 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Predict(tt.features)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Predict = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLinear_CategoryOutweighsTrend(t *testing.T) {
	w := DefaultWeights()
	if w["category"] <= w["trend"]*2.2 {
		t.Errorf("category weight %v should dominate boosted trend %v", w["category"], w["trend"]*2.2)
	}
}

func TestLinear_WithScaled(t *testing.T) {
	m := NewLinear(map[string]float64{"trend": 0.2})
	boosted := m.WithScaled("trend", 2)
	if boosted.Weights["trend"] != 0.4 {
		t.Errorf("boosted trend = %v", boosted.Weights["trend"])
	}
	if m.Weights["trend"] != 0.2 {
		t.Errorf("original modified: %v", m.Weights["trend"])
	}
}

func TestLoadLinear(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.json")
	if err := os.WriteFile(path, []byte(`{"bias":0.1,"weights":{"category":2}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	m, err := LoadLinear(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Bias != 0.1 || m.Weights["category"] != 2 || m.Weights["store"] != WeightStore {
		t.Errorf("loaded %+v", m)
	}

	if err := os.WriteFile(path, []byte(`not json`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLinear(path); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadLinear(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected read error")
	}
}
