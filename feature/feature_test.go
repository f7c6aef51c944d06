package feature

import (
	"context"
	"math"
	"testing"

	"github.com/matheusschuckar/look-pro/core"
)

func TestPriceBucket(t *testing.T) {
	tests := []struct {
		price float64
		ok    bool
		want  string
	}{
		{0, false, ""},
		{-5, true, ""},
		{49.9, true, PriceBudget},
		{100, true, PriceMid},
		{299.99, true, PriceMid},
		{300, true, PricePremium},
		{1200, true, PriceLuxury},
	}
	for _, tt := range tests {
		if got := PriceBucket(tt.price, tt.ok); got != tt.want {
			t.Errorf("PriceBucket(%v,%v) = %q, want %q", tt.price, tt.ok, got, tt.want)
		}
	}
}

func TestETABucket(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"em breve", ""},
		{"30 min", ETAFast},
		{"20-30min", ETAFast},
		{"30-45 min", ETAHour},
		{"até 1h", ETAHour},
		{"Até 1h", ETAHour},
		{"1h30", ETAToday},
		{"1-2h", ETAToday},
		{"2 horas", ETAToday},
		{"Hoje", ETAToday},
		{"amanhã", ETALater},
		{"1 dia", ETALater},
		{"2 a 3 dias úteis", ETALater},
		{"hoje, 30-45", ETAHour},
		{"chega hoje 40-50", ETAHour},
		{"chega em 20-25", ETAFast},
		{"2-3 horas", ETAToday},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := ETABucket(tt.text); got != tt.want {
				t.Errorf("ETABucket(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name                     string
		local, maxLocal, externl int64
		want                     float64
	}{
		{name: "nothing", want: 0},
		{name: "saturated external", externl: 250, want: 1},
		{name: "half external", externl: 50, want: 0.5},
		{name: "local share wins", local: 3, maxLocal: 4, externl: 10, want: 0.75},
		{name: "local without max", local: 1, maxLocal: 0, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Trend(tt.local, tt.maxLocal, tt.externl, DefaultSaturation)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Trend = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNoise(t *testing.T) {
	a := Noise(42, 12345)
	if a != Noise(42, 12345) {
		t.Fatal("noise not deterministic")
	}
	if a == Noise(43, 12345) && a == Noise(42, 54321) {
		t.Error("noise ignores its inputs")
	}
	for id := int64(0); id < 500; id++ {
		if v := Noise(id, 987654); v < 0 || v > 1 {
			t.Fatalf("Noise(%d) = %v out of range", id, v)
		}
	}
	// xorshift32 of 1: 1 ^ 1<<13 = 8193; 8193 ^ 8193>>17 = 8193; 8193 ^ 8193<<5 = 270369
	if got, want := Noise(1, 0), 270369.0/math.MaxUint32; got != want {
		t.Errorf("Noise(1,0) = %v, want %v", got, want)
	}
}

type fixedAffinity map[core.Facet]map[string]float64

func (f fixedAffinity) Score(facet core.Facet, key string) float64 { return f[facet][key] }

func TestKeysOf_MalformedCandidate(t *testing.T) {
	keys := KeysOf(&core.Candidate{ID: 9})
	for _, f := range []core.Facet{core.FacetCategory, core.FacetStore, core.FacetPrice, core.FacetETA, core.FacetSize, core.FacetGender} {
		if len(keys[f]) != 0 {
			t.Errorf("facet %s has keys %v for empty candidate", f, keys[f])
		}
	}
	if got := keys[core.FacetProduct]; len(got) != 1 || got[0] != "9" {
		t.Errorf("product keys = %v", got)
	}
}

func TestAffinityNode_Process(t *testing.T) {
	price := 120.0
	views := int64(40)
	cands := []*core.Candidate{
		{ID: 1, Category: "Shoes", StoreName: "Loja A", Gender: "female", Sizes: core.StringList{"M", "G"}, Price: &price, ETAText: "até 1h", ViewCount: &views},
		{ID: 2},
	}
	aff := fixedAffinity{
		core.FacetCategory: {"shoes": 1},
		core.FacetStore:    {"loja a": 0.5},
		core.FacetSize:     {"m": 0.2, "g": 0.6},
		core.FacetPrice:    {PriceMid: 0.3},
		core.FacetETA:      {ETAHour: 0.4},
		core.FacetProduct:  {"1": 0.9},
	}
	rctx := &core.RecommendContext{Affinity: aff, Seed: 7, Views: map[int64]int64{2: 5, 3: 10}}

	items, err := (&AffinityNode{}).Process(context.Background(), rctx, core.NewItems(cands))
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]float64{
		FeatureCategory: 1,
		FeatureStore:    0.5,
		FeatureGender:   0,
		FeatureSize:     0.6,
		FeaturePrice:    0.3,
		FeatureETA:      0.4,
		FeatureProduct:  0.9,
		FeatureTrend:    0.4,
		FeatureNoise:    Noise(1, 7),
	}
	for k, v := range want {
		if got := items[0].Features[k]; math.Abs(got-v) > 1e-12 {
			t.Errorf("item 1 feature %s = %v, want %v", k, got, v)
		}
	}

	for _, f := range core.AllFacets {
		if got := items[1].Features[FacetFeatures[f]]; got != 0 {
			t.Errorf("malformed item feature %s = %v", f, got)
		}
	}
	if got := items[1].Features[FeatureTrend]; got != 0.5 {
		t.Errorf("item 2 trend = %v, want local share 0.5", got)
	}
}

func TestAffinityNode_NilContext(t *testing.T) {
	items, err := (&AffinityNode{}).Process(context.Background(), nil, core.NewItems([]*core.Candidate{{ID: 3}}))
	if err != nil {
		t.Fatal(err)
	}
	if items[0].Features[FeatureCategory] != 0 {
		t.Error("expected zero affinity without context")
	}
}
