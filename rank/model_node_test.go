package rank

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/model"
)

func item(id int64, features map[string]float64) *core.Item {
	it := core.NewItem(&core.Candidate{ID: id})
	it.Features = features
	return it
}

func ids(items []*core.Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestModelNode_SortsDescendingStable(t *testing.T) {
	n := &ModelNode{Model: model.NewLinear(nil)}
	items := []*core.Item{
		item(1, map[string]float64{"trend": 1}),
		item(2, map[string]float64{"category": 1}),
		item(3, map[string]float64{"trend": 1}),
		item(4, nil),
	}
	out, err := n.Process(context.Background(), &core.RecommendContext{}, items)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{2, 1, 3, 4}
	got := ids(out)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if lbl, ok := out[0].Labels["rank_model"]; !ok || lbl.Value != "linear" {
		t.Errorf("rank_model label = %+v", lbl)
	}
}

func TestModelNode_ExploreBoostsTrend(t *testing.T) {
	tests := []struct {
		name    string
		explore bool
		want    float64
	}{
		{"normal", false, model.WeightTrend},
		{"explore", true, model.WeightTrend * DefaultTrendBoost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &ModelNode{Model: model.NewLinear(nil)}
			it := item(1, map[string]float64{"trend": 1})
			if _, err := n.Process(context.Background(), &core.RecommendContext{Explore: tt.explore}, []*core.Item{it}); err != nil {
				t.Fatal(err)
			}
			if math.Abs(it.Score-tt.want) > 1e-12 {
				t.Errorf("score = %v, want %v", it.Score, tt.want)
			}
			if it.Features["trend"] != 1 {
				t.Errorf("trend feature mutated: %v", it.Features["trend"])
			}
		})
	}
}

var sumModel = model.Func{ModelName: "sum", Fn: func(f map[string]float64) (float64, error) {
	var s float64
	for _, v := range f {
		s += v
	}
	return s, nil
}}

func TestModelNode_ExploreBoostsFeatureForOtherModels(t *testing.T) {
	n := &ModelNode{Model: sumModel, TrendBoost: 3}
	it := item(1, map[string]float64{"trend": 1, "category": 1})
	if _, err := n.Process(context.Background(), &core.RecommendContext{Explore: true}, []*core.Item{it}); err != nil {
		t.Fatal(err)
	}
	if it.Score != 4 {
		t.Errorf("score = %v, want 4", it.Score)
	}
	if it.Features["trend"] != 1 {
		t.Error("item features must not be modified")
	}
}

func TestModelNode_NilModel(t *testing.T) {
	in := []*core.Item{item(2, nil), item(1, nil)}
	out, err := (&ModelNode{}).Process(context.Background(), nil, in)
	if err != nil || len(out) != 2 || out[0].ID != 2 {
		t.Fatalf("out=%v err=%v", ids(out), err)
	}
}

func TestModelNode_ModelError(t *testing.T) {
	failing := model.Func{ModelName: "broken", Fn: func(map[string]float64) (float64, error) {
		return 0, errors.New("boom")
	}}
	_, err := (&ModelNode{Model: failing}).Process(context.Background(), nil, []*core.Item{item(1, nil)})
	if err == nil {
		t.Fatal("expected model error")
	}
}
