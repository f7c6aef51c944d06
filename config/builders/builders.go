package builders

import (
	"fmt"

	"github.com/matheusschuckar/look-pro/config"
	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/feature"
	"github.com/matheusschuckar/look-pro/filter"
	"github.com/matheusschuckar/look-pro/model"
	"github.com/matheusschuckar/look-pro/pipeline"
	"github.com/matheusschuckar/look-pro/pkg/conv"
	"github.com/matheusschuckar/look-pro/rank"
	"github.com/matheusschuckar/look-pro/rerank"
)

func init() {
	config.Register("filter.facet", BuildFacetFilterNode)
	config.Register("filter.expr", BuildExprFilterNode)
	config.Register("filter.blocklist", BuildBlocklistNode)
	config.Register("feature.affinity", BuildAffinityNode)
	config.Register("rank.linear", BuildLinearNode)
	config.Register("rerank.explore", BuildExploreNode)
	config.Register("rerank.topn", BuildTopNNode)
}

// BuildFacetFilterNode 未配置任何条件时按请求参数 criteria 过滤。
func BuildFacetFilterNode(cfg map[string]any) (pipeline.Node, error) {
	c := &filter.Criteria{
		Query:      conv.ConfigGet(cfg, "query", ""),
		Categories: conv.SliceAnyToString(cfg["categories"]),
		Chip:       conv.ConfigGet(cfg, "chip", ""),
		Genders:    conv.SliceAnyToString(cfg["genders"]),
		Sizes:      conv.SliceAnyToString(cfg["sizes"]),
	}
	if c.Empty() {
		c = nil
	}
	return &filter.FilterNode{Filters: []filter.Filter{&filter.FacetFilter{Criteria: c}}}, nil
}

func BuildExprFilterNode(cfg map[string]any) (pipeline.Node, error) {
	expr := conv.ConfigGet(cfg, "expr", "")
	if expr == "" {
		return nil, fmt.Errorf("expr not found")
	}
	f, err := filter.NewExprFilter(expr)
	if err != nil {
		return nil, fmt.Errorf("filter.expr: %w", err)
	}
	return &filter.FilterNode{Filters: []filter.Filter{f}}, nil
}

func BuildBlocklistNode(cfg map[string]any) (pipeline.Node, error) {
	f := &filter.BlocklistFilter{
		IDs: conv.SliceAnyToInt64(cfg["ids"]),
		Key: conv.ConfigGet(cfg, "key", ""),
	}
	if f.Key != "" {
		s := conv.ConfigGet[core.Store](cfg, config.ResourceStore, nil)
		if s == nil {
			return nil, fmt.Errorf("filter.blocklist: key %q requires a store", f.Key)
		}
		f.Source = filter.NewStoreSource(s)
	}
	if len(f.IDs) == 0 && f.Source == nil {
		return nil, fmt.Errorf("filter.blocklist: ids or key required")
	}
	return &filter.FilterNode{Filters: []filter.Filter{f}}, nil
}

func BuildAffinityNode(cfg map[string]any) (pipeline.Node, error) {
	sat := conv.ConfigGetFloat64(cfg, "saturation", feature.DefaultSaturation)
	if sat <= 0 {
		return nil, fmt.Errorf("feature.affinity: saturation must be > 0")
	}
	return &feature.AffinityNode{Saturation: sat}, nil
}

func BuildLinearNode(cfg map[string]any) (pipeline.Node, error) {
	var (
		m   *model.Linear
		err error
	)
	if path := conv.ConfigGet(cfg, "model_path", ""); path != "" {
		if m, err = model.LoadLinear(path); err != nil {
			return nil, err
		}
	} else {
		var overrides map[string]float64
		if w, ok := cfg["weights"].(map[string]any); ok {
			overrides = conv.MapToFloat64(w)
		}
		m = model.NewLinear(overrides)
		m.Bias = conv.ConfigGetFloat64(cfg, "bias", 0)
	}
	return &rank.ModelNode{
		Model:      m,
		TrendBoost: conv.ConfigGetFloat64(cfg, "trend_boost", rank.DefaultTrendBoost),
	}, nil
}

func BuildExploreNode(cfg map[string]any) (pipeline.Node, error) {
	n := &rerank.ExploreNode{
		MaxInjected: int(conv.ConfigGetInt64(cfg, "max_injected", rerank.DefaultMaxInjected)),
		Divisor:     int(conv.ConfigGetInt64(cfg, "divisor", rerank.DefaultDivisor)),
		WindowStart: int(conv.ConfigGetInt64(cfg, "window_start", rerank.DefaultWindowStart)),
		WindowEnd:   int(conv.ConfigGetInt64(cfg, "window_end", rerank.DefaultWindowEnd)),
		FirstSlot:   int(conv.ConfigGetInt64(cfg, "first_slot", rerank.DefaultFirstSlot)),
		Stride:      int(conv.ConfigGetInt64(cfg, "stride", rerank.DefaultStride)),
	}
	if n.WindowEnd <= n.WindowStart {
		return nil, fmt.Errorf("rerank.explore: window_end %d must be greater than window_start %d", n.WindowEnd, n.WindowStart)
	}
	return n, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}
