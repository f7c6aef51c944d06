package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 指标名称。
const (
	MetricRankTotal       = "lookpro_rank_total"
	MetricRankDuration    = "lookpro_rank_duration_seconds"
	MetricExploreTotal    = "lookpro_explore_sessions_total"
	MetricBumpTotal       = "lookpro_bump_total"
	MetricStorageFailures = "lookpro_storage_failures_total"
	MetricNodeDuration    = "lookpro_pipeline_node_duration_seconds"
)

// Metrics 是排序引擎的 Prometheus 指标，未注册前也可以安全使用。
type Metrics struct {
	rankTotal       prometheus.Counter
	rankDuration    prometheus.Histogram
	exploreTotal    prometheus.Counter
	bumpTotal       *prometheus.CounterVec
	storageFailures *prometheus.CounterVec
	nodeDuration    *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		rankTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRankTotal,
			Help: "Total number of ranking passes",
		}),
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRankDuration,
			Help:    "Histogram of ranking pass duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		exploreTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricExploreTotal,
			Help: "Total number of ranking passes that ran in exploration mode",
		}),
		bumpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricBumpTotal,
			Help: "Total number of preference bumps by facet",
		}, []string{"facet"}),
		storageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricStorageFailures,
			Help: "Total number of swallowed storage failures by operation",
		}, []string{"op"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricNodeDuration,
			Help:    "Histogram of pipeline node duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"node"}),
	}
}

// Register 将全部指标注册到 reg。
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors 返回全部 collector。
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rankTotal,
		m.rankDuration,
		m.exploreTotal,
		m.bumpTotal,
		m.storageFailures,
		m.nodeDuration,
	}
}

func (m *Metrics) observeRank(d time.Duration, explore bool) {
	if m == nil {
		return
	}
	m.rankTotal.Inc()
	m.rankDuration.Observe(d.Seconds())
	if explore {
		m.exploreTotal.Inc()
	}
}

func (m *Metrics) incBump(facet string) {
	if m == nil {
		return
	}
	m.bumpTotal.WithLabelValues(facet).Inc()
}

func (m *Metrics) incStorageFailure(op string) {
	if m == nil {
		return
	}
	m.storageFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) observeNode(node string, d time.Duration) {
	if m == nil {
		return
	}
	m.nodeDuration.WithLabelValues(node).Observe(d.Seconds())
}
