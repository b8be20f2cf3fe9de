package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const DefaultNamespace = "arbengine"

type EngineMetrics struct {
	Attempts      prometheus.Counter
	Successes     prometheus.Counter
	Failures      *prometheus.CounterVec
	ProfitTotal   prometheus.Counter
	RewardsTotal  prometheus.Counter
	BurnedTotal   prometheus.Counter
	RouteLength   prometheus.Histogram
	ExecutionTime prometheus.Histogram
	HopLatency    *prometheus.HistogramVec
	SuccessRate   prometheus.Gauge
	ConfigUpdates prometheus.Counter
}

func NewEngineMetrics(reg prometheus.Registerer, namespace string) *EngineMetrics {
	factory := promauto.With(reg)
	return &EngineMetrics{
		Attempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "attempts_total",
			Help:      "Total number of arbitrage executions attempted",
		}),
		Successes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "successes_total",
			Help:      "Total number of arbitrage executions that settled",
		}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "failures_total",
			Help:      "Number of failed arbitrage executions by reason",
		}, []string{"reason"}),
		ProfitTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "profit_total_wei",
			Help:      "Total profit in base token wei",
		}),
		RewardsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rewards_total_wei",
			Help:      "Total caller rewards paid in base token wei",
		}),
		BurnedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "burned_total_wei",
			Help:      "Total base token wei sent to the burn address",
		}),
		RouteLength: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "route_length",
			Help:      "Number of hops per executed route",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		ExecutionTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "execution_time_seconds",
			Help:      "Time taken to execute an arbitrage",
			Buckets:   prometheus.DefBuckets,
		}),
		HopLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "hop_latency_seconds",
			Help:      "Latency of a single hop by platform",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}, []string{"platform"}),
		SuccessRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "success_rate",
			Help:      "Share of attempted executions that settled",
		}),
		ConfigUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rewards_config_updates_total",
			Help:      "Total number of effective rewards configuration changes",
		}),
	}
}

type FlashLoanMetrics struct {
	ProviderSelections *prometheus.CounterVec
	ExecutionLatency   prometheus.Histogram
	TotalVolume        prometheus.Counter
	FeesPaid           prometheus.Counter
	ActiveLoans        prometheus.Gauge
	Errors             *prometheus.CounterVec
}

func NewFlashLoanMetrics(reg prometheus.Registerer, namespace string) *FlashLoanMetrics {
	factory := promauto.With(reg)
	return &FlashLoanMetrics{
		ProviderSelections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flashloan",
			Name:      "provider_selections_total",
			Help:      "Number of times each provider was selected",
		}, []string{"provider"}),
		ExecutionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "flashloan",
			Name:      "execution_latency_seconds",
			Help:      "Latency of flash loan execution",
			Buckets:   prometheus.DefBuckets,
		}),
		TotalVolume: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flashloan",
			Name:      "total_volume_wei",
			Help:      "Total amount repaid on flash loans, fees included",
		}),
		FeesPaid: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flashloan",
			Name:      "fees_paid_wei",
			Help:      "Total flash loan fees paid",
		}),
		ActiveLoans: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "flashloan",
			Name:      "active_loans",
			Help:      "Number of currently active flash loans",
		}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flashloan",
			Name:      "errors_total",
			Help:      "Number of flash loan errors by type",
		}, []string{"error_type"}),
	}
}

// UpdateSuccessRate recomputes the engine success rate from its counters
func (m *EngineMetrics) UpdateSuccessRate() {
	successes := counterValue(m.Successes)
	attempts := counterValue(m.Attempts)
	if attempts > 0 {
		m.SuccessRate.Set(successes / attempts)
	}
}

func counterValue(c prometheus.Counter) float64 {
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil || metric.Counter == nil {
		return 0
	}
	return metric.Counter.GetValue()
}

// Snapshot flattens every counter and gauge in g into "name{labels}" -> value
func Snapshot(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName() + formatLabels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out[key] = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				out[key] = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				out[key+"_count"] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
