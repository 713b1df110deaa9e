package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signals_pipeline_duration_seconds",
			Help:    "Full pipeline duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signals_stage_duration_seconds",
			Help:    "Per-stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_runs_total",
			Help: "Total pipeline runs",
		},
		[]string{"status"},
	)

	DetectionAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signals_detection_attempts",
			Help:    "Code generation attempts per detection loop",
			Buckets: []float64{1, 2, 3},
		},
	)

	FindingsDetected = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signals_findings_detected",
			Help:    "Findings surfaced per run",
			Buckets: []float64{0, 1, 2, 5, 10},
		},
	)

	EvidenceExtraction = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_evidence_extraction_total",
			Help: "Evidence records by extraction method",
		},
		[]string{"method"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	WebSearchTriggered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signals_web_search_triggered_total",
			Help: "Total market research searches triggered",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	SignalsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signals_stored_total",
			Help: "Signals currently in the store",
		},
	)
)

func Init() {
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(DetectionAttempts)
	prometheus.MustRegister(FindingsDetected)
	prometheus.MustRegister(EvidenceExtraction)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(WebSearchTriggered)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(SignalsStored)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
