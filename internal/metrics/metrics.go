package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ParseRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "personalens_parse_runs_total",
		Help: "Total snapshot post parses",
	})
	PostsParsed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "personalens_posts_parsed_total",
		Help: "Total posts recovered from snapshots",
	})
	StrategySelected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "personalens_parse_strategy_total",
		Help: "Parses by the strategy that produced the result",
	}, []string{"strategy"})
	StatsAnomalies = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "personalens_stats_anomalies_total",
		Help: "Stats lines whose token count has no configured layout",
	})
	FetchRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "personalens_fetch_runs_total",
		Help: "Total profile fetch runs",
	})
	FetchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "personalens_fetch_errors_total",
		Help: "Total profile fetch errors",
	})
	FetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "personalens_fetch_duration_seconds",
		Help:    "Profile fetch duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "personalens_api_retries_total",
		Help: "Total browser API retry attempts",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "personalens_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "personalens_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(ParseRuns, PostsParsed, StrategySelected, StatsAnomalies,
		FetchRuns, FetchErrors, FetchDuration, APIRetries, CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

// ObserveFetchDuration records a fetch run duration.
func ObserveFetchDuration(start time.Time) {
	FetchDuration.Observe(time.Since(start).Seconds())
}

// ObserveParse records one parse and the strategy that produced its posts.
func ObserveParse(strategy string, posts int) {
	ParseRuns.Inc()
	PostsParsed.Add(float64(posts))
	StrategySelected.WithLabelValues(strategy).Inc()
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
