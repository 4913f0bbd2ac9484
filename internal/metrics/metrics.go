package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MihirGambhire/linkedin-monitor/internal/capture"
	"github.com/MihirGambhire/linkedin-monitor/internal/run"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkedin_monitor_searches_total",
			Help: "Total number of category searches executed",
		},
		[]string{"category", "status"},
	)

	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkedin_monitor_results_total",
			Help: "Total number of search results returned, before dedupe",
		},
		[]string{"category"},
	)

	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkedin_monitor_captures_total",
			Help: "Total number of screenshot captures by outcome",
		},
		[]string{"status"},
	)

	CaptureDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkedin_monitor_capture_duration_seconds",
			Help:    "Duration of screenshot captures in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	BudgetRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkedin_monitor_search_budget_remaining",
			Help: "Search API calls left in the per-run budget",
		},
	)

	EmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkedin_monitor_emails_total",
			Help: "Total number of digest email attempts",
		},
		[]string{"status"},
	)
)

// RecordSearch updates the search metrics for one category outcome.
func RecordSearch(outcome run.CategoryOutcome) {
	SearchesTotal.WithLabelValues(outcome.Name, string(outcome.Status)).Inc()
	if outcome.Results > 0 {
		ResultsTotal.WithLabelValues(outcome.Name).Add(float64(outcome.Results))
	}
}

// RecordCapture updates the capture metrics for one artifact.
func RecordCapture(a capture.Artifact) {
	CapturesTotal.WithLabelValues(string(a.Status)).Inc()
	if a.Status != capture.StatusSkipped {
		CaptureDuration.WithLabelValues(string(a.Status)).Observe(a.Elapsed.Seconds())
	}
}

// RecordEmail counts a digest delivery attempt.
func RecordEmail(err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	EmailsTotal.WithLabelValues(status).Inc()
}

// Server exposes the collectors over HTTP for scraping.
type Server struct {
	srv *http.Server
}

// Start serves /metrics on the given port until Stop is called.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := &Server{srv: &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics listener failed", "addr", s.srv.Addr, "error", err)
		}
	}()
	return s
}

// Stop drains the listener, waiting at most five seconds.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
