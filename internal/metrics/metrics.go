// Package metrics exports Prometheus metrics for game sessions.
//
// Metrics are fed from the session event bus, plus direct observations of
// remote resolver latency from the submission pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sustainet/sustainet/internal/event"
	"github.com/sustainet/sustainet/internal/logging"
)

const namespace = "sustainet"

// Metrics holds the session collectors.
type Metrics struct {
	SessionsStarted    prometheus.Counter
	SessionsEnded      *prometheus.CounterVec
	RoundsResolved     *prometheus.CounterVec
	SubmissionFailures *prometheus.CounterVec
	ResolverDuration   *prometheus.HistogramVec
	Trust              *prometheus.GaugeVec
	ReachCount         *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Sessions started",
		}),
		SessionsEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "ended_total",
			Help:      "Sessions ended by reason and winner",
		}, []string{"reason", "winner"}),
		RoundsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "resolved_total",
			Help:      "Turns resolved by actor",
		}, []string{"actor"}),
		SubmissionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "submission_failures_total",
			Help:      "Rejected or failed submissions by actor and error kind",
		}, []string{"actor", "kind"}),
		ResolverDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "call_duration_seconds",
			Help:      "Remote resolver call latency",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}, []string{"operation", "result"}),
		Trust: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "trust",
			Help:      "Current trust per platform and actor",
		}, []string{"platform", "actor"}),
		ReachCount: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "audience_reached",
			Help:      "Audience reached per resolved turn",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}, []string{"actor"}),
	}
}

// ObserveResolverCall records one remote call's latency.
func (m *Metrics) ObserveResolverCall(operation string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ResolverDuration.WithLabelValues(operation, result).Observe(elapsed.Seconds())
}

// Attach subscribes the collectors to bus. It returns the subscription IDs.
func (m *Metrics) Attach(bus *event.Bus) []string {
	return []string{
		bus.Subscribe(event.TypeSessionStarted, func(event.Event) {
			m.SessionsStarted.Inc()
		}),
		bus.Subscribe(event.TypeRoundResolved, func(e event.Event) {
			ev, ok := e.(event.RoundResolvedEvent)
			if !ok {
				return
			}
			actor := string(ev.Snapshot.Actor)
			m.RoundsResolved.WithLabelValues(actor).Inc()
			m.ReachCount.WithLabelValues(actor).Observe(float64(ev.Snapshot.ReachCount))
			for _, p := range ev.Snapshot.PlatformStatus {
				m.Trust.WithLabelValues(p.Name, "player").Set(float64(p.PlayerTrust))
				m.Trust.WithLabelValues(p.Name, "ai").Set(float64(p.AITrust))
			}
		}),
		bus.Subscribe(event.TypeSubmissionFailed, func(e event.Event) {
			if ev, ok := e.(event.SubmissionFailedEvent); ok {
				m.SubmissionFailures.WithLabelValues(string(ev.Actor), ev.Kind).Inc()
			}
		}),
		bus.Subscribe(event.TypeSessionEnded, func(e event.Event) {
			if ev, ok := e.(event.SessionEndedEvent); ok {
				m.SessionsEnded.WithLabelValues(string(ev.Reason), string(ev.Winner)).Inc()
			}
		}),
	}
}

// Serve exposes /metrics for gatherer on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("metrics endpoint listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
