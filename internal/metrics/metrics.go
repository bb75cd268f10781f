package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insta_api_requests_total",
		Help: "Backend requests by endpoint and status code",
	}, []string{"endpoint", "code"})
	APIDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insta_api_request_duration_seconds",
		Help:    "Backend request duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insta_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	SessionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insta_session_transitions_total",
		Help: "Session state transitions by target state and cause",
	}, []string{"state", "cause"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insta_command_runs_total",
		Help: "CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insta_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
	InboxPolls = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insta_inbox_polls_total",
		Help: "Conversation list polls",
	})
)

func init() {
	prometheus.MustRegister(APIRequests, APIDuration, APIRetries, SessionTransitions, CommandRuns, CommandErrors, InboxPolls)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
// An empty addr is a no-op. The returned server can be shut down by the caller.
func StartServer(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// ObserveRequest records one finished backend request. code 0 means no response.
func ObserveRequest(endpoint string, code int, start time.Time) {
	APIRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	APIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncSessionTransition(state, cause string) {
	SessionTransitions.WithLabelValues(state, cause).Inc()
}

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
