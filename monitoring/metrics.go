package monitoring

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every kubecrud collector plus the process and Go runtime
// collectors. It is served on /metrics when metrics are enabled.
var Registry = prometheus.NewRegistry()

var (
	httpRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubecrud_http_request_total",
			Help: "Total number of handled HTTP requests.",
		},
		[]string{"route", "method", "code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kubecrud_http_request_duration_seconds",
			Help:    "Latency of HTTP request handling in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	clusterRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubecrud_cluster_request_total",
			Help: "Total number of cluster API calls by operation, kind and result.",
		},
		[]string{"operation", "kind", "result"},
	)

	watchStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kubecrud_watch_streams",
			Help: "Number of open websocket watch streams.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	Registry.MustRegister(Collectors()...)
}

// Collectors returns the kubecrud-specific collectors.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestTotal,
		httpRequestDuration,
		clusterRequestTotal,
		watchStreams,
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// RecordClusterRequest counts one cluster API call. result is "ok" or the
// domain error kind the failure was translated to.
func RecordClusterRequest(operation, kind, result string) {
	clusterRequestTotal.WithLabelValues(operation, kind, result).Inc()
}

func WatchStreamOpened() { watchStreams.Inc() }
func WatchStreamClosed() { watchStreams.Dec() }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// InstrumentHandler records count and latency of requests served by h under
// the route label.
func InstrumentHandler(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, req)
		httpRequestDuration.WithLabelValues(route, req.Method).Observe(time.Since(start).Seconds())
		httpRequestTotal.WithLabelValues(route, req.Method, strconv.Itoa(rec.status)).Inc()
	}
}
