package api

import (
    "net/http"
    "strconv"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    collectors "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    reqTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "certd",
        Subsystem: "api",
        Name:      "requests_total",
        Help:      "Total HTTP requests",
    }, []string{"method", "route", "code"})

    reqDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
        Namespace: "certd",
        Subsystem: "api",
        Name:      "request_duration_seconds",
        Help:      "HTTP request duration",
        Buckets:   prometheus.DefBuckets,
    }, []string{"method", "route"})
)

func init() {
    // Default process/go collectors; ignore AlreadyRegistered to avoid panics when other frameworks register them
    _ = prometheus.Register(collectors.NewGoCollector())
    _ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    _ = prometheus.Register(reqTotal)
    _ = prometheus.Register(reqDuration)
}

type statusWriter struct {
    http.ResponseWriter
    code  int
    wrote bool
}

func (w *statusWriter) WriteHeader(statusCode int) {
    if !w.wrote {
        w.code = statusCode
        w.wrote = true
    }
    w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusWriter) Write(b []byte) (int, error) {
    w.wrote = true
    return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// instrument labels by route pattern so certificate addresses don't explode cardinality.
func instrument(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
        start := time.Now()
        next.ServeHTTP(sw, r)
        route := "unmatched"
        if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
            route = rc.RoutePattern()
        }
        reqTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.code)).Inc()
        reqDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
    })
}

var promhttpHandler = promhttp.Handler()

// PromHandler exposes the Prometheus handler for reuse in other binaries
func PromHandler() http.Handler { return promhttpHandler }
