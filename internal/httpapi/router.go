package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"

	"github.com/Mirai3103/fib-api/internal/logging"
	"github.com/Mirai3103/fib-api/internal/models"
)

var log = logging.For("http")

// RequestProcessor handles one request. *worker.JobHandler implements it.
type RequestProcessor interface {
	Handle(ctx context.Context, req models.FibRequest) (models.FibResult, error)
}

// NewRouter serves /healthz and /metrics; every other path is a Fibonacci
// request and goes through the path extractor. gatherer may be nil.
func NewRouter(handler RequestProcessor, gatherer prometheus.Gatherer) http.Handler {
	// Routes match the escaped path and it is never cleaned or redirected,
	// so %2F or %31 reach the extractor undecoded.
	r := mux.NewRouter().SkipClean(true).UseEncodedPath()
	r.Use(loggingMiddleware, corsMiddleware)

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	r.PathPrefix("/").Handler(fibHandler(handler))
	return r
}

func fibHandler(handler RequestProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := handler.Handle(r.Context(), models.FibRequest{
			Path:   r.URL.EscapedPath(),
			Source: models.SourceHTTP,
		})
		if err != nil {
			log.Warnf("Request for %s not served: %v", r.URL.EscapedPath(), err)
			writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "server busy"})
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type healthResponse struct {
	Status     string `json:"status"`
	Goroutines int    `json:"goroutines"`
	RSSKb      uint64 `json:"rssKb,omitempty"`
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Goroutines: runtime.NumGoroutine()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			resp.RSSKb = mem.RSS / 1024
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("Error writing response: %v", err)
	}
}

// corsMiddleware allows any origin and answers preflight requests itself.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("request")
	})
}
