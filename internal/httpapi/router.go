package httpapi

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

func Router(h *Handlers, log *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/v1/accounts", h.Accounts)       // POST create, GET list
	mux.HandleFunc("/v1/accounts/", h.AccountByPath) // POST {id}/deposit|withdraw, PUT {id}/nickname
	mux.HandleFunc("/v1/transfers", h.Transfers)     // POST execute, GET history
	mux.HandleFunc("/v1/transfers/", h.TransferByPath)
	mux.HandleFunc("/v1/history", h.History)
	mux.HandleFunc("/v1/summary", h.Summary)
	mux.HandleFunc("/v1/export", h.Export)
	mux.HandleFunc("/v1/batch", h.Batch)
	mux.HandleFunc("/v1/audit/verify", h.AuditVerify)
	mux.HandleFunc("/v1/audit/proof", h.AuditProof)

	// Backpressure at the edge.
	// Prevents unbounded goroutine queueing when a burst of callers hits
	// the single owner's account set at once.
	max := mustIntEnv("BANK_HTTP_MAX_INFLIGHT", 64)
	return withAccessLog(log, withConcurrencyLimit(mux, max))
}

func mustIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func withConcurrencyLimit(next http.Handler, max int) http.Handler {
	if max <= 0 {
		max = 64
	}
	sem := make(chan struct{}, max)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			next.ServeHTTP(w, r)
		default:
			// Fast fail instead of queueing forever.
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"server busy"}`))
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func withAccessLog(log *zap.SugaredLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.Infow("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start).Truncate(time.Microsecond),
		)
	})
}
