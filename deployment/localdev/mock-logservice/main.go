// Local stand-in for the trace log service. Serves a small canned batch of
// diagnostic records so lens-engine can be exercised end to end without the
// real collector.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

type diagnosticRecord struct {
	ID         string `json:"id"`
	StartTime  int64  `json:"start_time"`
	DurationMs int64  `json:"duration_ms"`
	Operation  string `json:"operation,omitempty"`
	RawContent string `json:"raw_content"`
}

type searchRequest struct {
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`
	Limit   int   `json:"limit"`
}

const paymentFailureTrace = `12:00:01.120 (1120000)|USER_INFO|[EXTERNAL]|005xx0000012345|shopper@example.com
12:00:01.250 (1250000)|METHOD_ENTRY|[1]|apex://CheckoutPaymentHandler/capture
12:00:02.010 (2010000)|CALLOUT_REQUEST|[22]|POST https://gateway.example.com/v2/charge
12:00:04.870 (4870000)|CALLOUT_RESPONSE|[22]|502 Bad Gateway
12:00:04.900 (4900000)|FATAL_ERROR|System.CalloutException: payment gateway unavailable for checkout ABC123456789012
12:00:04.950 (4950000)|LIMIT_USAGE|Number of SOQL queries: 18 out of 100
12:00:04.950 (4950000)|LIMIT_USAGE|Maximum CPU time: 8450 out of 10000
`

const cartTimeoutTrace = `12:03:10.010 (10000)|USER_INFO|[EXTERNAL]|005xx0000067890|buyer@example.com
12:03:10.120 (120000)|METHOD_ENTRY|[1]|apex://CartSyncService/refresh
12:03:10.400 (400000)|WARN|cart line repricing retried
12:03:12.880 (2880000)|EXCEPTION_THROWN|[40]|System.LimitException: Apex CPU time limit exceeded
12:03:12.900 (2900000)|LIMIT_USAGE|Number of SOQL queries: 96 out of 100
12:03:12.900 (2900000)|LIMIT_USAGE|Maximum CPU time: 10020 out of 10000
`

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/tracelogs/search", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Records are pinned just inside the requested window so any window
		// the engine asks about yields correlatable data.
		anchor := req.EndMs - 5_000
		if req.EndMs == 0 {
			anchor = time.Now().UnixMilli() - 5_000
		}
		records := []diagnosticRecord{
			{
				ID:         "07Lxx0000001",
				StartTime:  anchor,
				DurationMs: 3830,
				Operation:  "/apex/CheckoutPaymentHandler",
				RawContent: paymentFailureTrace,
			},
			{
				ID:         "07Lxx0000002",
				StartTime:  anchor + 2_000,
				DurationMs: 2890,
				Operation:  "/apex/CartSyncService",
				RawContent: cartTimeoutTrace,
			},
		}
		if req.Limit > 0 && req.Limit < len(records) {
			records = records[:req.Limit]
		}
		writeJSON(w, map[string]any{"records": records})
	})

	logger := log.New(log.Writer(), "logservice-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8081",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8081")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
