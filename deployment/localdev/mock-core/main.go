// Command mock-core serves a synthetic mirador-core metric matrix for local development.
package main

import (
	"encoding/json"
	"hash/fnv"
	"log"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
)

type matrixRequest struct {
	TestID      string   `json:"test_id"`
	Metrics     []string `json:"metrics"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	StepSeconds int64    `json:"step_seconds"`
}

type matrixSeries struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

type matrixResponse struct {
	Timestamps []time.Time    `json:"timestamps"`
	Series     []matrixSeries `json:"series"`
}

// faultMarkers name the metrics that shift during the second half of any requested range.
var faultMarkers = []string{"latency", "error", "cpu"}

func main() {
	addr := ":8080"
	if v := os.Getenv("MOCK_CORE_ADDRESS"); v != "" {
		addr = v
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/v1/rca/metric-matrix", handleMatrix)

	logger := log.New(log.Writer(), "core-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:              addr,
		Handler:           logRequests(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func handleMatrix(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req matrixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil || !end.After(start) {
		http.Error(w, "invalid end", http.StatusBadRequest)
		return
	}
	step := time.Duration(req.StepSeconds) * time.Second
	if step <= 0 {
		step = time.Minute
	}

	var stamps []time.Time
	for ts := start; ts.Before(end); ts = ts.Add(step) {
		stamps = append(stamps, ts)
	}
	shiftAt := start.Add(end.Sub(start) / 2)

	resp := matrixResponse{Timestamps: stamps, Series: make([]matrixSeries, 0, len(req.Metrics))}
	for _, name := range req.Metrics {
		resp.Series = append(resp.Series, synthesise(name, stamps, shiftAt))
	}
	writeJSON(w, resp)
}

// synthesise produces a seeded periodic series; fault metrics jump once shiftAt is reached and
// every seventh sample is reported missing.
func synthesise(name string, stamps []time.Time, shiftAt time.Time) matrixSeries {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	seed := float64(h.Sum32()%97) + 1

	faulty := false
	lower := strings.ToLower(name)
	for _, marker := range faultMarkers {
		if strings.Contains(lower, marker) {
			faulty = true
			break
		}
	}

	values := make([]*float64, len(stamps))
	for i, ts := range stamps {
		if i%7 == 6 {
			continue
		}
		v := seed + math.Sin(float64(i)/3)
		if faulty && !ts.Before(shiftAt) {
			v += seed * 0.5 * (1 + float64(i%4)/4)
		}
		values[i] = &v
	}
	return matrixSeries{Name: name, Values: values}
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
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
