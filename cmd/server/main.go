package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ritamzico/cyql"
	"github.com/ritamzico/cyql/internal/config"
	"github.com/ritamzico/cyql/internal/engine"
	"github.com/ritamzico/cyql/internal/graph"
)

var allowedOrigins = []string{
	"http://localhost:5173",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func corsMiddleware(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// server owns a single shared engine, so every /query request and the
// /metrics endpoint observe the same Prometheus registry and query
// counters — a fresh per-request Engine would scatter its metrics across
// registries nothing ever scrapes.
type server struct {
	engine *engine.Engine
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Graph json.RawMessage        `json:"graph"`
		Query string                 `json:"query"`
		Hints []map[string]string    `json:"hints"`
		Limit *int                   `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.Graph) == 0 {
		writeError(w, http.StatusBadRequest, "missing field: graph")
		return
	}
	if body.Query == "" {
		writeError(w, http.StatusBadRequest, "missing field: query")
		return
	}

	g, err := graph.ReadJSON(bytes.NewReader(body.Graph))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid graph: %v", err))
		return
	}
	inst := &cyql.Instance{Graph: g, Engine: s.engine}

	cq, err := inst.Compile(body.Query)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	opts := engine.RunOptions{Limit: body.Limit}
	if len(body.Hints) > 0 {
		opts.Hints = make([]map[string]graph.NodeID, len(body.Hints))
		for i, h := range body.Hints {
			converted := make(map[string]graph.NodeID, len(h))
			for k, v := range h {
				converted[k] = graph.NodeID(v)
			}
			opts.Hints[i] = converted
		}
	}

	res, err := inst.Run(r.Context(), cq, opts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	b, err := cyql.MarshalResultJSON(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	configPath := flag.String("config", "", "path to a YAML engine config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	s := &server{engine: engine.New(cfg)}

	router := mux.NewRouter()
	router.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.engine.Registry(), promhttp.HandlerOpts{}))

	addr := fmt.Sprintf(":%d", *port)
	fmt.Printf("cyql server listening on %s\n", addr)
	if err := http.ListenAndServe(addr, corsMiddleware(router)); err != nil {
		fmt.Fprintf(flag.CommandLine.Output(), "server error: %v\n", err)
	}
}
