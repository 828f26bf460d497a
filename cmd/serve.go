package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hdtickets/ticketsearch/internal/aggregator"
	"github.com/hdtickets/ticketsearch/internal/model"
	"github.com/hdtickets/ticketsearch/internal/monitoring"
	"github.com/hdtickets/ticketsearch/internal/source"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP search API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		promReg := prometheus.NewRegistry()
		e, err := initEnv(ctx, monitoring.NewPromRecorder(promReg))
		if err != nil {
			return err
		}
		defer e.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(e, promReg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// searchRequest is the POST /api/v1/search body.
type searchRequest struct {
	Keyword  string   `json:"keyword"`
	DateFrom string   `json:"date_from,omitempty"`
	DateTo   string   `json:"date_to,omitempty"`
	PriceMax string   `json:"price_max,omitempty"`
	Location string   `json:"location,omitempty"`
	Sources  []string `json:"sources,omitempty"`
}

func (r searchRequest) criteria() model.Criteria {
	crit := model.Criteria{model.CriteriaKeyword: r.Keyword}
	if r.DateFrom != "" {
		crit[model.CriteriaDateFrom] = r.DateFrom
	}
	if r.DateTo != "" {
		crit[model.CriteriaDateTo] = r.DateTo
	}
	if r.PriceMax != "" {
		crit[model.CriteriaPriceMax] = r.PriceMax
	}
	if r.Location != "" {
		crit[model.CriteriaLocation] = r.Location
	}
	return crit
}

func newRouter(e *env, promReg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/v1/sources", func(w http.ResponseWriter, req *http.Request) {
		type sourceState struct {
			Name     string `json:"name"`
			Admitted bool   `json:"admitted"`
			Backoff  string `json:"backoff,omitempty"`
		}
		states := make([]sourceState, 0)
		for _, name := range e.Registry.AllNames() {
			st := sourceState{
				Name:     name,
				Admitted: e.Limiter.CanQuery(req.Context(), name, source.DefaultEndpoint),
			}
			if wait := e.Limiter.WaitTime(req.Context(), name, source.DefaultEndpoint); wait > 0 {
				st.Backoff = wait.String()
			}
			states = append(states, st)
		}
		writeJSON(w, http.StatusOK, states)
	})

	r.Post("/api/v1/search", func(w http.ResponseWriter, req *http.Request) {
		var body searchRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Keyword == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "keyword is required"})
			return
		}

		crit := e.SrcConfig.Canonicalize(body.criteria())
		res, err := e.Orch.Aggregate(req.Context(), crit, aggregator.SearchOpts{Sources: body.Sources})
		if err != nil {
			zap.L().Error("search failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encoding response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
