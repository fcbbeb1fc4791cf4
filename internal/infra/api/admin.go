package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"vehicle-inspection-platform/internal/config"
	"vehicle-inspection-platform/internal/infra/sched"
	"vehicle-inspection-platform/internal/infra/web"
	"vehicle-inspection-platform/internal/usecase"
)

// AdminServer is the operational surface on a separate port: Prometheus
// metrics, a JWT-guarded inspection listing, and an on-demand stale sweep.
type AdminServer struct {
	cfg        *config.Config
	uc         usecase.InspectionUseCase
	reconciler *sched.StaleRunReconciler
	auth       *web.AuthManager
	log        *zerolog.Logger
	srv        *http.Server
}

func NewAdminServer(cfg *config.Config, uc usecase.InspectionUseCase, reconciler *sched.StaleRunReconciler, logger *zerolog.Logger) *AdminServer {
	admLog := logger.With().Str("component", "AdminAPI").Logger()
	return &AdminServer{
		cfg:        cfg,
		uc:         uc,
		reconciler: reconciler,
		auth:       web.NewAuthManager(cfg.Admin.SessionSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL),
		log:        &admLog,
	}
}

func (s *AdminServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Handle("/metrics", promhttp.Handler())
	r.Post("/admin/login", s.handleLogin)
	r.Post("/admin/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Require)
		r.Get("/admin/inspections", s.handleList)
		r.Post("/admin/sweep", s.handleSweep)
	})

	return Chain(r, TraceID(), RequestLog(s.log), Recover(s.log), Timeout(requestTimeout))
}

func (s *AdminServer) Start() error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Admin.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", s.cfg.Admin.Port).Msg("admin server listening")
	return s.srv.ListenAndServe()
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *AdminServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if s.cfg.Admin.Password == "" ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.Admin.Password)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *AdminServer) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *AdminServer) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &limit); err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	inspections, err := s.uc.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]inspectionResponse, 0, len(inspections))
	for _, insp := range inspections {
		out = append(out, toInspectionResponse(insp))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"inspections": out})
}

func (s *AdminServer) handleSweep(w http.ResponseWriter, r *http.Request) {
	if s.reconciler == nil {
		writeError(w, http.StatusServiceUnavailable, "reconciler disabled")
		return
	}
	swept := s.reconciler.Sweep(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"swept": swept})
}
