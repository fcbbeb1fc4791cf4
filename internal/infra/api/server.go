package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"vehicle-inspection-platform/internal/config"
	"vehicle-inspection-platform/internal/domain"
	"vehicle-inspection-platform/internal/domain/model"
	"vehicle-inspection-platform/internal/usecase"
)

// requestTimeout bounds every API request. Handlers here only validate and
// hit the store; the long-running analysis work happens off-request.
const requestTimeout = 30 * time.Second

// Server exposes the public inspection API: intake (submit) and the polling
// surface (status + result).
type Server struct {
	cfg *config.Config
	uc  usecase.InspectionUseCase
	log *zerolog.Logger
	srv *http.Server
}

func NewServer(cfg *config.Config, uc usecase.InspectionUseCase, logger *zerolog.Logger) *Server {
	apiLog := logger.With().Str("component", "API").Logger()
	return &Server{cfg: cfg, uc: uc, log: &apiLog}
}

// Router builds the chi route tree wrapped in the standard middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/inspections", s.handleSubmit)
		r.Get("/inspections/{id}", s.handleGet)
		r.Get("/inspections/{id}/result", s.handleGetResult)
	})

	return Chain(r, TraceID(), RequestLog(s.log), Recover(s.log), Timeout(requestTimeout))
}

func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", s.cfg.Server.Port).Msg("API server listening")
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// ---------------- handlers ----------------

type submitRequest struct {
	VideoPath         string `json:"video_path"`
	OdometerPhotoPath string `json:"odometer_photo_path,omitempty"`
}

type inspectionResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	ErrorMessage string `json:"error_message,omitempty"`
	ResultID     string `json:"result_id,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toInspectionResponse(insp *model.Inspection) inspectionResponse {
	return inspectionResponse{
		ID:           insp.ID,
		Status:       string(insp.Status),
		Progress:     insp.Progress,
		ErrorMessage: insp.ErrorMessage,
		ResultID:     insp.ResultID,
		CreatedAt:    insp.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    insp.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// handleSubmit is the intake boundary: the uploaded asset must already be
// stored under the upload directory; this endpoint only validates the
// reference and hands it to the orchestrator. Responds 202 with the job id.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VideoPath == "" {
		writeError(w, http.StatusBadRequest, "video_path is required")
		return
	}
	if err := s.validateAssetPath(req.VideoPath); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OdometerPhotoPath != "" {
		if err := s.validateAssetPath(req.OdometerPhotoPath); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	id, err := s.uc.Submit(r.Context(), req.VideoPath, req.OdometerPhotoPath)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     id,
		"status": string(model.StatusPending),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	insp, err := s.uc.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInspectionResponse(insp))
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.uc.GetResult(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":            res.ID,
		"inspection_id": res.InspectionID,
		"vehicle_info":  res.VehicleInfo,
		"odometer":      res.Odometer,
		"damage":        res.Damage,
		"exhaust":       res.Exhaust,
		"report":        res.Report,
		"frames":        res.Frames,
		"created_at":    res.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// validateAssetPath confines submitted asset references to the upload
// directory. Intake stores assets there; anything outside is a traversal
// attempt or a typo, and the run would only discover it minutes later.
func (s *Server) validateAssetPath(p string) error {
	abs, err := filepath.Abs(p)
	if err != nil {
		return errors.New("invalid asset path")
	}
	root, err := filepath.Abs(s.cfg.Server.UploadDir)
	if err != nil {
		return errors.New("invalid upload directory")
	}
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return errors.New("asset path outside the upload directory")
	}
	if _, err := os.Stat(abs); err != nil {
		return errors.New("asset not found")
	}
	return nil
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid argument")
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
