package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/export"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking engine to front-end session layers.
// Callers pass the session identity explicitly; the server never keeps
// ambient per-client state.
type HTTPServer struct {
	cfg          config.APIConfig
	catalog      *service.CatalogService
	availability *service.AvailabilityService
	wizard       *service.WizardService
	reservations *service.ReservationService
	timeline     *service.TimelineService
	ratings      *service.RatingService
	exporter     *export.ExcelExporter
	logger       *zerolog.Logger
	server       *http.Server
	auth         *HTTPAuth
}

func NewHTTPServer(
	cfg config.APIConfig,
	catalog *service.CatalogService,
	availability *service.AvailabilityService,
	wizard *service.WizardService,
	reservations *service.ReservationService,
	timeline *service.TimelineService,
	ratings *service.RatingService,
	exporter *export.ExcelExporter,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:          cfg,
		catalog:      catalog,
		availability: availability,
		wizard:       wizard,
		reservations: reservations,
		timeline:     timeline,
		ratings:      ratings,
		exporter:     exporter,
		logger:       logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/services", srv.handleServices)
	mux.HandleFunc("/api/v1/employees", srv.handleEmployees)
	mux.HandleFunc("/api/v1/availability", srv.handleAvailability)
	mux.HandleFunc("/api/v1/wizard", srv.handleWizard)
	mux.HandleFunc("/api/v1/wizard/", srv.handleWizardAction)
	mux.HandleFunc("/api/v1/reservations", srv.handleReservations)
	mux.HandleFunc("/api/v1/reservations/", srv.handleReservationAction)
	mux.HandleFunc("/api/v1/timeline", srv.handleTimeline)
	mux.HandleFunc("/api/v1/ratings", srv.handleRatings)
	mux.HandleFunc("/api/v1/export", srv.handleExport)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the full middleware chain, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// writeServiceError maps domain errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrSlotTaken):
		metrics.IncSlotConflict()
		writeError(w, http.StatusConflict, "slot is already taken")
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "reservation was modified concurrently")
	case errors.Is(err, database.ErrAlreadyRated):
		writeError(w, http.StatusConflict, "reservation is already rated")
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrNotElapsed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrNotFound), errors.Is(err, service.ErrNoWizard):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrPastDate), errors.Is(err, database.ErrDateTooFar),
		errors.Is(err, service.ErrInvalidScore), errors.Is(err, models.ErrStepIncomplete),
		errors.Is(err, service.ErrCatalogUnavailable):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
