package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salonbook/internal/metrics"
	"salonbook/internal/models"
)

type sessionRequest struct {
	ClientID int64 `json:"client_id"`
	StoreID  int64 `json:"store_id"`
}

func (sr sessionRequest) context() models.SessionContext {
	return models.SessionContext{ClientID: sr.ClientID, StoreID: sr.StoreID}
}

type wizardRequest struct {
	sessionRequest
	ServiceID  int64  `json:"service_id,omitempty"`
	EmployeeID int64  `json:"employee_id,omitempty"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	ClientName string `json:"client_name,omitempty"`
}

type reservationRequest struct {
	sessionRequest
	ClientName string `json:"client_name"`
	ServiceID  int64  `json:"service_id"`
	EmployeeID int64  `json:"employee_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

type lifecycleRequest struct {
	sessionRequest
	Version int64  `json:"version"`
	Date    string `json:"date,omitempty"`
	Time    string `json:"time,omitempty"`
}

type ratingRequest struct {
	sessionRequest
	ReservationID int64  `json:"reservation_id"`
	Score         int    `json:"score"`
	Comment       string `json:"comment,omitempty"`
}

func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	storeID, _ := strconv.ParseInt(r.URL.Query().Get("store_id"), 10, 64)
	services, err := s.catalog.ListServices(r.Context(), storeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (s *HTTPServer) handleEmployees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	storeID, _ := strconv.ParseInt(r.URL.Query().Get("store_id"), 10, 64)
	employees, err := s.catalog.ListEmployees(r.Context(), storeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": employees})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	employeeID, err := strconv.ParseInt(q.Get("employee_id"), 10, 64)
	if err != nil || employeeID == 0 {
		writeError(w, http.StatusBadRequest, "employee_id is required")
		return
	}
	serviceID, _ := strconv.ParseInt(q.Get("service_id"), 10, 64)

	date, ok := parseDateParam(w, q.Get("date"))
	if !ok {
		return
	}

	slots, err := s.availability.Slots(r.Context(), employeeID, serviceID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"employee_id": employeeID,
		"date":        date.Format(models.DateLayout),
		"slots":       slots,
	})
}

func (s *HTTPServer) handleWizard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	session, ok := sessionFromQuery(w, r)
	if !ok {
		return
	}

	state, err := s.wizard.Current(r.Context(), session)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *HTTPServer) handleWizardAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	action := strings.TrimPrefix(r.URL.Path, "/api/v1/wizard/")
	var body wizardRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ClientID == 0 {
		writeError(w, http.StatusBadRequest, "client_id is required")
		return
	}
	session := body.context()
	ctx := r.Context()

	switch action {
	case "start":
		state, err := s.wizard.Start(ctx, session)
		respondWizard(w, state, err)
	case "service":
		state, err := s.wizard.SelectService(ctx, session, body.ServiceID)
		respondWizard(w, state, err)
	case "employee":
		state, err := s.wizard.SelectEmployee(ctx, session, body.EmployeeID)
		respondWizard(w, state, err)
	case "slot":
		date, ok := parseDateParam(w, body.Date)
		if !ok {
			return
		}
		state, err := s.wizard.SelectSlot(ctx, session, date, body.Time)
		respondWizard(w, state, err)
	case "advance":
		state, err := s.wizard.Advance(ctx, session)
		if errors.Is(err, models.ErrWizardComplete) {
			// Advancing past the confirm step submits the reservation.
			reservation, err := s.wizard.Submit(ctx, session, body.ClientName)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			metrics.IncReservationCreated()
			writeJSON(w, http.StatusCreated, reservation)
			return
		}
		respondWizard(w, state, err)
	case "back":
		state, err := s.wizard.Retreat(ctx, session)
		respondWizard(w, state, err)
	case "submit":
		reservation, err := s.wizard.Submit(ctx, session, body.ClientName)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		metrics.IncReservationCreated()
		writeJSON(w, http.StatusCreated, reservation)
	case "abandon":
		if err := s.wizard.Abandon(ctx, session); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
	default:
		writeError(w, http.StatusNotFound, "unknown wizard action")
	}
}

func respondWizard(w http.ResponseWriter, state models.WizardState, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var body reservationRequest
		if !decodeBody(w, r, &body) {
			return
		}
		if body.ClientID == 0 {
			writeError(w, http.StatusBadRequest, "client_id is required")
			return
		}
		date, ok := parseDateParam(w, body.Date)
		if !ok {
			return
		}

		reservation, err := s.reservations.Create(r.Context(), body.context(), body.ClientName, body.ServiceID, body.EmployeeID, date, body.Time)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		metrics.IncReservationCreated()
		writeJSON(w, http.StatusCreated, reservation)

	case http.MethodGet:
		q := r.URL.Query()
		start, ok := parseDateParam(w, q.Get("start_date"))
		if !ok {
			return
		}
		end, ok := parseDateParam(w, q.Get("end_date"))
		if !ok {
			return
		}

		reservations, err := s.reservations.GetReservationsByDateRange(r.Context(), start, end)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reservations": reservations})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleReservationAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/reservations/")
	parts := strings.Split(rest, "/")

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		reservation, err := s.reservations.GetReservation(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reservation)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body lifecycleRequest
	if !decodeBody(w, r, &body) {
		return
	}
	ctx := r.Context()

	switch parts[1] {
	case "confirm":
		err = s.reservations.Confirm(ctx, id, body.Version)
		respondLifecycle(w, models.StatusConfirmed, err)
	case "cancel":
		err = s.reservations.Cancel(ctx, body.context(), id, body.Version)
		respondLifecycle(w, models.StatusCancelled, err)
	case "complete":
		err = s.reservations.Complete(ctx, id, body.Version)
		respondLifecycle(w, models.StatusCompleted, err)
	case "reschedule":
		date, ok := parseDateParam(w, body.Date)
		if !ok {
			return
		}
		err = s.reservations.Reschedule(ctx, body.context(), id, body.Version, date, body.Time)
		respondLifecycle(w, models.StatusPending, err)
	default:
		writeError(w, http.StatusNotFound, "unknown reservation action")
	}
}

func respondLifecycle(w http.ResponseWriter, status string, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.IncStatusTransition(status)
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *HTTPServer) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	session, ok := sessionFromQuery(w, r)
	if !ok {
		return
	}

	timeline, err := s.timeline.ListReservations(r.Context(), session)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timeline)
}

func (s *HTTPServer) handleRatings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		employeeID, err := strconv.ParseInt(q.Get("employee_id"), 10, 64)
		if err != nil || employeeID == 0 {
			writeError(w, http.StatusBadRequest, "employee_id is required")
			return
		}
		serviceID, _ := strconv.ParseInt(q.Get("service_id"), 10, 64)

		summary, err := s.ratings.EmployeeSummary(r.Context(), employeeID, serviceID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)

	case http.MethodPost:
		var body ratingRequest
		if !decodeBody(w, r, &body) {
			return
		}
		if body.ClientID == 0 || body.ReservationID == 0 {
			writeError(w, http.StatusBadRequest, "client_id and reservation_id are required")
			return
		}

		if err := s.ratings.CreateRating(r.Context(), body.context(), body.ReservationID, body.Score, body.Comment); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "rated"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}

	var body struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	start, ok := parseDateParam(w, body.StartDate)
	if !ok {
		return
	}
	end, ok := parseDateParam(w, body.EndDate)
	if !ok {
		return
	}

	path, err := s.exporter.Export(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file_path": path})
}

// Helpers

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func parseDateParam(w http.ResponseWriter, raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return time.Time{}, false
	}
	date, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func sessionFromQuery(w http.ResponseWriter, r *http.Request) (models.SessionContext, bool) {
	q := r.URL.Query()
	clientID, err := strconv.ParseInt(q.Get("client_id"), 10, 64)
	if err != nil || clientID == 0 {
		writeError(w, http.StatusBadRequest, "client_id is required")
		return models.SessionContext{}, false
	}
	storeID, _ := strconv.ParseInt(q.Get("store_id"), 10, 64)
	return models.SessionContext{ClientID: clientID, StoreID: storeID}, true
}
