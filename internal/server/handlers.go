package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/logging"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/motion"
	"github.com/manav03panchal/bikeguard/internal/sensor"
)

type contactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type motionRequest struct {
	X  *float64  `json:"x"`
	Y  *float64  `json:"y"`
	Z  *float64  `json:"z"`
	At time.Time `json:"at"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
}

type sendResponse struct {
	Delivered int       `json:"delivered"`
	Webhooks  int       `json:"webhooks"`
	SentAt    time.Time `json:"sent_at"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.guard.Status())
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Get()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Contacts)
}

func (s *Server) handleAddContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	c, err := s.profiles.AddContact(req.Name, req.Phone)
	if err != nil {
		if errors.Is(err, errors.ErrContactFieldsRequired) {
			s.notifier.Notify("Please fill all fields", "Name and phone number are required")
		}
		writeError(w, err)
		return
	}

	s.notifier.Notify("Contact saved", fmt.Sprintf("%s added to emergency contacts", c.Name))
	s.reloadProfile()
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid contact id", http.StatusBadRequest)
		return
	}
	if err := s.profiles.DeleteContact(id); err != nil {
		writeError(w, err)
		return
	}
	s.reloadProfile()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Get()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req model.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := s.profiles.UpdateSettings(req); err != nil {
		writeError(w, err)
		return
	}

	p := s.reloadProfile()
	if p == nil {
		writeError(w, errors.NewSystemError("settings saved but could not be reloaded", nil))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	s.guard.Activate()
	writeJSON(w, http.StatusOK, s.guard.Status())
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	s.guard.Deactivate()
	writeJSON(w, http.StatusOK, s.guard.Status())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.guard.Toggle()
	writeJSON(w, http.StatusOK, s.guard.Status())
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	if err := s.guard.TestAlert(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.guard.Status())
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.guard.Cancel(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.guard.Status())
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	report, err := s.guard.SendNow(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{
		Delivered: report.Delivered(),
		Webhooks:  len(report.Webhooks),
		SentAt:    report.SentAt,
	})
}

func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	if s.incidents == nil {
		writeJSON(w, http.StatusOK, []*model.Incident{})
		return
	}

	q := r.URL.Query()
	var (
		list []*model.Incident
		err  error
	)
	if v := q.Get("since"); v != "" {
		since, perr := time.Parse(time.RFC3339, v)
		if perr != nil {
			http.Error(w, "since must be an RFC3339 time", http.StatusBadRequest)
			return
		}
		list, err = s.incidents.ListSince(since)
	} else {
		list, err = s.incidents.List()
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n < len(list) {
			list = list[:n]
		}
	}
	if list == nil {
		list = []*model.Incident{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMotion(w http.ResponseWriter, r *http.Request) {
	var req motionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sample := sensor.Sample{At: req.At}
	if sample.At.IsZero() {
		sample.At = time.Now()
	}
	if req.X != nil || req.Y != nil || req.Z != nil {
		sample.Accel = &motion.Acceleration{X: req.X, Y: req.Y, Z: req.Z}
	}

	if s.motion == nil {
		s.guard.HandleSample(sample)
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if !s.motion.Push(sample) {
		http.Error(w, "motion buffer full", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// reloadProfile pushes the stored profile into the guard so the next sample
// sees the change.
func (s *Server) reloadProfile() *model.Profile {
	p, err := s.profiles.Get()
	if err != nil {
		logging.Warn("could not reload profile", logging.KeyError, err)
		return nil
	}
	s.guard.ApplyProfile(p)
	return p
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrContactNotFound),
		errors.Is(err, errors.ErrIncidentNotFound),
		errors.Is(err, errors.ErrWebhookNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrNotActive),
		errors.Is(err, errors.ErrNoAlert),
		errors.Is(err, errors.ErrAlertInProgress):
		return http.StatusConflict
	case errors.Is(err, errors.ErrLockHeld):
		return http.StatusServiceUnavailable
	case errors.Classify(err) == errors.CategoryUser:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{
		Error:      err.Error(),
		Suggestion: errors.GetSuggestion(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
