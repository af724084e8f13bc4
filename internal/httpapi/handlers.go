package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dokkiitech/okusuri/internal/domain"
	"github.com/dokkiitech/okusuri/internal/store"
)

// --- DTOs ---

type settingsResponse struct {
	UserID                string            `json:"userId"`
	ReminderTimes         map[string]string `json:"reminderTimes"`
	NotificationsEnabled  bool              `json:"notificationsEnabled"`
	LowStockAlertsEnabled bool              `json:"lowStockAlertsEnabled"`
	LinkCode              string            `json:"linkCode"`
	UpdatedAt             time.Time         `json:"updatedAt"`
}

func toSettingsResponse(s *domain.ReminderSettings) settingsResponse {
	return settingsResponse{
		UserID:                s.UserID,
		ReminderTimes:         s.ReminderTimes,
		NotificationsEnabled:  s.NotificationsEnabled,
		LowStockAlertsEnabled: s.LowStockAlertsEnabled,
		LinkCode:              s.LinkCode,
		UpdatedAt:             s.UpdatedAt,
	}
}

type medicationResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	DosePerTime      float64  `json:"dosePerTime"`
	Frequency        []string `json:"frequency"`
	PrescriptionDays int      `json:"prescriptionDays"`
	TotalPills       float64  `json:"totalPills"`
	RemainingPills   float64  `json:"remainingPills"`
	TakenCount       int      `json:"takenCount"`
	RemainingDays    *float64 `json:"remainingDays,omitempty"`
}

func toMedicationResponse(m *domain.Medication) medicationResponse {
	resp := medicationResponse{
		ID:               m.ID,
		Name:             m.Name,
		DosePerTime:      m.DosePerTime,
		Frequency:        m.Frequency,
		PrescriptionDays: m.PrescriptionDays,
		TotalPills:       m.TotalPills,
		RemainingPills:   m.RemainingPills,
		TakenCount:       m.TakenCount,
	}
	if days, ok := m.RemainingDays(); ok {
		resp.RemainingDays = &days
	}
	return resp
}

// --- Settings ---

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	settings, err := s.repo.GetSettings(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		// First access seeds defaults.
		settings = domain.DefaultSettings(userID, newLinkCode(), time.Now().UTC())
		if err := s.repo.UpsertSettings(r.Context(), settings); err != nil {
			s.serverError(w, "seed settings", err)
			return
		}
	} else if err != nil {
		s.serverError(w, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

type updateSettingsRequest struct {
	ReminderTimes         map[string]string `json:"reminderTimes"`
	NotificationsEnabled  *bool             `json:"notificationsEnabled"`
	LowStockAlertsEnabled *bool             `json:"lowStockAlertsEnabled"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	settings, err := s.repo.GetSettings(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		settings = domain.DefaultSettings(userID, newLinkCode(), time.Now().UTC())
	} else if err != nil {
		s.serverError(w, "get settings", err)
		return
	}

	if req.ReminderTimes != nil {
		normalized := make(map[string]string, len(req.ReminderTimes))
		for session, t := range req.ReminderTimes {
			if t == "" {
				normalized[session] = ""
				continue
			}
			norm, err := domain.NormalizeHHMM(t)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid time for session "+session)
				return
			}
			normalized[session] = norm
		}
		settings.ReminderTimes = normalized
	}
	if req.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *req.NotificationsEnabled
	}
	if req.LowStockAlertsEnabled != nil {
		settings.LowStockAlertsEnabled = *req.LowStockAlertsEnabled
	}

	if err := s.repo.UpsertSettings(r.Context(), settings); err != nil {
		s.serverError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

func (s *Server) handleRegenerateLinkCode(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	settings, err := s.repo.GetSettings(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		settings = domain.DefaultSettings(userID, newLinkCode(), time.Now().UTC())
	} else if err != nil {
		s.serverError(w, "get settings", err)
		return
	}
	settings.LinkCode = newLinkCode()
	if err := s.repo.UpsertSettings(r.Context(), settings); err != nil {
		s.serverError(w, "regenerate link code", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"linkCode": settings.LinkCode})
}

// --- Medications ---

func (s *Server) handleListMedications(w http.ResponseWriter, r *http.Request) {
	meds, err := s.repo.ListMedications(r.Context(), requestUserID(r))
	if err != nil {
		s.serverError(w, "list medications", err)
		return
	}
	resp := make([]medicationResponse, 0, len(meds))
	for i := range meds {
		resp = append(resp, toMedicationResponse(&meds[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

type createMedicationRequest struct {
	Name             string   `json:"name" validate:"required"`
	DosePerTime      float64  `json:"dosePerTime" validate:"required,gt=0"`
	Frequency        []string `json:"frequency"`
	PrescriptionDays int      `json:"prescriptionDays" validate:"gte=0"`
	TotalPills       float64  `json:"totalPills" validate:"gte=0"`
}

func (s *Server) handleCreateMedication(w http.ResponseWriter, r *http.Request) {
	var req createMedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	m := &domain.Medication{
		ID:               uuid.NewString(),
		UserID:           requestUserID(r),
		Name:             req.Name,
		DosePerTime:      req.DosePerTime,
		Frequency:        req.Frequency,
		PrescriptionDays: req.PrescriptionDays,
		TotalPills:       req.TotalPills,
		RemainingPills:   req.TotalPills,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreateMedication(r.Context(), m); err != nil {
		s.serverError(w, "create medication", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMedicationResponse(m))
}

// ownedMedication loads the path medication and checks ownership.
func (s *Server) ownedMedication(w http.ResponseWriter, r *http.Request) *domain.Medication {
	m, err := s.repo.GetMedication(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "medication not found")
		return nil
	}
	if err != nil {
		s.serverError(w, "get medication", err)
		return nil
	}
	if m.UserID != requestUserID(r) {
		writeError(w, http.StatusNotFound, "medication not found")
		return nil
	}
	return m
}

func (s *Server) handleGetMedication(w http.ResponseWriter, r *http.Request) {
	if m := s.ownedMedication(w, r); m != nil {
		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

type updateMedicationRequest struct {
	Name           *string   `json:"name"`
	DosePerTime    *float64  `json:"dosePerTime" validate:"omitempty,gt=0"`
	Frequency      *[]string `json:"frequency"`
	TotalPills     *float64  `json:"totalPills" validate:"omitempty,gte=0"`
	RemainingPills *float64  `json:"remainingPills" validate:"omitempty,gte=0"`
}

func (s *Server) handleUpdateMedication(w http.ResponseWriter, r *http.Request) {
	m := s.ownedMedication(w, r)
	if m == nil {
		return
	}
	var req updateMedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.DosePerTime != nil {
		m.DosePerTime = *req.DosePerTime
	}
	if req.Frequency != nil {
		m.Frequency = *req.Frequency
	}
	if req.TotalPills != nil {
		m.TotalPills = *req.TotalPills
	}
	if req.RemainingPills != nil {
		m.RemainingPills = *req.RemainingPills
	}

	if err := s.repo.UpdateMedication(r.Context(), m); err != nil {
		s.serverError(w, "update medication", err)
		return
	}
	writeJSON(w, http.StatusOK, toMedicationResponse(m))
}

func (s *Server) handleDeleteMedication(w http.ResponseWriter, r *http.Request) {
	m := s.ownedMedication(w, r)
	if m == nil {
		return
	}
	if err := s.repo.DeleteMedication(r.Context(), m.ID); err != nil {
		s.serverError(w, "delete medication", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type takeMedicationRequest struct {
	Session string `json:"session"`
}

func (s *Server) handleTakeMedication(w http.ResponseWriter, r *http.Request) {
	m := s.ownedMedication(w, r)
	if m == nil {
		return
	}
	var req takeMedicationRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	m.RecordTaken(time.Now().UTC())
	if err := s.repo.UpdateMedication(r.Context(), m); err != nil {
		s.serverError(w, "record taken", err)
		return
	}
	s.log.Debug("taken event recorded",
		zap.String("medicationID", m.ID), zap.String("session", req.Session))
	writeJSON(w, http.StatusOK, toMedicationResponse(m))
}

type refillMedicationRequest struct {
	Days int `json:"days" validate:"required,gt=0"`
}

func (s *Server) handleRefillMedication(w http.ResponseWriter, r *http.Request) {
	m := s.ownedMedication(w, r)
	if m == nil {
		return
	}
	var req refillMedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m.Refill(req.Days, time.Now().UTC())
	if err := s.repo.UpdateMedication(r.Context(), m); err != nil {
		s.serverError(w, "refill medication", err)
		return
	}
	writeJSON(w, http.StatusOK, toMedicationResponse(m))
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
