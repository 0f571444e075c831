package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"nestling-tracker/internal/core/ports"
)

// ScheduleHandler serves the recurring export schedule routes.
type ScheduleHandler struct {
	schedules ports.ScheduleService
}

func NewScheduleHandler(schedules ports.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

func (h *ScheduleHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		ChildID  string `json:"child_id"`
		Format   string `json:"format"`
		Schedule string `json:"schedule"`
		Timezone string `json:"timezone"` // Optional, defaults to UTC
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorInvalidJSON(err)})
		return
	}

	if req.ChildID == "" || req.Format == "" || req.Schedule == "" {
		respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorMissingFields()})
		return
	}

	schedule, err := h.schedules.CreateSchedule(ident.FamilyID, req.ChildID, ident.Username,
		req.Format, req.Schedule, req.Timezone)
	if err != nil {
		respondWithDomainError(w, err, "child", req.ChildID)
		return
	}

	zap.S().Infow("Export schedule created", "schedule_id", schedule.ID, "family_id", ident.FamilyID)

	w.Header().Set("Location", "/api/v1/schedules/"+schedule.ID)
	respondWithJSON(w, http.StatusCreated, ToScheduleResponse(schedule))
}

func (h *ScheduleHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	schedules, err := h.schedules.ListSchedules(ident.FamilyID)
	if err != nil {
		respondWithErrors(w, http.StatusInternalServerError, []ErrorObject{errorInternalServer()})
		return
	}

	respondWithJSON(w, http.StatusOK, ToScheduleResponseList(schedules))
}

func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	schedule, err := h.schedules.GetSchedule(ident.FamilyID, id)
	if err != nil {
		respondWithDomainError(w, err, "schedule", id)
		return
	}

	respondWithJSON(w, http.StatusOK, ToScheduleResponse(schedule))
}

func (h *ScheduleHandler) EnableSchedule(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

func (h *ScheduleHandler) DisableSchedule(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *ScheduleHandler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	schedule, err := h.schedules.SetScheduleEnabled(ident.FamilyID, id, enabled)
	if err != nil {
		respondWithDomainError(w, err, "schedule", id)
		return
	}

	respondWithJSON(w, http.StatusOK, ToScheduleResponse(schedule))
}

func (h *ScheduleHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.schedules.DeleteSchedule(ident.FamilyID, id); err != nil {
		respondWithDomainError(w, err, "schedule", id)
		return
	}

	zap.S().Infow("Export schedule deleted", "schedule_id", id, "family_id", ident.FamilyID)
	w.WriteHeader(http.StatusNoContent)
}
