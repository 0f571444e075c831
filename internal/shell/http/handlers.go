package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"nestling-tracker/internal/core/domain"
	"nestling-tracker/internal/core/ports"
	"nestling-tracker/internal/identity"
)

// TrackerHandler serves the children, care event and daily stats routes.
type TrackerHandler struct {
	tracking ports.TrackingService
	stats    ports.StatsService
}

func NewTrackerHandler(tracking ports.TrackingService, stats ports.StatsService) *TrackerHandler {
	return &TrackerHandler{
		tracking: tracking,
		stats:    stats,
	}
}

// callerIdentity pulls the identity the auth middleware stored. A missing
// identity means the route was wired without the middleware, which is a
// server bug, not a client error.
func callerIdentity(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	ident, ok := identity.Get(r.Context())
	if !ok {
		zap.S().Errorw("No identity in request context", "path", r.URL.Path)
		respondWithErrors(w, http.StatusInternalServerError, []ErrorObject{errorInternalServer()})
		return identity.Identity{}, false
	}
	return ident, true
}

func respondWithJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.S().Warnw("Failed to encode response", "error", err)
	}
}

func (h *TrackerHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		Name      string `json:"name"`
		BirthDate string `json:"birth_date"` // YYYY-MM-DD
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorInvalidJSON(err)})
		return
	}

	if req.Name == "" || req.BirthDate == "" {
		respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorMissingFields()})
		return
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorInvalidField("birth_date", "must be a YYYY-MM-DD date")})
		return
	}

	child, err := h.tracking.CreateChild(ident.FamilyID, req.Name, birthDate)
	if err != nil {
		respondWithDomainError(w, err, "child", "")
		return
	}

	zap.S().Infow("Child created", "child_id", child.ID, "family_id", ident.FamilyID)

	w.Header().Set("Location", "/api/v1/children/"+child.ID)
	respondWithJSON(w, http.StatusCreated, ToChildResponse(child))
}

func (h *TrackerHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	children, err := h.tracking.ListChildren(ident.FamilyID)
	if err != nil {
		respondWithErrors(w, http.StatusInternalServerError, []ErrorObject{errorInternalServer()})
		return
	}

	respondWithJSON(w, http.StatusOK, ToChildResponseList(children))
}

func (h *TrackerHandler) GetChild(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	child, err := h.tracking.GetChild(ident.FamilyID, id)
	if err != nil {
		respondWithDomainError(w, err, "child", id)
		return
	}

	respondWithJSON(w, http.StatusOK, ToChildResponse(child))
}

func (h *TrackerHandler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	var req struct {
		Name      *string `json:"name"`
		BirthDate *string `json:"birth_date"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorInvalidJSON(err)})
		return
	}

	var birthDate *time.Time
	if req.BirthDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorInvalidField("birth_date", "must be a YYYY-MM-DD date")})
			return
		}
		birthDate = &parsed
	}

	child, err := h.tracking.UpdateChild(ident.FamilyID, id, req.Name, birthDate)
	if err != nil {
		respondWithDomainError(w, err, "child", id)
		return
	}

	respondWithJSON(w, http.StatusOK, ToChildResponse(child))
}

func (h *TrackerHandler) DeleteChild(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.tracking.DeleteChild(ident.FamilyID, id); err != nil {
		respondWithDomainError(w, err, "child", id)
		return
	}

	zap.S().Infow("Child deleted", "child_id", id, "family_id", ident.FamilyID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TrackerHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	childID := mux.Vars(r)["childId"]

	var req struct {
		Type       string     `json:"type"`
		StartedAt  time.Time  `json:"started_at"`
		EndedAt    *time.Time `json:"ended_at"`
		Amount     *float64   `json:"amount"`
		Unit       string     `json:"unit"`
		DiaperKind string     `json:"diaper_kind"`
		Notes      string     `json:"notes"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorInvalidJSON(err)})
		return
	}

	if req.Type == "" || req.StartedAt.IsZero() {
		respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorMissingFields()})
		return
	}

	event, err := h.tracking.RecordEvent(ident.FamilyID, childID, req.Type, req.StartedAt,
		req.EndedAt, req.Amount, req.Unit, req.DiaperKind, req.Notes)
	if err != nil {
		respondWithDomainError(w, err, "child", childID)
		return
	}

	w.Header().Set("Location", "/api/v1/children/"+childID+"/events/"+event.ID)
	respondWithJSON(w, http.StatusCreated, ToEventResponse(event))
}

func (h *TrackerHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	childID := mux.Vars(r)["childId"]

	offset, limit := parsePaginationParams(r.URL)

	filter := domain.EventFilter{
		Type:   domain.EventType(r.URL.Query().Get("type")),
		Offset: offset,
		Limit:  limit,
	}

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorInvalidField("from", "must be an RFC3339 timestamp")})
			return
		}
		filter.From = &from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorInvalidField("to", "must be an RFC3339 timestamp")})
			return
		}
		filter.To = &to
	}

	events, total, err := h.tracking.ListEvents(ident.FamilyID, childID, filter)
	if err != nil {
		respondWithDomainError(w, err, "child", childID)
		return
	}

	response := buildPaginatedResponse(r.URL, offset, limit, total, ToEventResponseList(events))
	respondWithJSON(w, http.StatusOK, response)
}

func (h *TrackerHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)

	event, err := h.tracking.GetEvent(ident.FamilyID, vars["childId"], vars["id"])
	if err != nil {
		respondWithDomainError(w, err, "event", vars["id"])
		return
	}

	respondWithJSON(w, http.StatusOK, ToEventResponse(event))
}

func (h *TrackerHandler) EndEvent(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)

	var req struct {
		EndedAt time.Time `json:"ended_at"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorInvalidJSON(err)})
		return
	}
	if req.EndedAt.IsZero() {
		req.EndedAt = time.Now().UTC()
	}

	event, err := h.tracking.EndEvent(ident.FamilyID, vars["childId"], vars["id"], req.EndedAt)
	if err != nil {
		respondWithDomainError(w, err, "event", vars["id"])
		return
	}

	respondWithJSON(w, http.StatusOK, ToEventResponse(event))
}

func (h *TrackerHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)

	if err := h.tracking.DeleteEvent(ident.FamilyID, vars["childId"], vars["id"]); err != nil {
		respondWithDomainError(w, err, "event", vars["id"])
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TrackerHandler) GetDailyStats(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	childID := mux.Vars(r)["childId"]

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorInvalidField("days", "must be an integer")})
			return
		}
		days = parsed
	}

	stats, err := h.stats.DailyStats(ident.FamilyID, childID, days)
	if err != nil {
		respondWithDomainError(w, err, "child", childID)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
