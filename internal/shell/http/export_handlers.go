package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nestling-tracker/internal/core/domain"
	"nestling-tracker/internal/core/ports"
	"nestling-tracker/internal/export"
)

// ExportHandler serves the export job routes, including the WebSocket
// watch stream.
type ExportHandler struct {
	exports  ports.ExportService
	upgrader websocket.Upgrader
}

func NewExportHandler(exports ports.ExportService) *ExportHandler {
	return &ExportHandler{
		exports: exports,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *ExportHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		Name     string     `json:"name"`
		ChildID  string     `json:"child_id"`
		Format   string     `json:"format"`
		From     *time.Time `json:"from"`
		To       *time.Time `json:"to"`
		Sections []string   `json:"sections"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorInvalidJSON(err)})
		return
	}

	if req.ChildID == "" || req.Format == "" {
		respondWithErrors(w, http.StatusBadRequest, []ErrorObject{errorMissingFields()})
		return
	}

	job, err := h.exports.StartExport(r.Context(), ident.FamilyID, ident.Username, domain.ReportRequest{
		Name:     req.Name,
		Format:   domain.ExportFormat(req.Format),
		ChildID:  req.ChildID,
		From:     req.From,
		To:       req.To,
		Sections: req.Sections,
	})
	if err != nil {
		respondWithDomainError(w, err, "child", req.ChildID)
		return
	}

	zap.S().Infow("Export started", "export_id", job.ID, "task_id", job.TaskID, "family_id", ident.FamilyID)

	w.Header().Set("Location", "/api/v1/exports/"+job.ID)
	respondWithJSON(w, http.StatusAccepted, ToExportResponse(job))
}

func (h *ExportHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	jobs, err := h.exports.ListExports(ident.FamilyID)
	if err != nil {
		respondWithErrors(w, http.StatusInternalServerError, []ErrorObject{errorInternalServer()})
		return
	}

	respondWithJSON(w, http.StatusOK, ToExportResponseList(jobs))
}

func (h *ExportHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	job, err := h.exports.GetExport(id, ident.FamilyID)
	if err != nil {
		respondWithDomainError(w, err, "export", id)
		return
	}

	respondWithJSON(w, http.StatusOK, ToExportResponse(job))
}

// GetExportStatus serves the live snapshot of an export: the same record
// as GetExport, reduced to the fields that change while polling.
func (h *ExportHandler) GetExportStatus(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	job, err := h.exports.GetExport(id, ident.FamilyID)
	if err != nil {
		respondWithDomainError(w, err, "export", id)
		return
	}

	respondWithJSON(w, http.StatusOK, exportStatusBody(job))
}

func (h *ExportHandler) CancelExport(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.exports.CancelExport(id, ident.FamilyID); err != nil {
		respondWithDomainError(w, err, "export", id)
		return
	}

	zap.S().Infow("Export cancelled", "export_id", id, "family_id", ident.FamilyID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ExportHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	path, err := h.exports.DownloadExport(r.Context(), id, ident.FamilyID)
	if err != nil {
		respondWithDomainError(w, err, "export", id)
		return
	}

	http.ServeFile(w, r, path)
}

// exportStateMessage is one WebSocket frame of the watch stream.
type exportStateMessage struct {
	Status       string               `json:"status"`
	Progress     int                  `json:"progress"`
	Result       *domain.ExportResult `json:"result,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	Polling      bool                 `json:"polling"`
}

// WatchExport upgrades the connection and pushes every state change of
// the export until the terminal one, then closes.
func (h *ExportHandler) WatchExport(w http.ResponseWriter, r *http.Request) {
	ident, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	watch, err := h.exports.WatchExport(id, ident.FamilyID)
	if err != nil {
		respondWithDomainError(w, err, "export", id)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		zap.S().Debugw("WebSocket upgrade failed", "export_id", id, "error", err)
		return
	}
	defer conn.Close()

	// Drop frames the client never reads instead of blocking the stream.
	for state := range watch {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(stateMessage(state)); err != nil {
			zap.S().Debugw("WebSocket write failed", "export_id", id, "error", err)
			return
		}
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "export finished"))
}

func stateMessage(state export.State) exportStateMessage {
	return exportStateMessage{
		Status:       string(state.Status),
		Progress:     state.Progress,
		Result:       state.Result,
		ErrorMessage: state.ErrorMessage,
		Polling:      state.Polling,
	}
}

func exportStatusBody(job domain.ExportJob) map[string]interface{} {
	body := map[string]interface{}{
		"id":       job.ID,
		"status":   string(job.Status),
		"progress": job.Progress,
	}
	if job.Result != nil {
		body["result"] = job.Result
	}
	if job.ErrorMessage != nil {
		body["error_message"] = *job.ErrorMessage
	}
	return body
}
