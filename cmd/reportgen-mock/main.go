// Command reportgen-mock is a stand-in for the report generation service
// used in local development. It accepts render tasks, walks them through
// pending/processing/completed over a configurable duration and serves a
// small generated document for download.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"nestling-tracker/internal/core/domain"
	"nestling-tracker/internal/logger"
)

type renderTask struct {
	ID        string
	Name      string
	Format    domain.ExportFormat
	ChildID   string
	CreatedAt time.Time
	Fails     bool
}

type mockService struct {
	mu          sync.Mutex
	tasks       map[string]*renderTask
	renderTime  time.Duration
	failureRate float64
}

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	renderTime := flag.Duration("render-time", 10*time.Second, "how long a task takes to complete")
	failureRate := flag.Float64("failure-rate", 0, "fraction of tasks that fail (0..1)")
	flag.Parse()

	flush, err := logger.Init("debug", "console")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer flush()

	svc := &mockService{
		tasks:       make(map[string]*renderTask),
		renderTime:  *renderTime,
		failureRate: *failureRate,
	}

	router := mux.NewRouter()
	router.HandleFunc("/v1/reports", svc.createReport).Methods("POST")
	router.HandleFunc("/v1/reports/{taskId}/status", svc.reportStatus).Methods("GET")
	router.HandleFunc("/v1/reports/{taskId}/download", svc.downloadReport).Methods("GET")

	zap.S().Infow("Mock report service listening", "addr", *addr,
		"render_time", *renderTime, "failure_rate", *failureRate)
	if err := http.ListenAndServe(*addr, router); err != nil {
		zap.S().Fatalw("Server error", "error", err)
	}
}

func (s *mockService) createReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string              `json:"name"`
		Format   domain.ExportFormat `json:"format"`
		ChildID  string              `json:"child_id"`
		Sections []string            `json:"sections"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}
	if req.ChildID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "child_id is required")
		return
	}
	switch req.Format {
	case domain.FormatPDF, domain.FormatCSV:
	default:
		writeError(w, http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("unsupported format: %s", req.Format))
		return
	}

	task := &renderTask{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Format:    req.Format,
		ChildID:   req.ChildID,
		CreatedAt: time.Now(),
		Fails:     rand.Float64() < s.failureRate,
	}
	if task.Name == "" {
		task.Name = "export"
	}

	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()

	zap.S().Infow("Render task accepted", "task_id", task.ID, "format", task.Format,
		"child_id", task.ChildID, "will_fail", task.Fails)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"task_id": task.ID,
		"status":  domain.ExportPending,
	})
}

func (s *mockService) reportStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookup(mux.Vars(r)["taskId"])
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no such task")
		return
	}

	report := s.statusOf(task, r)
	writeJSON(w, http.StatusOK, report)
}

func (s *mockService) downloadReport(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookup(mux.Vars(r)["taskId"])
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no such task")
		return
	}

	report := s.statusOf(task, r)
	if report.Status != domain.ExportCompleted {
		writeError(w, http.StatusConflict, "not_ready",
			fmt.Sprintf("task is %s, document not available", report.Status))
		return
	}

	document, contentType := renderDocument(task)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", taskFilename(task)))
	w.WriteHeader(http.StatusOK)
	w.Write(document)
}

func (s *mockService) lookup(id string) (*renderTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	return task, ok
}

// statusOf derives the task state from elapsed wall time so the mock needs
// no background workers.
func (s *mockService) statusOf(task *renderTask, r *http.Request) domain.StatusReport {
	elapsed := time.Since(task.CreatedAt)
	fraction := float64(elapsed) / float64(s.renderTime)

	switch {
	case fraction < 0.1:
		return domain.StatusReport{Status: domain.ExportPending}

	case fraction < 1:
		progress := int(fraction * 100)
		return domain.StatusReport{Status: domain.ExportProcessing, Progress: &progress}

	case task.Fails:
		message := "renderer crashed while laying out the document"
		return domain.StatusReport{Status: domain.ExportFailed, Error: &message}

	default:
		progress := 100
		completedAt := task.CreatedAt.Add(s.renderTime)
		return domain.StatusReport{
			Status:   domain.ExportCompleted,
			Progress: &progress,
			Result: &domain.ExportResult{
				DownloadURL: fmt.Sprintf("http://%s/v1/reports/%s/download", r.Host, task.ID),
				Filename:    taskFilename(task),
				CreatedAt:   completedAt,
				ExpiresAt:   completedAt.Add(24 * time.Hour),
			},
		}
	}
}

func taskFilename(task *renderTask) string {
	slug := strings.ToLower(strings.ReplaceAll(task.Name, " ", "-"))
	return fmt.Sprintf("%s.%s", slug, task.Format)
}

func renderDocument(task *renderTask) ([]byte, string) {
	if task.Format == domain.FormatCSV {
		doc := fmt.Sprintf("type,started_at,ended_at,amount,unit,notes\nfeeding,%s,,120,ml,%s\n",
			task.CreatedAt.Format(time.RFC3339), task.Name)
		return []byte(doc), "text/csv"
	}
	doc := fmt.Sprintf("%%PDF-1.4\n%% mock document for %s, child %s\n%%%%EOF\n",
		task.Name, task.ChildID)
	return []byte(doc), "application/pdf"
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
