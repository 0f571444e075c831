package messaging

import (
	"encoding/json"
	"time"

	"nestling-tracker/internal/core/domain"
)

const (
	EventTypeExportCompleted = "export-completed"
	EventTypeExportFailed    = "export-failed"
)

// ExportNotification is the message families receive on their notification
// topic when an export reaches a terminal state.
type ExportNotification struct {
	Version     string `json:"version"`
	EventType   string `json:"event_type"`
	Timestamp   string `json:"timestamp"` // RFC3339 format
	FamilyID    string `json:"family_id"`
	ChildID     string `json:"child_id"`
	ExportID    string `json:"export_id"`
	TaskID      string `json:"task_id"`
	Format      string `json:"format"`
	Message     string `json:"message"`
	DownloadURL string `json:"download_url,omitempty"`
}

// NewExportNotification builds the envelope for one terminal outcome of
// the given export job. downloadURL is empty on failures.
func NewExportNotification(job domain.ExportJob, eventType string, message string, downloadURL string) *ExportNotification {
	return &ExportNotification{
		Version:     "v1",
		EventType:   eventType,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		FamilyID:    job.FamilyID,
		ChildID:     job.ChildID,
		ExportID:    job.ID,
		TaskID:      job.TaskID,
		Format:      string(job.Format),
		Message:     message,
		DownloadURL: downloadURL,
	}
}

// ToJSON converts the notification to its wire form.
func (n *ExportNotification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// Headers returns the Kafka record headers consumers route on.
func (n *ExportNotification) Headers() map[string]string {
	return map[string]string{
		"event-type": n.EventType,
		"family-id":  n.FamilyID,
		"version":    n.Version,
	}
}
