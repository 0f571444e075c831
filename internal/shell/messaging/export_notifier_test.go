package messaging

import (
	"encoding/json"
	"errors"
	"testing"

	"nestling-tracker/internal/core/domain"
)

type fakeSender struct {
	sendFunc func(key string, value []byte, headers map[string]string) error

	key     string
	value   []byte
	headers map[string]string
	calls   int
}

func (f *fakeSender) SendMessage(key string, value []byte, headers map[string]string) error {
	f.calls++
	f.key = key
	f.value = value
	f.headers = headers
	if f.sendFunc != nil {
		return f.sendFunc(key, value, headers)
	}
	return nil
}

var _ MessageSender = (*fakeSender)(nil)

func TestKafkaNotifierSuccess(t *testing.T) {
	sender := &fakeSender{}
	job := domain.NewExportJob("fam-1", "child-1", "alice", domain.FormatPDF, "task-42")

	notifier := NewKafkaNotifier(sender, job)
	notifier.Success("Export maja-march.pdf is ready to download")

	if sender.calls != 1 {
		t.Fatalf("Expected 1 message, got %d", sender.calls)
	}
	if sender.key != "fam-1" {
		t.Errorf("Expected message key fam-1, got %s", sender.key)
	}

	var notification ExportNotification
	if err := json.Unmarshal(sender.value, &notification); err != nil {
		t.Fatalf("Failed to decode notification payload: %v", err)
	}
	if notification.EventType != EventTypeExportCompleted {
		t.Errorf("Expected event type %s, got %s", EventTypeExportCompleted, notification.EventType)
	}
	if notification.ExportID != job.ID {
		t.Errorf("Expected export_id %s, got %s", job.ID, notification.ExportID)
	}
	if notification.TaskID != "task-42" {
		t.Errorf("Expected task_id task-42, got %s", notification.TaskID)
	}
	if notification.DownloadURL != "/api/v1/exports/"+job.ID+"/download" {
		t.Errorf("Unexpected download URL: %s", notification.DownloadURL)
	}

	if sender.headers["event-type"] != EventTypeExportCompleted {
		t.Errorf("Expected event-type header, got %v", sender.headers)
	}
	if sender.headers["family-id"] != "fam-1" {
		t.Errorf("Expected family-id header, got %v", sender.headers)
	}
}

func TestKafkaNotifierError(t *testing.T) {
	sender := &fakeSender{}
	job := domain.NewExportJob("fam-1", "child-1", "alice", domain.FormatCSV, "task-43")

	notifier := NewKafkaNotifier(sender, job)
	notifier.Error("Export processing failed")

	var notification ExportNotification
	if err := json.Unmarshal(sender.value, &notification); err != nil {
		t.Fatalf("Failed to decode notification payload: %v", err)
	}
	if notification.EventType != EventTypeExportFailed {
		t.Errorf("Expected event type %s, got %s", EventTypeExportFailed, notification.EventType)
	}
	if notification.DownloadURL != "" {
		t.Errorf("Failure notification should carry no download URL, got %s", notification.DownloadURL)
	}
	if notification.Message != "Export processing failed" {
		t.Errorf("Unexpected message: %s", notification.Message)
	}
}

func TestKafkaNotifierSwallowsSendFailures(t *testing.T) {
	sender := &fakeSender{
		sendFunc: func(string, []byte, map[string]string) error {
			return errors.New("broker unavailable")
		},
	}
	job := domain.NewExportJob("fam-1", "child-1", "alice", domain.FormatPDF, "task-44")

	// Must not panic or propagate the error.
	notifier := NewKafkaNotifier(sender, job)
	notifier.Success("done")
	notifier.Error("failed")

	if sender.calls != 2 {
		t.Errorf("Expected 2 send attempts, got %d", sender.calls)
	}
}
