package messaging

import (
	"fmt"

	"go.uber.org/zap"

	"nestling-tracker/internal/core/domain"
)

// KafkaNotifier pushes the terminal outcome of one export job onto the
// notification topic. Delivery failures are logged and swallowed so a
// broker outage never breaks the export itself.
type KafkaNotifier struct {
	sender MessageSender
	job    domain.ExportJob
}

// NewKafkaNotifier binds a notifier to a single export job.
func NewKafkaNotifier(sender MessageSender, job domain.ExportJob) *KafkaNotifier {
	return &KafkaNotifier{sender: sender, job: job}
}

func (n *KafkaNotifier) Success(message string) {
	downloadURL := fmt.Sprintf("/api/v1/exports/%s/download", n.job.ID)
	n.send(NewExportNotification(n.job, EventTypeExportCompleted, message, downloadURL))
}

func (n *KafkaNotifier) Error(message string) {
	n.send(NewExportNotification(n.job, EventTypeExportFailed, message, ""))
}

func (n *KafkaNotifier) send(notification *ExportNotification) {
	payload, err := notification.ToJSON()
	if err != nil {
		zap.S().Errorw("Failed to encode export notification", "export_id", n.job.ID, "error", err)
		return
	}

	// Key by family so one family's notifications stay ordered.
	if err := n.sender.SendMessage(n.job.FamilyID, payload, notification.Headers()); err != nil {
		zap.S().Errorw("Failed to publish export notification",
			"export_id", n.job.ID, "event_type", notification.EventType, "error", err)
	}
}
