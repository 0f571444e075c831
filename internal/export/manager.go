package export

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nestling-tracker/internal/core/domain"
)

// TaskCreator starts a render task on the report service.
type TaskCreator interface {
	CreateReportTask(ctx context.Context, req domain.ReportRequest) (string, error)
}

// ExportRepository persists export job records.
type ExportRepository interface {
	Save(job domain.ExportJob) error
	FindByID(id string) (domain.ExportJob, error)
	FindByFamilyID(familyID string) ([]domain.ExportJob, error)
}

// ChildFinder resolves a child for ownership checks.
type ChildFinder interface {
	FindByID(id string) (domain.Child, error)
}

// NotifierFactory builds the notification sink for one export job, bound
// to the job's family and child context.
type NotifierFactory func(job domain.ExportJob) Notifier

// Manager owns the live pollers of the process. It starts exports against
// the report service, persists every observed state change so terminal
// results survive restarts, and tears the fleet down on shutdown.
type Manager struct {
	creator    TaskCreator
	client     StatusClient
	downloader Downloader
	repo       ExportRepository
	children   ChildFinder
	factory    NotifierFactory
	cfg        Config

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pollers map[string]*Poller
	wg      sync.WaitGroup
}

// NewManager creates a manager. factory may be nil, in which case terminal
// outcomes go to the log.
func NewManager(creator TaskCreator, client StatusClient, downloader Downloader, repo ExportRepository, children ChildFinder, factory NotifierFactory, cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		creator:    creator,
		client:     client,
		downloader: downloader,
		repo:       repo,
		children:   children,
		factory:    factory,
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
		pollers:    make(map[string]*Poller),
	}
}

// StartExport validates the request, creates the render task, persists the
// job record and starts a poller for it. Polling outlives the caller's
// request context; its lifetime is bound to the manager.
func (m *Manager) StartExport(ctx context.Context, familyID, username string, req domain.ReportRequest) (domain.ExportJob, error) {
	if familyID == "" {
		return domain.ExportJob{}, domain.ErrInvalidFamilyID
	}
	if !domain.IsValidExportFormat(string(req.Format)) {
		return domain.ExportJob{}, domain.ErrInvalidFormat
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return domain.ExportJob{}, domain.ErrInvalidTimeRange
	}

	child, err := m.children.FindByID(req.ChildID)
	if err != nil {
		return domain.ExportJob{}, err
	}
	if child.FamilyID != familyID {
		return domain.ExportJob{}, domain.ErrChildNotFound // Don't reveal existence of children from other families
	}

	if req.Name == "" {
		req.Name = fmt.Sprintf("%s %s export %s", child.Name, req.Format, time.Now().Format("2006-01-02"))
	}

	taskID, err := m.creator.CreateReportTask(ctx, req)
	if err != nil {
		return domain.ExportJob{}, fmt.Errorf("failed to create report task: %w", err)
	}

	job := domain.NewExportJob(familyID, req.ChildID, username, req.Format, taskID)
	if err := m.repo.Save(job); err != nil {
		return domain.ExportJob{}, fmt.Errorf("failed to save export record: %w", err)
	}

	poller := NewPoller(taskID, m.client, m.notifierFor(job), m.downloader, m.cfg)

	m.mu.Lock()
	m.pollers[job.ID] = poller
	m.mu.Unlock()

	// Subscribe before Start so no state change can slip past persistence
	watch := poller.Watch()
	m.wg.Add(1)
	go m.persist(job, watch)

	if err := poller.Start(m.ctx); err != nil {
		m.remove(job.ID)
		return domain.ExportJob{}, fmt.Errorf("failed to start polling: %w", err)
	}

	zap.S().Infof("Started export %s (task %s) for child %s", job.ID, taskID, req.ChildID)
	return job, nil
}

// GetExport returns the job record with any live poller state merged in.
func (m *Manager) GetExport(id, familyID string) (domain.ExportJob, error) {
	job, err := m.repo.FindByID(id)
	if err != nil {
		return domain.ExportJob{}, err
	}
	if job.FamilyID != familyID {
		return domain.ExportJob{}, domain.ErrExportNotFound // Don't reveal existence of exports from other families
	}

	if poller := m.poller(id); poller != nil {
		job = recordFromState(job, poller.State())
	}
	return job, nil
}

// ListExports returns the family's export records, live state merged in.
func (m *Manager) ListExports(familyID string) ([]domain.ExportJob, error) {
	jobs, err := m.repo.FindByFamilyID(familyID)
	if err != nil {
		return nil, err
	}

	for i, job := range jobs {
		if poller := m.poller(job.ID); poller != nil {
			jobs[i] = recordFromState(job, poller.State())
		}
	}
	return jobs, nil
}

// CancelExport stops polling for the export. It is silent and idempotent:
// no notification fires, the last observed state is frozen, and cancelling
// a finished export changes nothing.
func (m *Manager) CancelExport(id, familyID string) error {
	job, err := m.repo.FindByID(id)
	if err != nil {
		return err
	}
	if job.FamilyID != familyID {
		return domain.ErrExportNotFound // Don't reveal existence of exports from other families
	}

	if poller := m.poller(id); poller != nil {
		// The frozen state reaches the repository through the watch stream
		poller.Cancel()
		return nil
	}

	if !job.Status.Terminal() && !job.Cancelled {
		return m.repo.Save(job.WithCancelled())
	}
	return nil
}

// WatchExport returns a stream of state snapshots for the export, closed
// after the terminal one. Watching a finished export yields its final
// state immediately.
func (m *Manager) WatchExport(id, familyID string) (<-chan State, error) {
	job, err := m.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if job.FamilyID != familyID {
		return nil, domain.ErrExportNotFound // Don't reveal existence of exports from other families
	}

	if poller := m.poller(id); poller != nil {
		return poller.Watch(), nil
	}

	ch := make(chan State, 1)
	ch <- stateFromRecord(job)
	close(ch)
	return ch, nil
}

// DownloadExport fetches the finished document into the spool directory
// and returns its path. A failed download notifies the job's error sink
// and leaves the export record untouched.
func (m *Manager) DownloadExport(ctx context.Context, id, familyID string) (string, error) {
	job, err := m.GetExport(id, familyID)
	if err != nil {
		return "", err
	}
	if job.Status != domain.ExportCompleted || job.Result == nil {
		return "", domain.ErrExportNotReady
	}

	path, err := m.downloader.FetchAndSave(ctx, job.Result.DownloadURL)
	if err != nil {
		m.notifierFor(job).Error(fmt.Sprintf("Could not download export: %v", err))
		return "", fmt.Errorf("download failed: %w", err)
	}
	return path, nil
}

// Shutdown cancels every live poller and waits until their state is
// persisted. The manager accepts no new exports afterwards.
func (m *Manager) Shutdown() {
	m.cancel()

	m.mu.Lock()
	pollers := make([]*Poller, 0, len(m.pollers))
	for _, p := range m.pollers {
		pollers = append(pollers, p)
	}
	m.mu.Unlock()

	for _, p := range pollers {
		p.Cancel()
	}
	m.wg.Wait()

	zap.S().Info("Export manager stopped")
}

// persist mirrors the watch stream into the repository so progress and
// terminal results are durable. It runs until the stream closes, then
// releases the poller.
func (m *Manager) persist(job domain.ExportJob, watch <-chan State) {
	defer m.wg.Done()
	defer m.remove(job.ID)

	current := job
	for st := range watch {
		updated := recordFromState(current, st)
		if err := m.repo.Save(updated); err != nil {
			zap.S().Errorf("Failed to persist export %s: %v", job.ID, err)
			continue
		}
		current = updated
	}
}

func (m *Manager) poller(id string) *Poller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollers[id]
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pollers, id)
}

func (m *Manager) notifierFor(job domain.ExportJob) Notifier {
	if m.factory == nil {
		return NewLogNotifier()
	}
	return m.factory(job)
}

// recordFromState folds a poller snapshot into the persistent record.
func recordFromState(job domain.ExportJob, st State) domain.ExportJob {
	switch {
	case st.Status == domain.ExportCompleted && st.Result != nil:
		return job.WithCompleted(*st.Result)
	case st.Status == domain.ExportFailed:
		return job.WithProgress(st.Status, st.Progress).WithFailed(st.ErrorMessage)
	case !st.Polling:
		// Cancelled mid-flight: keep the last observed status and progress
		return job.WithProgress(st.Status, st.Progress).WithCancelled()
	default:
		return job.WithProgress(st.Status, st.Progress)
	}
}

// stateFromRecord rebuilds a snapshot for an export with no live poller.
func stateFromRecord(job domain.ExportJob) State {
	st := State{
		Status:   job.Status,
		Progress: job.Progress,
		Polling:  false,
	}
	if job.Result != nil {
		result := *job.Result
		st.Result = &result
	}
	if job.ErrorMessage != nil {
		st.ErrorMessage = *job.ErrorMessage
	}
	return st
}
