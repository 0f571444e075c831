package export

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"nestling-tracker/internal/core/domain"
)

// Verify interface compliance
var _ Notifier = (*NullNotifier)(nil)
var _ Notifier = (*LogNotifier)(nil)
var _ Downloader = (*SpoolDownloader)(nil)

type fakeStatusClient struct {
	getStatus func(ctx context.Context, taskID string) (*domain.StatusReport, error)
}

func (f *fakeStatusClient) GetReportStatus(ctx context.Context, taskID string) (*domain.StatusReport, error) {
	return f.getStatus(ctx, taskID)
}

type fakeDownloader struct {
	fetchAndSave func(ctx context.Context, url string) (string, error)
}

func (f *fakeDownloader) FetchAndSave(ctx context.Context, url string) (string, error) {
	return f.fetchAndSave(ctx, url)
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, message)
}

func (n *recordingNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.successes), len(n.errors)
}

func (n *recordingNotifier) lastError() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.errors) == 0 {
		return ""
	}
	return n.errors[len(n.errors)-1]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func testConfig() Config {
	return Config{
		PollInterval:    time.Millisecond,
		MaxPollDuration: time.Minute,
	}
}

func testResult() *domain.ExportResult {
	return &domain.ExportResult{
		DownloadURL: "http://reportgen.local/v1/reports/task-1/download",
		Filename:    "feeding-report.pdf",
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ExpiresAt:   time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
	}
}

// sequenceClient serves a fixed list of responses in order, repeating the
// last one if polled again.
func sequenceClient(reports ...*domain.StatusReport) *fakeStatusClient {
	var mu sync.Mutex
	call := 0
	return &fakeStatusClient{
		getStatus: func(ctx context.Context, taskID string) (*domain.StatusReport, error) {
			mu.Lock()
			defer mu.Unlock()
			r := reports[call]
			if call < len(reports)-1 {
				call++
			}
			return r, nil
		},
	}
}

func waitDone(t *testing.T, p *Poller) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not finish in time")
	}
}

func TestPollerCompletesWithResult(t *testing.T) {
	client := sequenceClient(
		&domain.StatusReport{Status: domain.ExportPending},
		&domain.StatusReport{Status: domain.ExportProcessing, Progress: intPtr(40)},
		&domain.StatusReport{Status: domain.ExportProcessing, Progress: intPtr(85)},
		&domain.StatusReport{Status: domain.ExportCompleted, Progress: intPtr(100), Result: testResult()},
	)
	notifier := &recordingNotifier{}
	p := NewPoller("task-1", client, notifier, nil, testConfig())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	st := p.State()
	if st.Status != domain.ExportCompleted {
		t.Errorf("Expected status completed, got %s", st.Status)
	}
	if st.Progress != 100 {
		t.Errorf("Expected progress 100, got %d", st.Progress)
	}
	if st.Result == nil {
		t.Fatal("Expected result to be set")
	}
	if st.Result.Filename != "feeding-report.pdf" {
		t.Errorf("Expected filename feeding-report.pdf, got %s", st.Result.Filename)
	}
	if st.ErrorMessage != "" {
		t.Errorf("Expected no error message, got %q", st.ErrorMessage)
	}
	if st.Polling {
		t.Error("Expected polling to be false after completion")
	}

	successes, errs := notifier.counts()
	if successes != 1 || errs != 0 {
		t.Errorf("Expected exactly one success notification, got %d successes and %d errors", successes, errs)
	}
}

func TestPollerFailsWithReportedError(t *testing.T) {
	client := sequenceClient(
		&domain.StatusReport{Status: domain.ExportFailed, Error: strPtr("renderer crashed")},
	)
	notifier := &recordingNotifier{}
	p := NewPoller("task-1", client, notifier, nil, testConfig())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	st := p.State()
	if st.Status != domain.ExportFailed {
		t.Errorf("Expected status failed, got %s", st.Status)
	}
	if st.ErrorMessage != "renderer crashed" {
		t.Errorf("Expected reported error message, got %q", st.ErrorMessage)
	}
	if st.Result != nil {
		t.Error("Expected no result on failure")
	}

	successes, errs := notifier.counts()
	if successes != 0 || errs != 1 {
		t.Errorf("Expected exactly one error notification, got %d successes and %d errors", successes, errs)
	}
	if notifier.lastError() != "renderer crashed" {
		t.Errorf("Expected notification to carry reported message, got %q", notifier.lastError())
	}
}

func TestPollerFailureMessageFallback(t *testing.T) {
	client := sequenceClient(
		&domain.StatusReport{Status: domain.ExportFailed},
	)
	notifier := &recordingNotifier{}
	p := NewPoller("task-1", client, notifier, nil, testConfig())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	if got := p.State().ErrorMessage; got != "Export processing failed" {
		t.Errorf("Expected fallback failure message, got %q", got)
	}
	if notifier.lastError() != "Export processing failed" {
		t.Errorf("Expected fallback in notification, got %q", notifier.lastError())
	}
}

func TestPollerTimesOut(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	client := &fakeStatusClient{
		getStatus: func(ctx context.Context, taskID string) (*domain.StatusReport, error) {
			// Each poll round costs more wall clock than the whole budget
			clock.advance(31 * time.Minute)
			return &domain.StatusReport{Status: domain.ExportProcessing, Progress: intPtr(10)}, nil
		},
	}
	notifier := &recordingNotifier{}
	p := NewPoller("task-1", client, notifier, nil, Config{PollInterval: time.Millisecond, MaxPollDuration: 30 * time.Minute})
	p.now = clock.now

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	st := p.State()
	if st.Status != domain.ExportFailed {
		t.Errorf("Expected status failed after timeout, got %s", st.Status)
	}
	if !strings.Contains(st.ErrorMessage, "timed out") {
		t.Errorf("Expected timeout message, got %q", st.ErrorMessage)
	}
	if st.Progress != 10 {
		t.Errorf("Expected last observed progress 10, got %d", st.Progress)
	}

	successes, errs := notifier.counts()
	if successes != 0 || errs != 1 {
		t.Errorf("Expected exactly one error notification, got %d successes and %d errors", successes, errs)
	}
}

func TestPollerCancelDuringRequest(t *testing.T) {
	inFlight := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	client := &fakeStatusClient{
		getStatus: func(ctx context.Context, taskID string) (*domain.StatusReport, error) {
			once.Do(func() { close(inFlight) })
			<-release
			return &domain.StatusReport{Status: domain.ExportProcessing, Progress: intPtr(80)}, nil
		},
	}
	notifier := &recordingNotifier{}
	p := NewPoller("task-1", client, notifier, nil, testConfig())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	<-inFlight
	p.Cancel()
	close(release)
	waitDone(t, p)

	st := p.State()
	if st.Status != domain.ExportPending {
		t.Errorf("Expected frozen pending state, got %s", st.Status)
	}
	if st.Progress != 0 {
		t.Errorf("Expected progress untouched by in-flight response, got %d", st.Progress)
	}
	if st.Polling {
		t.Error("Expected polling to be false after cancel")
	}

	successes, errs := notifier.counts()
	if successes != 0 || errs != 0 {
		t.Errorf("Expected no notifications after cancel, got %d successes and %d errors", successes, errs)
	}
}

func TestPollerTransportErrorIsTerminal(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	client := &fakeStatusClient{
		getStatus: func(ctx context.Context, taskID string) (*domain.StatusReport, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return nil, errors.New("connection refused")
		},
	}
	notifier := &recordingNotifier{}
	p := NewPoller("task-1", client, notifier, nil, testConfig())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	st := p.State()
	if st.Status != domain.ExportFailed {
		t.Errorf("Expected status failed, got %s", st.Status)
	}
	if !strings.Contains(st.ErrorMessage, "connection refused") {
		t.Errorf("Expected transport error in message, got %q", st.ErrorMessage)
	}

	mu.Lock()
	if calls != 1 {
		t.Errorf("Expected no retry after transport error, got %d calls", calls)
	}
	mu.Unlock()

	successes, errs := notifier.counts()
	if successes != 0 || errs != 1 {
		t.Errorf("Expected exactly one error notification, got %d successes and %d errors", successes, errs)
	}
}

func TestPollerCompletedWithoutResult(t *testing.T) {
	client := sequenceClient(
		&domain.StatusReport{Status: domain.ExportCompleted},
	)
	notifier := &recordingNotifier{}
	p := NewPoller("task-1", client, notifier, nil, testConfig())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	st := p.State()
	if st.Status != domain.ExportFailed {
		t.Errorf("Expected completed response without result to fail, got %s", st.Status)
	}
	if st.Result != nil {
		t.Error("Expected no result")
	}

	successes, errs := notifier.counts()
	if successes != 0 || errs != 1 {
		t.Errorf("Expected exactly one error notification, got %d successes and %d errors", successes, errs)
	}
}

func TestPollerUnknownStatus(t *testing.T) {
	client := sequenceClient(
		&domain.StatusReport{Status: domain.ExportStatus("archived")},
	)
	notifier := &recordingNotifier{}
	p := NewPoller("task-1", client, notifier, nil, testConfig())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	st := p.State()
	if st.Status != domain.ExportFailed {
		t.Errorf("Expected unknown status to fail the export, got %s", st.Status)
	}
	if !strings.Contains(st.ErrorMessage, "archived") {
		t.Errorf("Expected message to name the status, got %q", st.ErrorMessage)
	}
}

func TestPollerStartValidation(t *testing.T) {
	client := sequenceClient(&domain.StatusReport{Status: domain.ExportPending})

	t.Run("empty task id", func(t *testing.T) {
		p := NewPoller("", client, nil, nil, testConfig())
		if err := p.Start(context.Background()); !errors.Is(err, ErrNoTaskID) {
			t.Errorf("Expected ErrNoTaskID, got %v", err)
		}
	})

	t.Run("second start", func(t *testing.T) {
		p := NewPoller("task-1", sequenceClient(&domain.StatusReport{Status: domain.ExportCompleted, Result: testResult()}), nil, nil, testConfig())
		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("First Start returned error: %v", err)
		}
		if err := p.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
			t.Errorf("Expected ErrAlreadyStarted, got %v", err)
		}
		waitDone(t, p)
	})

	t.Run("start after cancel", func(t *testing.T) {
		p := NewPoller("task-1", client, nil, nil, testConfig())
		p.Cancel()
		if err := p.Start(context.Background()); !errors.Is(err, ErrCancelled) {
			t.Errorf("Expected ErrCancelled, got %v", err)
		}
	})
}

func TestPollerCancelIsIdempotent(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	client := &fakeStatusClient{
		getStatus: func(ctx context.Context, taskID string) (*domain.StatusReport, error) {
			<-block
			return &domain.StatusReport{Status: domain.ExportPending}, nil
		},
	}
	notifier := &recordingNotifier{}
	p := NewPoller("task-1", client, notifier, nil, testConfig())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	p.Cancel()
	p.Cancel()
	p.Cancel()

	st := p.State()
	if st.Polling {
		t.Error("Expected polling to be false")
	}
	successes, errs := notifier.counts()
	if successes != 0 || errs != 0 {
		t.Errorf("Expected no notifications, got %d successes and %d errors", successes, errs)
	}
}

func TestPollerCancelAfterCompletionIsNoOp(t *testing.T) {
	client := sequenceClient(
		&domain.StatusReport{Status: domain.ExportCompleted, Result: testResult()},
	)
	notifier := &recordingNotifier{}
	p := NewPoller("task-1", client, notifier, nil, testConfig())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	before := p.State()
	p.Cancel()
	after := p.State()

	if after.Status != before.Status || after.Progress != before.Progress {
		t.Error("Expected cancel after completion to change nothing")
	}
	if after.Result == nil {
		t.Error("Expected result to survive cancel")
	}
	successes, errs := notifier.counts()
	if successes != 1 || errs != 0 {
		t.Errorf("Expected notification count unchanged, got %d successes and %d errors", successes, errs)
	}
}

func TestPollerContextCancelStopsSilently(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeStatusClient{
		getStatus: func(ctx context.Context, taskID string) (*domain.StatusReport, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(50 * time.Millisecond):
				return &domain.StatusReport{Status: domain.ExportProcessing, Progress: intPtr(5)}, nil
			}
		},
	}
	notifier := &recordingNotifier{}
	p := NewPoller("task-1", client, notifier, nil, Config{PollInterval: time.Hour, MaxPollDuration: time.Hour})

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	cancel()
	waitDone(t, p)

	st := p.State()
	if st.Polling {
		t.Error("Expected polling to be false after owner teardown")
	}
	if st.Status == domain.ExportFailed {
		t.Errorf("Expected teardown not to record a failure, got %q", st.ErrorMessage)
	}
	successes, errs := notifier.counts()
	if successes != 0 || errs != 0 {
		t.Errorf("Expected no notifications on owner teardown, got %d successes and %d errors", successes, errs)
	}
}

func TestPollerProgressNeverRegresses(t *testing.T) {
	client := sequenceClient(
		&domain.StatusReport{Status: domain.ExportProcessing, Progress: intPtr(40)},
		&domain.StatusReport{Status: domain.ExportProcessing, Progress: intPtr(20)},
		&domain.StatusReport{Status: domain.ExportProcessing, Progress: intPtr(150)},
		&domain.StatusReport{Status: domain.ExportCompleted, Result: testResult()},
	)
	p := NewPoller("task-1", client, &recordingNotifier{}, nil, testConfig())

	watch := p.Watch()
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	last := -1
	for st := range watch {
		if st.Progress < last {
			t.Errorf("Progress regressed from %d to %d", last, st.Progress)
		}
		if st.Progress < 0 || st.Progress > 100 {
			t.Errorf("Progress %d outside [0,100]", st.Progress)
		}
		last = st.Progress
	}
	waitDone(t, p)
}

func TestNextProgress(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		reported int
		want     int
	}{
		{"forward", 10, 40, 40},
		{"regression ignored", 40, 20, 40},
		{"above range clamped", 10, 150, 100},
		{"below range clamped", 0, -5, 0},
		{"equal", 30, 30, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextProgress(tt.current, tt.reported); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestPollerWatchAfterTerminal(t *testing.T) {
	client := sequenceClient(
		&domain.StatusReport{Status: domain.ExportCompleted, Result: testResult()},
	)
	p := NewPoller("task-1", client, &recordingNotifier{}, nil, testConfig())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	watch := p.Watch()
	st, ok := <-watch
	if !ok {
		t.Fatal("Expected final snapshot from watch on finished poller")
	}
	if st.Status != domain.ExportCompleted || st.Result == nil {
		t.Errorf("Expected completed snapshot, got %+v", st)
	}
	if _, ok := <-watch; ok {
		t.Error("Expected watch channel to be closed after final snapshot")
	}
}

func TestPollerDownload(t *testing.T) {
	notifier := &recordingNotifier{}
	downloader := &fakeDownloader{
		fetchAndSave: func(ctx context.Context, url string) (string, error) {
			return "/tmp/exports/feeding-report.pdf", nil
		},
	}
	p := NewPoller("task-1", sequenceClient(&domain.StatusReport{Status: domain.ExportPending}), notifier, downloader, testConfig())

	path, err := p.Download(context.Background(), "http://reportgen.local/download")
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if path != "/tmp/exports/feeding-report.pdf" {
		t.Errorf("Expected stored path, got %s", path)
	}
	successes, errs := notifier.counts()
	if successes != 0 || errs != 0 {
		t.Errorf("Expected no notifications on successful download, got %d successes and %d errors", successes, errs)
	}
}

func TestPollerDownloadFailureNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	downloader := &fakeDownloader{
		fetchAndSave: func(ctx context.Context, url string) (string, error) {
			return "", errors.New("disk full")
		},
	}
	p := NewPoller("task-1", sequenceClient(&domain.StatusReport{Status: domain.ExportPending}), notifier, downloader, testConfig())

	if _, err := p.Download(context.Background(), "http://reportgen.local/download"); err == nil {
		t.Fatal("Expected download error")
	}

	successes, errs := notifier.counts()
	if successes != 0 || errs != 1 {
		t.Errorf("Expected exactly one error notification, got %d successes and %d errors", successes, errs)
	}
	if !strings.Contains(notifier.lastError(), "disk full") {
		t.Errorf("Expected notification to carry the cause, got %q", notifier.lastError())
	}

	if st := p.State(); !st.Polling || st.Status != domain.ExportPending {
		t.Error("Expected download failure to leave poll state untouched")
	}
}

func TestNewPollerDefaults(t *testing.T) {
	p := NewPoller("task-1", nil, nil, nil, Config{})
	if p.cfg.PollInterval != DefaultPollInterval {
		t.Errorf("Expected default poll interval %s, got %s", DefaultPollInterval, p.cfg.PollInterval)
	}
	if p.cfg.MaxPollDuration != DefaultMaxPollDuration {
		t.Errorf("Expected default max poll duration %s, got %s", DefaultMaxPollDuration, p.cfg.MaxPollDuration)
	}

	st := p.State()
	if st.Status != domain.ExportPending || st.Progress != 0 || !st.Polling {
		t.Errorf("Expected initial pending state, got %+v", st)
	}
}
