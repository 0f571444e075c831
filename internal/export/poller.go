// Package export drives asynchronous document exports. A Poller watches a
// single render task on the report generation service: it polls the task
// status on a fixed interval until the task completes, fails or exhausts
// its wall-clock budget, keeps an observable snapshot of the run, and
// notifies exactly once on the terminal outcome. The Manager owns the live
// pollers for the process.
package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nestling-tracker/internal/core/domain"
)

const (
	// DefaultPollInterval is the delay between consecutive status polls.
	DefaultPollInterval = 2 * time.Second

	// DefaultMaxPollDuration bounds a single export run. Polling past this
	// budget fails the export.
	DefaultMaxPollDuration = 30 * time.Minute
)

var (
	ErrAlreadyStarted = errors.New("export poller already started")
	ErrCancelled      = errors.New("export poller was cancelled")
	ErrNoTaskID       = errors.New("export poller requires a task id")
)

// StatusClient polls the report service for the state of a render task.
type StatusClient interface {
	GetReportStatus(ctx context.Context, taskID string) (*domain.StatusReport, error)
}

// Downloader fetches a finished document and stores it locally, returning
// the path it was written to.
type Downloader interface {
	FetchAndSave(ctx context.Context, url string) (string, error)
}

// Config controls the polling cadence. Zero values fall back to the
// defaults.
type Config struct {
	PollInterval    time.Duration
	MaxPollDuration time.Duration
}

// State is the observable snapshot of one export run.
//
// Result is set only on a completed run, ErrorMessage only on a failed
// one. Polling turns false exactly once: on the terminal transition or on
// cancellation, whichever comes first.
type State struct {
	Status       domain.ExportStatus
	Progress     int
	Result       *domain.ExportResult
	ErrorMessage string
	Polling      bool
}

// Poller tracks a single render task to completion. The polling loop is
// strictly sequential: one in-flight status request at a time, each round
// waiting out the remainder of the poll interval before the next request.
type Poller struct {
	taskID     string
	client     StatusClient
	notifier   Notifier
	downloader Downloader
	cfg        Config

	// now is replaceable so tests can drive the timeout budget with a
	// simulated clock.
	now func() time.Time

	mu        sync.Mutex
	state     State
	started   bool
	createdAt time.Time
	watchers  []chan State

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewPoller builds a poller for the given render task. notifier may be
// nil, in which case terminal outcomes are only logged. downloader may be
// nil if Download is never used.
func NewPoller(taskID string, client StatusClient, notifier Notifier, downloader Downloader, cfg Config) *Poller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPollDuration <= 0 {
		cfg.MaxPollDuration = DefaultMaxPollDuration
	}
	if notifier == nil {
		notifier = NewNullNotifier()
	}

	return &Poller{
		taskID:     taskID,
		client:     client,
		notifier:   notifier,
		downloader: downloader,
		cfg:        cfg,
		now:        time.Now,
		state: State{
			Status:   domain.ExportPending,
			Progress: 0,
			Polling:  true,
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// TaskID returns the render task this poller watches.
func (p *Poller) TaskID() string {
	return p.taskID
}

// CreatedAt returns when polling started. Zero until Start is called.
func (p *Poller) CreatedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createdAt
}

// State returns a copy of the current snapshot.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyState(p.state)
}

// Done is closed when the polling loop has exited. It never closes for a
// poller that was cancelled before Start.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Watch returns a channel that receives state snapshots as the run
// progresses and is closed after the final one. The channel is buffered
// with the latest snapshot winning, so a slow reader only misses
// intermediate updates, never the terminal state. A Watch on a finished
// poller yields the final snapshot immediately.
func (p *Poller) Watch() <-chan State {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan State, 1)
	if !p.state.Polling {
		ch <- copyState(p.state)
		close(ch)
		return ch
	}
	p.watchers = append(p.watchers, ch)
	return ch
}

// Start begins polling. The first status request is issued immediately,
// subsequent requests follow the configured interval. Start fails loudly
// when called twice or after Cancel.
func (p *Poller) Start(ctx context.Context) error {
	if p.taskID == "" {
		return ErrNoTaskID
	}

	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	if !p.state.Polling {
		p.mu.Unlock()
		return ErrCancelled
	}
	p.started = true
	p.createdAt = p.now()
	p.mu.Unlock()

	zap.S().Debugf("Polling report task %s (interval %s, budget %s)", p.taskID, p.cfg.PollInterval, p.cfg.MaxPollDuration)

	go p.run(ctx)
	return nil
}

// Cancel stops the run without any notification. The last observed status
// and progress are frozen; a response already in flight is discarded.
// Cancel is idempotent and safe before Start.
func (p *Poller) Cancel() {
	p.mu.Lock()
	if !p.state.Polling {
		p.mu.Unlock()
		return
	}
	p.state.Polling = false
	st := copyState(p.state)
	started := p.started
	var elapsed time.Duration
	if started {
		elapsed = p.now().Sub(p.createdAt)
	}
	p.mu.Unlock()

	p.stopOnce.Do(func() { close(p.stop) })
	p.publishFinal(st)
	if started {
		observeOutcome(outcomeCancelled, elapsed)
	}

	zap.S().Debugf("Cancelled polling for report task %s", p.taskID)
}

// Download fetches a finished document via the downloader. A failed
// download notifies the error sink but never touches the poll state.
func (p *Poller) Download(ctx context.Context, url string) (string, error) {
	if p.downloader == nil {
		err := errors.New("no downloader configured")
		p.notifier.Error(fmt.Sprintf("Could not download export: %v", err))
		return "", err
	}

	path, err := p.downloader.FetchAndSave(ctx, url)
	if err != nil {
		p.notifier.Error(fmt.Sprintf("Could not download export: %v", err))
		return "", fmt.Errorf("download failed: %w", err)
	}
	return path, nil
}

// run is the sequential polling loop: request, handle the response, wait
// out the remainder of the interval, repeat.
func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	activePollers.Inc()
	defer activePollers.Dec()

	for {
		requestStart := p.now()

		report, err := p.client.GetReportStatus(ctx, p.taskID)
		pollsTotal.Inc()

		// A cancellation that raced the request wins: the response is
		// discarded and the frozen state stands.
		if p.stopped() {
			return
		}

		if err != nil {
			if ctx.Err() != nil {
				// Owner teardown, not a remote failure
				p.Cancel()
				return
			}
			p.fail(fmt.Sprintf("Failed to check export status: %v", err), outcomeTransportError)
			return
		}

		if terminal := p.apply(report); terminal {
			return
		}

		if p.now().Sub(p.createdAt) >= p.cfg.MaxPollDuration {
			p.fail(fmt.Sprintf("Export timed out after %s", p.cfg.MaxPollDuration), outcomeTimeout)
			return
		}

		if !p.wait(ctx, p.cfg.PollInterval-p.now().Sub(requestStart)) {
			return
		}
	}
}

// apply folds one status response into the state. It returns true when the
// response ended the run.
func (p *Poller) apply(report *domain.StatusReport) bool {
	p.mu.Lock()

	if !p.state.Polling {
		p.mu.Unlock()
		return true
	}

	st := p.state
	st.Status = report.Status
	if report.Progress != nil {
		st.Progress = nextProgress(st.Progress, *report.Progress)
	}

	var successMsg, errorMsg, outcome string

	switch {
	case report.Status == domain.ExportCompleted && report.Result != nil:
		result := *report.Result
		st.Progress = 100
		st.Result = &result
		st.ErrorMessage = ""
		st.Polling = false
		successMsg = fmt.Sprintf("Export %s is ready to download", result.Filename)
		outcome = outcomeCompleted

	case report.Status == domain.ExportCompleted:
		// Terminal on the wire but unusable without a result payload
		st.Status = domain.ExportFailed
		st.ErrorMessage = "Export completed but the report service returned no result"
		st.Polling = false
		errorMsg = st.ErrorMessage
		outcome = outcomeFailed

	case report.Status == domain.ExportFailed:
		msg := "Export processing failed"
		if report.Error != nil && *report.Error != "" {
			msg = *report.Error
		}
		st.ErrorMessage = msg
		st.Polling = false
		errorMsg = msg
		outcome = outcomeFailed

	case report.Status == domain.ExportPending, report.Status == domain.ExportProcessing:
		p.state = st
		p.mu.Unlock()
		p.publish(st)
		return false

	default:
		st.Status = domain.ExportFailed
		st.ErrorMessage = fmt.Sprintf("Report service returned unexpected status %q", report.Status)
		st.Polling = false
		errorMsg = st.ErrorMessage
		outcome = outcomeFailed
	}

	p.state = st
	elapsed := p.now().Sub(p.createdAt)
	p.mu.Unlock()

	p.publishFinal(st)
	observeOutcome(outcome, elapsed)

	if successMsg != "" {
		zap.S().Infof("Export task %s completed", p.taskID)
		p.notifier.Success(successMsg)
	} else {
		zap.S().Warnf("Export task %s failed: %s", p.taskID, errorMsg)
		p.notifier.Error(errorMsg)
	}

	return true
}

// fail ends the run with a failure originating outside a status response
// (transport error or timeout).
func (p *Poller) fail(message string, outcome string) {
	p.mu.Lock()
	if !p.state.Polling {
		p.mu.Unlock()
		return
	}
	st := p.state
	st.Status = domain.ExportFailed
	st.ErrorMessage = message
	st.Polling = false
	p.state = st
	elapsed := p.now().Sub(p.createdAt)
	p.mu.Unlock()

	p.publishFinal(st)
	observeOutcome(outcome, elapsed)

	zap.S().Warnf("Export task %s failed: %s", p.taskID, message)
	p.notifier.Error(message)
}

// wait sleeps the remainder of the poll interval. It returns false when
// the run should stop instead of polling again.
func (p *Poller) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		// The request outlasted the interval; poll again right away
		select {
		case <-p.stop:
			return false
		case <-ctx.Done():
			p.Cancel()
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-p.stop:
		return false
	case <-ctx.Done():
		p.Cancel()
		return false
	}
}

func (p *Poller) stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

// publish delivers a snapshot to every watcher, replacing an unread older
// snapshot rather than blocking.
func (p *Poller) publish(st State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.watchers {
		select {
		case ch <- copyState(st):
		default:
			select {
			case <-ch:
			default:
			}
			ch <- copyState(st)
		}
	}
}

// publishFinal delivers the final snapshot and closes all watchers.
func (p *Poller) publishFinal(st State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.watchers {
		select {
		case ch <- copyState(st):
		default:
			select {
			case <-ch:
			default:
			}
			ch <- copyState(st)
		}
		close(ch)
	}
	p.watchers = nil
}

// nextProgress keeps reported progress within [0, 100] and never lets it
// move backwards during a run.
func nextProgress(current, reported int) int {
	if reported < 0 {
		reported = 0
	}
	if reported > 100 {
		reported = 100
	}
	if reported < current {
		return current
	}
	return reported
}

func copyState(st State) State {
	if st.Result != nil {
		result := *st.Result
		st.Result = &result
	}
	return st
}
