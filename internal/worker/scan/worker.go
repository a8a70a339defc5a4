package scan

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/resetwatch/resetwatch/pkg/utils"
	"go.uber.org/zap"
)

// State is the orchestrator lifecycle state.
type State int32

const (
	// StateIdle means no scan schedule is active.
	StateIdle State = iota
	// StateRunning means the worker is scheduling scan cycles.
	StateRunning
)

const (
	// DefaultInterval is the cadence of scan cycles.
	DefaultInterval = time.Hour
	// DefaultCandidateWindow bounds how recently a nation must have been
	// active to be scanned.
	DefaultCandidateWindow = 7 * 24 * time.Hour
	// DefaultCandidateLimit caps nations per cycle; this is the pipeline's
	// sole backpressure against unbounded provider load.
	DefaultCandidateLimit = 5000

	// stopTimeout bounds how long Stop waits for an in-flight cycle.
	stopTimeout = 30 * time.Second
)

// Error sink kinds.
const (
	errKindCycle  = "scan_cycle"
	errKindNation = "nation_update"
	errKindBatch  = "batch_fetch"
	errKindImport = "catalog_import"
)

// Options tunes the scan worker. Zero values fall back to defaults.
type Options struct {
	Interval        time.Duration
	CandidateWindow time.Duration
	CandidateLimit  int
	ImportPageSize  int
}

// Worker owns the scan lifecycle: it selects candidate nations, fetches their
// current espionage flags, and records flag transitions as detected resets.
// One cycle runs at a time; a tick that lands while the previous cycle is
// still in flight is skipped.
type Worker struct {
	storage  Storage
	fetcher  Fetcher
	reporter Reporter
	logger   *zap.Logger

	interval        time.Duration
	candidateWindow time.Duration
	candidateLimit  int
	importPageSize  int

	state       atomic.Int32
	cycleActive atomic.Bool
	mu          sync.Mutex
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// New creates a scan worker. The reporter may be nil to disable status
// reporting.
func New(storage Storage, fetcher Fetcher, reporter Reporter, opts Options, logger *zap.Logger) *Worker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	if opts.CandidateWindow <= 0 {
		opts.CandidateWindow = DefaultCandidateWindow
	}

	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = DefaultCandidateLimit
	}

	return &Worker{
		storage:         storage,
		fetcher:         fetcher,
		reporter:        reporter,
		logger:          logger.Named("scan_worker"),
		interval:        opts.Interval,
		candidateWindow: opts.CandidateWindow,
		candidateLimit:  opts.CandidateLimit,
		importPageSize:  opts.ImportPageSize,
	}
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Start transitions Idle to Running and begins scheduling scan cycles: one
// immediately, then one per interval. Starting an already running worker is a
// logged no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		w.logger.Info("Scan worker already running, ignoring start")
		return
	}

	w.stopChan = make(chan struct{})

	w.logger.Info("Scan worker started",
		zap.Duration("interval", w.interval),
		zap.Int("candidateLimit", w.candidateLimit))

	w.wg.Add(1)

	go w.run(ctx, w.stopChan)
}

// Stop cancels the recurring schedule and returns to Idle. It does not
// interrupt a cycle already in flight but waits a bounded time for it to
// finish. Stopping an idle worker is a no-op.
func (w *Worker) Stop() {
	w.mu.Lock()

	if !w.state.CompareAndSwap(int32(StateRunning), int32(StateIdle)) {
		w.mu.Unlock()
		return
	}

	close(w.stopChan)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Scan worker stopped")
	case <-time.After(stopTimeout):
		w.logger.Warn("Timed out waiting for in-flight scan cycle to finish")
	}
}

// run executes the immediate first cycle and then ticks at the interval until
// stopped or the context ends.
func (w *Worker) run(ctx context.Context, stopChan <-chan struct{}) {
	defer w.wg.Done()

	w.runCycle(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runCycle(ctx)
		case <-stopChan:
			return
		case <-ctx.Done():
			w.logger.Info("Context cancelled, stopping scan worker")
			return
		}
	}
}

// runCycle enforces single-flight execution: a tick that arrives while the
// previous cycle is still running is skipped rather than interleaved.
func (w *Worker) runCycle(ctx context.Context) {
	if !w.cycleActive.CompareAndSwap(false, true) {
		w.logger.Warn("Previous scan cycle still in flight, skipping tick")
		return
	}
	defer w.cycleActive.Store(false)

	w.performScan(ctx)
}

// performScan executes one scan cycle. Failures end the cycle early and are
// written to the error sink; the recurring schedule is unaffected.
func (w *Worker) performScan(ctx context.Context) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Scan cycle panicked", zap.Any("panic", r))
			w.storage.AppendError(ctx, errKindCycle, fmt.Sprintf("panic: %v", r), string(debug.Stack()), nil)
			w.setHealthy(false)
		}
	}()

	w.updateStatus("Selecting candidates", 10)

	candidates, err := w.storage.ListCandidates(ctx, w.candidateWindow, w.candidateLimit)
	if err != nil {
		w.failCycle(ctx, "failed to list scan candidates", err)
		return
	}

	if len(candidates) == 0 {
		w.logger.Info("No scan candidates, ending cycle",
			zap.Duration("duration", time.Since(start)))
		w.updateStatus("Cycle complete", 100)

		return
	}

	ids := make([]int64, len(candidates))
	for i, candidate := range candidates {
		ids[i] = candidate.ID
	}

	w.updateStatus("Fetching nation flags", 30)

	result, err := w.fetcher.FetchByIDs(ctx, ids)
	if err != nil {
		w.failCycle(ctx, "failed to fetch nation batch", err)
		return
	}

	if result.Failed() {
		w.logger.Warn("Scan cycle degraded, sub-batches were dropped",
			zap.Int("failedCount", len(result.FailedIDs)))
		w.storage.AppendError(ctx, errKindBatch, "sub-batches dropped from scan cycle", "",
			map[string]string{"failed_count": strconv.Itoa(len(result.FailedIDs))})
	}

	w.updateStatus("Processing nations", 60)

	detected := 0

	for _, nation := range result.Nations {
		if utils.ContextGuardWithLog(ctx, w.logger, "Context cancelled mid-cycle, abandoning remaining nations") {
			return
		}

		resetDetected, err := w.processNation(ctx, nation)
		if err != nil {
			w.logger.Error("Failed to process nation",
				zap.Int64("nationID", nation.ID),
				zap.Error(err))
			w.storage.AppendError(ctx, errKindNation, err.Error(), "",
				map[string]string{"nation_id": strconv.FormatInt(nation.ID, 10)})

			continue
		}

		if resetDetected {
			detected++
		}
	}

	w.setHealthy(!result.Failed())
	w.updateStatus("Cycle complete", 100)

	w.logger.Info("Completed scan cycle",
		zap.Int("candidates", len(candidates)),
		zap.Int("fetched", len(result.Nations)),
		zap.Int("failedIDs", len(result.FailedIDs)),
		zap.Int("resetsDetected", detected),
		zap.Duration("duration", time.Since(start)))
}

// failCycle records a cycle-level failure and marks the worker unhealthy.
func (w *Worker) failCycle(ctx context.Context, message string, err error) {
	w.logger.Error(message, zap.Error(err))
	w.storage.AppendError(ctx, errKindCycle, fmt.Sprintf("%s: %v", message, err), "", nil)
	w.setHealthy(false)
}

func (w *Worker) updateStatus(task string, progress int) {
	if w.reporter != nil {
		w.reporter.UpdateStatus(task, progress)
	}
}

func (w *Worker) setHealthy(healthy bool) {
	if w.reporter != nil {
		w.reporter.SetHealthy(healthy)
	}
}
