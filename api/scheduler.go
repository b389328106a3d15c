/*
scheduler.go - Automated monthly payroll scheduler

PURPOSE:
  Periodically checks whether the current pay period has been run and, if
  not, bulk-runs every stored employee for it.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - A period counts as done once any run is recorded for it, manual or scheduled
  - Per-employee failures are recorded on the run row, never retried automatically
  - Runs as actor "system"

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewPayrollScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunBulkPayroll endpoint (manual runs)
  - payroll/runner.go: Bulk runner
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/payroll-engine/payroll"
	"go.uber.org/zap"
)

// SystemActor is recorded as created_by for scheduled runs.
const SystemActor = "system"

// PayrollScheduler handles automated monthly payroll runs.
type PayrollScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool
	Logger        *zap.Logger

	// Now is overridable for tests.
	Now func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPayrollScheduler creates a new scheduler.
func NewPayrollScheduler(handler *Handler) *PayrollScheduler {
	return &PayrollScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Logger:        handler.Logger.Named("scheduler"),
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the scheduler. A stopped scheduler can be started again.
func (ps *PayrollScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		ps.Logger.Info("scheduler disabled, not starting")
		return
	}
	if ps.ticker != nil {
		return
	}

	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.stop = make(chan struct{})
	ps.wg.Add(1)

	go ps.run(ps.ticker, ps.stop)

	ps.Logger.Info("scheduler started", zap.Duration("check_interval", ps.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight check.
func (ps *PayrollScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker != nil {
		ps.ticker.Stop()
		close(ps.stop)
		ps.wg.Wait()
		ps.ticker = nil
		ps.Logger.Info("scheduler stopped")
	}
}

func (ps *PayrollScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ps.wg.Done()

	// Run immediately on start
	ps.check(stop)

	for {
		select {
		case <-ticker.C:
			ps.check(stop)
		case <-stop:
			return
		}
	}
}

func (ps *PayrollScheduler) check(stop <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := ps.checkAndProcess(ctx); err != nil {
		ps.Logger.Error("scheduled payroll failed", zap.Error(err))
	}
}

// RunNow triggers an immediate check and returns the recorded run, or nil
// when the period was already done.
func (ps *PayrollScheduler) RunNow(ctx context.Context) (*payroll.RunRecord, error) {
	return ps.checkAndProcess(ctx)
}

func (ps *PayrollScheduler) checkAndProcess(ctx context.Context) (*payroll.RunRecord, error) {
	h := ps.Handler
	period := payroll.PayPeriodOf(ps.Now())
	log := ps.Logger.With(zap.String("pay_period", period.String()))

	done, err := h.Store.IsRunComplete(ctx, period)
	if err != nil {
		return nil, err
	}
	if done {
		log.Debug("pay period already run, skipping")
		return nil, nil
	}

	employees, err := h.Store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	run, _, err := h.runPeriod(ctx, SystemActor, employees, period, h.taxYearFor(0, period))
	if err != nil {
		return nil, err
	}

	log.Info("scheduled payroll completed",
		zap.String("run_id", run.ID),
		zap.Int("succeeded", run.Succeeded),
		zap.Int("failed", run.Failed),
	)
	return &run, nil
}
