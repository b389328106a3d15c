package payroll

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// RUNNER - Calculate and persist, one transaction per employee
// =============================================================================

// DefaultWorkers bounds bulk runs when Runner.Workers is unset.
const DefaultWorkers = 4

// Runner calculates payrolls with an Engine and persists them through a
// TxStore. Writes for one employee and period are all-or-nothing.
type Runner struct {
	Engine  *Engine
	Store   TxStore
	Workers int
	Logger  *zap.Logger

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// NewRunner returns a Runner with default workers. A nil logger discards output.
func NewRunner(engine *Engine, store TxStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Engine:  engine,
		Store:   store,
		Workers: DefaultWorkers,
		Logger:  logger.Named("payroll.runner"),
		Now:     func() time.Time { return time.Now().UTC() },
		NewID:   func() string { return uuid.NewString() },
	}
}

// RunResult is what one employee's run wrote.
type RunResult struct {
	Payroll  EmployeePayroll `json:"payroll"`
	Payrolls []PayrollRecord `json:"payrolls"`
	Advances []AdvanceRecord `json:"advances"`
}

// RunEmployee calculates the employee's payroll for period and persists every
// allocation's record plus any inter-organization advances in one transaction.
// Nothing is written if calculation fails.
func (r *Runner) RunEmployee(ctx context.Context, actor string, employee Employee, period PayPeriod, taxYear int) (*RunResult, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, &InputError{Field: "actor", Reason: "missing"}
	}
	log := r.Logger.With(
		zap.String("employee_id", employee.ID),
		zap.String("pay_period", period.String()),
		zap.Int("tax_year", taxYear),
	)

	payroll, err := r.Engine.CalculateEmployeePayrollSummary(employee, employee.Allocations, period, taxYear)
	if err != nil {
		log.Warn("payroll calculation failed", zap.Error(err))
		return nil, err
	}

	now := r.Now()
	result := &RunResult{Payroll: payroll}
	for i, calc := range payroll.Calculations {
		rec := PayrollRecord{
			ID:           r.NewID(),
			EmployeeID:   employee.ID,
			AllocationID: calc.AllocationID,
			PayPeriod:    period,
			TaxYear:      taxYear,
			Calculation:  calc,
			CreatedBy:    actor,
			CreatedAt:    now,
		}
		result.Payrolls = append(result.Payrolls, rec)

		adv, err := ResolveInterOrganizationAdvance(employee, employee.Allocations[i], calc, period)
		if err != nil {
			log.Warn("advance resolution failed", zap.String("allocation_id", calc.AllocationID), zap.Error(err))
			return nil, err
		}
		if adv != nil {
			result.Advances = append(result.Advances, AdvanceRecord{
				ID:         r.NewID(),
				PayrollID:  rec.ID,
				EmployeeID: employee.ID,
				Advance:    *adv,
				CreatedBy:  actor,
				CreatedAt:  now,
			})
		}
	}

	err = r.Store.WithTx(ctx, func(s Store) error {
		for _, rec := range result.Payrolls {
			if err := s.SavePayroll(ctx, rec); err != nil {
				return err
			}
		}
		for _, adv := range result.Advances {
			if err := s.SaveAdvance(ctx, adv); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Warn("payroll persistence rolled back", zap.Error(err))
		return nil, err
	}

	log.Info("payroll created",
		zap.String("actor", actor),
		zap.Int("allocations", len(result.Payrolls)),
		zap.Int("advances", len(result.Advances)),
		zap.String("net_salary", payroll.Summary.NetSalary.StringFixed(2)),
	)
	return result, nil
}

// Preview calculates the employee's payroll without persisting anything.
func (r *Runner) Preview(employee Employee, period PayPeriod, taxYear int) (EmployeePayroll, error) {
	return r.Engine.CalculateEmployeePayrollSummary(employee, employee.Allocations, period, taxYear)
}

// =============================================================================
// BULK RUNS
// =============================================================================

// BulkResult reports per-employee outcomes. One failure never hides another
// employee's success.
type BulkResult struct {
	PayPeriod PayPeriod        `json:"pay_period"`
	TaxYear   int              `json:"tax_year"`
	Succeeded []RunResult      `json:"succeeded"`
	Failed    []*EmployeeError `json:"-"`
}

// FailureMessages flattens Failed for serialization and audit rows.
func (b BulkResult) FailureMessages() []string {
	out := make([]string, 0, len(b.Failed))
	for _, f := range b.Failed {
		out = append(out, f.Error())
	}
	return out
}

// RunBulk runs every employee with at most Workers in flight. Results keep
// the input order. The error is non-nil only when ctx was cancelled before
// some employee started. Those employees are reported in Failed.
func (r *Runner) RunBulk(ctx context.Context, actor string, employees []Employee, period PayPeriod, taxYear int) (BulkResult, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	type outcome struct {
		res *RunResult
		err error
	}
	// Each goroutine writes only its own slot.
	outcomes := make([]outcome, len(employees))

	// Employee failures stay in outcomes. Only cancellation reaches the group.
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range employees {
		emp := employees[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = outcome{err: err}
				return err
			}
			res, err := r.RunEmployee(ctx, actor, emp, period, taxYear)
			outcomes[i] = outcome{res: res, err: err}
			return nil
		})
	}
	waitErr := g.Wait()

	result := BulkResult{PayPeriod: period, TaxYear: taxYear, Succeeded: []RunResult{}}
	for i, o := range outcomes {
		if o.err != nil {
			result.Failed = append(result.Failed, &EmployeeError{EmployeeID: employees[i].ID, Err: o.err})
			continue
		}
		result.Succeeded = append(result.Succeeded, *o.res)
	}

	r.Logger.Info("bulk payroll finished",
		zap.String("pay_period", period.String()),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, waitErr
}
