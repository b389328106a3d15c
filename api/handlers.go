/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the payroll package.

ENDPOINTS:
  Employees:
    GET    /api/employees                          List all employees
    POST   /api/employees                          Create or replace an employee snapshot
    GET    /api/employees/{id}                     Get employee details

  Payroll:
    POST   /api/payroll/calculate                  Preview calculations, nothing persisted
    POST   /api/employees/{id}/payroll             Persist one employee's payroll
    GET    /api/employees/{id}/payroll?pay_period= Stored payrolls and their summary
    POST   /api/payroll/bulk                       Run a period for many employees
    GET    /api/payroll/runs                       Run history

  Advances:
    GET    /api/employees/{id}/advances/preview?pay_period=
    GET    /api/advances?pay_period=

  Scenarios:
    GET    /api/scenarios                          List demo scenarios
    POST   /api/scenarios/load                     Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Engine: Pure payroll calculation
  - Runner: Calculate-and-persist, one transaction per employee

ACTOR:
  Every write that creates payroll rows needs the X-Actor-ID header. The
  value is recorded as created_by. There is no implicit user.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (payroll.ErrInput)
  - 404: Employee or allocation not found
  - 409: Payroll already exists for the allocation and period
  - 422: Missing or invalid tax/engine configuration
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The actor header is trusted as given.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
	"go.uber.org/zap"
)

// ActorHeader carries the user responsible for a payroll write.
const ActorHeader = "X-Actor-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *payroll.Engine
	Runner *payroll.Runner
	Logger *zap.Logger

	// DefaultTaxYear applies when a request omits tax_year. Zero means the
	// pay period's calendar year.
	DefaultTaxYear int

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. A nil logger discards output.
func NewHandler(store *sqlite.Store, engine *payroll.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:  store,
		Engine: engine,
		Runner: payroll.NewRunner(engine, store, logger),
		Logger: logger.Named("api"),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.respondError(w, "Failed to list employees", err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "Employee not found", err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// CreateEmployee stores an employee snapshot, replacing any previous one.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp, err := req.ToEmployee()
	if err != nil {
		h.respondError(w, "Invalid employee", err)
		return
	}
	for _, alloc := range emp.Allocations {
		if err := alloc.Validate(); err != nil {
			h.respondError(w, "Invalid allocation", &payroll.AllocationError{AllocationID: alloc.ID, Err: err})
			return
		}
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		h.respondError(w, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// CalculatePayroll previews an employee's payroll without persisting it.
// POST /api/payroll/calculate
func (h *Handler) CalculatePayroll(w http.ResponseWriter, r *http.Request) {
	var req CalculatePayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	ctx := r.Context()

	period, err := parsePeriod(req.PayPeriod)
	if err != nil {
		h.respondError(w, "Invalid pay period", err)
		return
	}

	var emp payroll.Employee
	switch {
	case req.Employee != nil:
		emp, err = req.Employee.ToEmployee()
	case req.EmployeeID != "":
		var stored *payroll.Employee
		if stored, err = h.Store.GetEmployee(ctx, req.EmployeeID); err == nil {
			emp = *stored
		}
	default:
		err = &payroll.InputError{Field: "employee", Reason: "employee_id or employee is required"}
	}
	if err != nil {
		h.respondError(w, "Invalid employee", err)
		return
	}

	result, err := h.Runner.Preview(emp, period, h.taxYearFor(req.TaxYear, period))
	if err != nil {
		h.respondError(w, "Payroll calculation failed", err)
		return
	}

	advances := []payroll.InterOrganizationAdvance{}
	for i, calc := range result.Calculations {
		adv, err := payroll.ResolveInterOrganizationAdvance(emp, emp.Allocations[i], calc, period)
		if err != nil {
			h.respondError(w, "Advance resolution failed", err)
			return
		}
		if adv != nil {
			advances = append(advances, *adv)
		}
	}

	writeJSON(w, http.StatusOK, CalculatePayrollResponse{Payroll: result, Advances: advances})
}

// RunEmployeePayroll calculates and persists one employee's payroll.
// POST /api/employees/{id}/payroll
func (h *Handler) RunEmployeePayroll(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.respondError(w, "Actor required", err)
		return
	}

	var req RunPayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, err := parsePeriod(req.PayPeriod)
	if err != nil {
		h.respondError(w, "Invalid pay period", err)
		return
	}

	ctx := r.Context()
	emp, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "Employee not found", err)
		return
	}

	result, err := h.Runner.RunEmployee(ctx, actor, *emp, period, h.taxYearFor(req.TaxYear, period))
	if err != nil {
		h.respondError(w, "Failed to create payroll", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// GetEmployeePayrolls returns stored payrolls for a period.
// GET /api/employees/{id}/payroll?pay_period=YYYY-MM
func (h *Handler) GetEmployeePayrolls(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	period, err := parsePeriod(r.URL.Query().Get("pay_period"))
	if err != nil {
		h.respondError(w, "Invalid pay period", err)
		return
	}
	if _, err := h.Store.GetEmployee(ctx, id); err != nil {
		h.respondError(w, "Employee not found", err)
		return
	}

	records, err := h.Store.ListPayrolls(ctx, id, period)
	if err != nil {
		h.respondError(w, "Failed to list payrolls", err)
		return
	}

	resp := PayrollListResponse{EmployeeID: id, PayPeriod: period, Payrolls: records}
	if len(records) > 0 {
		calcs := make([]payroll.AllocationCalculation, len(records))
		for i, rec := range records {
			calcs[i] = rec.Calculation
		}
		summary, err := payroll.Summarize(calcs)
		if err != nil {
			h.respondError(w, "Failed to summarize payrolls", err)
			return
		}
		resp.Summary = &summary
	}
	writeJSON(w, http.StatusOK, resp)
}

// RunBulkPayroll runs a pay period for many employees. Failures of one
// employee are reported, never fatal to the others.
// POST /api/payroll/bulk
func (h *Handler) RunBulkPayroll(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		h.respondError(w, "Actor required", err)
		return
	}

	var req BulkPayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, err := parsePeriod(req.PayPeriod)
	if err != nil {
		h.respondError(w, "Invalid pay period", err)
		return
	}

	ctx := r.Context()
	employees, err := h.employeesFor(ctx, req.EmployeeIDs)
	if err != nil {
		h.respondError(w, "Failed to load employees", err)
		return
	}

	run, result, err := h.runPeriod(ctx, actor, employees, period, h.taxYearFor(req.TaxYear, period))
	if err != nil {
		h.respondError(w, "Bulk payroll failed", err)
		return
	}

	writeJSON(w, http.StatusOK, BulkPayrollResponse{
		RunID:     run.ID,
		PayPeriod: period,
		TaxYear:   run.TaxYear,
		Succeeded: run.Succeeded,
		Failed:    run.Failed,
		Results:   result.Succeeded,
		Errors:    result.FailureMessages(),
	})
}

// ListPayrollRuns returns run history, most recent first.
// GET /api/payroll/runs?limit=N
func (h *Handler) ListPayrollRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		h.respondError(w, "Failed to list payroll runs", err)
		return
	}
	writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

// =============================================================================
// ADVANCE HANDLERS
// =============================================================================

// PreviewAdvances lists the advances an employee's allocations will need.
// GET /api/employees/{id}/advances/preview?pay_period=YYYY-MM
func (h *Handler) PreviewAdvances(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r.URL.Query().Get("pay_period"))
	if err != nil {
		h.respondError(w, "Invalid pay period", err)
		return
	}
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "Employee not found", err)
		return
	}

	previews, err := h.Engine.PreviewInterOrganizationAdvances(*emp, period)
	if err != nil {
		h.respondError(w, "Advance preview failed", err)
		return
	}
	writeJSON(w, http.StatusOK, AdvancePreviewResponse{EmployeeID: emp.ID, PayPeriod: period, Advances: previews})
}

// ListAdvances returns the advances recorded for a period.
// GET /api/advances?pay_period=YYYY-MM
func (h *Handler) ListAdvances(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r.URL.Query().Get("pay_period"))
	if err != nil {
		h.respondError(w, "Invalid pay period", err)
		return
	}

	advances, err := h.Store.ListAdvances(r.Context(), period)
	if err != nil {
		h.respondError(w, "Failed to list advances", err)
		return
	}

	total := decimal.Zero
	for _, a := range advances {
		total = total.Add(a.Advance.Amount)
	}
	writeJSON(w, http.StatusOK, AdvancesResponse{PayPeriod: period, Advances: advances, Total: total})
}

// Health reports whether the database is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RUNS
// =============================================================================

// runPeriod bulk-runs employees and records the run. Used by the bulk
// endpoint and the scheduler.
func (h *Handler) runPeriod(
	ctx context.Context,
	actor string,
	employees []payroll.Employee,
	period payroll.PayPeriod,
	taxYear int,
) (payroll.RunRecord, payroll.BulkResult, error) {
	started := time.Now().UTC()
	result, err := h.Runner.RunBulk(ctx, actor, employees, period, taxYear)
	if err != nil {
		return payroll.RunRecord{}, result, err
	}

	run := payroll.RunRecord{
		ID:          uuid.NewString(),
		PayPeriod:   period,
		TaxYear:     taxYear,
		Actor:       actor,
		Succeeded:   len(result.Succeeded),
		Failed:      len(result.Failed),
		Errors:      result.FailureMessages(),
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveRun(ctx, run); err != nil {
		return payroll.RunRecord{}, result, err
	}
	return run, result, nil
}

func (h *Handler) employeesFor(ctx context.Context, ids []string) ([]payroll.Employee, error) {
	if len(ids) == 0 {
		return h.Store.ListEmployees(ctx)
	}
	employees := make([]payroll.Employee, 0, len(ids))
	for _, id := range ids {
		emp, err := h.Store.GetEmployee(ctx, id)
		if err != nil {
			return nil, &payroll.EmployeeError{EmployeeID: id, Err: err}
		}
		employees = append(employees, *emp)
	}
	return employees, nil
}

func (h *Handler) taxYearFor(requested int, period payroll.PayPeriod) int {
	switch {
	case requested > 0:
		return requested
	case h.DefaultTaxYear > 0:
		return h.DefaultTaxYear
	default:
		return period.Year
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func parsePeriod(s string) (payroll.PayPeriod, error) {
	if strings.TrimSpace(s) == "" {
		return payroll.PayPeriod{}, &payroll.InputError{Field: "pay_period", Reason: "missing"}
	}
	return payroll.ParsePayPeriod(s)
}

func actorFrom(r *http.Request) (string, error) {
	actor := strings.TrimSpace(r.Header.Get(ActorHeader))
	if actor == "" {
		return "", &payroll.InputError{Field: ActorHeader, Reason: "missing"}
	}
	return actor, nil
}

// statusFor maps the payroll error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, payroll.ErrDuplicatePayroll):
		return http.StatusConflict
	case payroll.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, payroll.ErrInput):
		return http.StatusBadRequest
	case errors.Is(err, payroll.ErrConfiguration):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
