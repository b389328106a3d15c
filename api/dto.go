/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request types accept
  calendar dates as "YYYY-MM-DD" and pay periods as "YYYY-MM"; responses
  return the payroll package types directly where their JSON shape is
  already the contract.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response: Response wrappers
  - *DTO: Small response-only records

TYPES:
  Employee:
    EmployeeRequest, EmploymentRequest

  Payroll:
    CalculatePayrollRequest, CalculatePayrollResponse
    RunPayrollRequest, PayrollListResponse
    BulkPayrollRequest, BulkPayrollResponse

  Advances:
    AdvancesResponse, AdvancePreviewResponse

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  DTOs only carry data. Conversion errors are payroll.InputError so the
  handlers map them to 400 like any other invalid input.

SEE ALSO:
  - handlers.go: Uses these types
  - payroll/types.go: Domain snapshots and results
*/
package api

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// EMPLOYEE REQUESTS
// =============================================================================

// EmployeeRequest creates or replaces an employee snapshot.
type EmployeeRequest struct {
	ID               string                      `json:"id"`
	Name             string                      `json:"name"`
	HomeOrganization string                      `json:"home_organization"`
	Employment       *EmploymentRequest          `json:"employment"`
	TaxProfile       tax.Profile                 `json:"tax_profile"`
	Allocations      []payroll.FundingAllocation `json:"allocations"`
}

// EmploymentRequest is the employment record with plain calendar dates.
type EmploymentRequest struct {
	StartDate            string           `json:"start_date"`
	ProbationPassDate    string           `json:"probation_pass_date,omitempty"`
	ProbationSalary      *decimal.Decimal `json:"probation_salary,omitempty"`
	BaseSalary           decimal.Decimal  `json:"base_salary"`
	PositionRef          string           `json:"position_ref"`
	PositionTitle        string           `json:"position_title"`
	DepartmentRef        string           `json:"department_ref"`
	HealthWelfareEnabled bool             `json:"health_welfare_enabled"`
}

// ToEmployee converts the request into a payroll snapshot.
func (r EmployeeRequest) ToEmployee() (payroll.Employee, error) {
	emp := payroll.Employee{
		ID:               strings.TrimSpace(r.ID),
		Name:             r.Name,
		HomeOrganization: r.HomeOrganization,
		TaxProfile:       r.TaxProfile,
		Allocations:      r.Allocations,
	}
	if emp.ID == "" {
		return payroll.Employee{}, &payroll.InputError{Field: "id", Reason: "missing"}
	}
	if emp.Allocations == nil {
		emp.Allocations = []payroll.FundingAllocation{}
	}
	if r.Employment != nil {
		employment, err := r.Employment.toProfile()
		if err != nil {
			return payroll.Employee{}, err
		}
		emp.Employment = employment
	}
	return emp, nil
}

func (r EmploymentRequest) toProfile() (*payroll.EmploymentProfile, error) {
	start, err := parseDate("employment.start_date", r.StartDate)
	if err != nil {
		return nil, err
	}
	p := &payroll.EmploymentProfile{
		StartDate:            start,
		ProbationSalary:      r.ProbationSalary,
		BaseSalary:           r.BaseSalary,
		PositionRef:          r.PositionRef,
		PositionTitle:        r.PositionTitle,
		DepartmentRef:        r.DepartmentRef,
		HealthWelfareEnabled: r.HealthWelfareEnabled,
	}
	if r.ProbationPassDate != "" {
		pass, err := parseDate("employment.probation_pass_date", r.ProbationPassDate)
		if err != nil {
			return nil, err
		}
		p.ProbationPassDate = &pass
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &payroll.InputError{Field: field, Reason: "expected YYYY-MM-DD", Err: err}
	}
	return t, nil
}

// =============================================================================
// PAYROLL REQUESTS/RESPONSES
// =============================================================================

// CalculatePayrollRequest previews a payroll without persisting it. Either
// EmployeeID names a stored employee or Employee carries an inline snapshot.
type CalculatePayrollRequest struct {
	EmployeeID string           `json:"employee_id,omitempty"`
	Employee   *EmployeeRequest `json:"employee,omitempty"`
	PayPeriod  string           `json:"pay_period"`
	TaxYear    int              `json:"tax_year,omitempty"`
}

// CalculatePayrollResponse is the preview with the advances it would create.
type CalculatePayrollResponse struct {
	Payroll  payroll.EmployeePayroll            `json:"payroll"`
	Advances []payroll.InterOrganizationAdvance `json:"advances"`
}

// RunPayrollRequest persists one employee's payroll.
type RunPayrollRequest struct {
	PayPeriod string `json:"pay_period"`
	TaxYear   int    `json:"tax_year,omitempty"`
}

// PayrollListResponse lists stored payrolls for an employee and period.
type PayrollListResponse struct {
	EmployeeID string                  `json:"employee_id"`
	PayPeriod  payroll.PayPeriod       `json:"pay_period"`
	Payrolls   []payroll.PayrollRecord `json:"payrolls"`
	Summary    *payroll.PayrollSummary `json:"summary,omitempty"`
}

// BulkPayrollRequest runs a period for the listed employees, or for every
// stored employee when EmployeeIDs is empty.
type BulkPayrollRequest struct {
	PayPeriod   string   `json:"pay_period"`
	TaxYear     int      `json:"tax_year,omitempty"`
	EmployeeIDs []string `json:"employee_ids,omitempty"`
}

// BulkPayrollResponse reports every employee's outcome.
type BulkPayrollResponse struct {
	RunID     string              `json:"run_id"`
	PayPeriod payroll.PayPeriod   `json:"pay_period"`
	TaxYear   int                 `json:"tax_year"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Results   []payroll.RunResult `json:"results"`
	Errors    []string            `json:"errors"`
}

// =============================================================================
// ADVANCES
// =============================================================================

// AdvancesResponse lists the advances recorded for a pay period.
type AdvancesResponse struct {
	PayPeriod payroll.PayPeriod       `json:"pay_period"`
	Advances  []payroll.AdvanceRecord `json:"advances"`
	Total     decimal.Decimal         `json:"total"`
}

// AdvancePreviewResponse lists advances an employee will need before payroll exists.
type AdvancePreviewResponse struct {
	EmployeeID string                   `json:"employee_id"`
	PayPeriod  payroll.PayPeriod        `json:"pay_period"`
	Advances   []payroll.AdvancePreview `json:"advances"`
}

// =============================================================================
// RUNS & SCENARIOS
// =============================================================================

// RunsResponse wraps payroll run history.
type RunsResponse struct {
	Runs []payroll.RunRecord `json:"runs"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	// PayPeriod is the period the scenario is meant to be run for.
	PayPeriod string `json:"pay_period"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse represents an error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
