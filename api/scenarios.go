/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built employee snapshots that exercise specific parts of the
	payroll pipeline. Each scenario names the pay period it is meant to be
	run for.

AVAILABLE SCENARIOS:

	grant-funded:         Fully grant-funded by another organization (advance)
	split-funding:        Grant plus home-organization allocation
	probation-transition: Probation passes mid-month (split salary)
	mid-month-hire:       Starts on the 10th (compensation refund)
	foreign-staff:        Non-Thai without tax ID (saving fund)
	senior-increase:      Long-serving senior staff (tier-capped increase)

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save employee snapshots
 3. Run payroll for the scenario's pay_period via the API

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "split-funding"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description, pay period
 2. Create loader function: xxxScenario() []payroll.Employee
 3. Add case to scenarioEmployees

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Payroll endpoints to run after loading
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const scenarioPeriod = "2025-06"

var scenarios = []ScenarioDTO{
	{
		ID:          "grant-funded",
		Name:        "Grant-Funded Researcher",
		Description: "SMRU employee fully funded by a BHF grant; payroll creates a BHF to SMRU advance",
		Category:    "advances",
		PayPeriod:   scenarioPeriod,
	},
	{
		ID:          "split-funding",
		Name:        "Split Funding",
		Description: "60% external grant, 40% home organization; one calculation per allocation",
		Category:    "allocations",
		PayPeriod:   scenarioPeriod,
	},
	{
		ID:          "probation-transition",
		Name:        "Probation Transition",
		Description: "Probation passes on the 15th; the month is split between both rates",
		Category:    "salary",
		PayPeriod:   scenarioPeriod,
	},
	{
		ID:          "mid-month-hire",
		Name:        "Mid-Month Hire",
		Description: "Starts on the 10th; unworked days are refunded as a negative adjustment",
		Category:    "salary",
		PayPeriod:   scenarioPeriod,
	},
	{
		ID:          "foreign-staff",
		Name:        "Foreign Staff Without Tax ID",
		Description: "Saving fund contribution on top of the provident fund",
		Category:    "tax",
		PayPeriod:   scenarioPeriod,
	},
	{
		ID:          "senior-increase",
		Name:        "Senior Annual Increase",
		Description: "Two years of service; the annual increase is capped by the senior tier",
		Category:    "salary",
		PayPeriod:   scenarioPeriod,
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	employees, ok := scenarioEmployees(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		h.respondError(w, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")

	for _, emp := range employees {
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			h.respondError(w, fmt.Sprintf("Failed to load scenario: %v", err), err)
			return
		}
	}

	h.setCurrentScenario(req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "loaded",
		"scenario":   req.ScenarioID,
		"employees":  len(employees),
		"pay_period": scenarioPeriod,
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.respondError(w, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func scenarioEmployees(id string) ([]payroll.Employee, bool) {
	switch id {
	case "grant-funded":
		return grantFundedScenario(), true
	case "split-funding":
		return splitFundingScenario(), true
	case "probation-transition":
		return probationTransitionScenario(), true
	case "mid-month-hire":
		return midMonthHireScenario(), true
	case "foreign-staff":
		return foreignStaffScenario(), true
	case "senior-increase":
		return seniorIncreaseScenario(), true
	}
	return nil, false
}

func grantFundedScenario() []payroll.Employee {
	return []payroll.Employee{{
		ID:               "emp-001",
		Name:             "Naw Eh Htoo",
		HomeOrganization: "SMRU",
		Employment:       scenarioEmployment(day(2025, time.March, 1), "50000", "Research Officer"),
		TaxProfile:       thaiProfile(),
		Allocations: []payroll.FundingAllocation{{
			ID:                  "alloc-001",
			FTE:                 decimal.NewFromInt(1),
			Type:                payroll.AllocationGrant,
			FundingOrganization: "BHF",
			FundingSourceName:   "BHF-MAL-2025",
		}},
	}}
}

func splitFundingScenario() []payroll.Employee {
	return []payroll.Employee{{
		ID:               "emp-002",
		Name:             "Saw Ler Moo",
		HomeOrganization: "SMRU",
		Employment:       scenarioEmployment(day(2024, time.January, 1), "60000", "Data Manager"),
		TaxProfile: tax.Profile{
			HasSpouse:             true,
			DependentChildren:     2,
			Residency:             tax.ResidencyThai,
			MonthsWorkingThisYear: 12,
		},
		Allocations: []payroll.FundingAllocation{
			{
				ID:                  "alloc-002a",
				FTE:                 decimal.RequireFromString("0.6"),
				Type:                payroll.AllocationGrant,
				FundingOrganization: "Wellcome",
				FundingSourceName:   "WT-220211",
			},
			{
				ID:                  "alloc-002b",
				FTE:                 decimal.RequireFromString("0.4"),
				Type:                payroll.AllocationOrganization,
				FundingOrganization: "SMRU",
			},
		},
	}}
}

func probationTransitionScenario() []payroll.Employee {
	employment := scenarioEmployment(day(2025, time.April, 1), "45000", "Field Coordinator")
	pass := day(2025, time.June, 15)
	probation := decimal.NewFromInt(40000)
	employment.ProbationPassDate = &pass
	employment.ProbationSalary = &probation

	return []payroll.Employee{{
		ID:               "emp-003",
		Name:             "Pornthip Srisuk",
		HomeOrganization: "SMRU",
		Employment:       employment,
		TaxProfile:       thaiProfile(),
		Allocations: []payroll.FundingAllocation{{
			ID:                  "alloc-003",
			FTE:                 decimal.NewFromInt(1),
			Type:                payroll.AllocationOrganization,
			FundingOrganization: "SMRU",
		}},
	}}
}

func midMonthHireScenario() []payroll.Employee {
	return []payroll.Employee{{
		ID:               "emp-004",
		Name:             "Mu Paw",
		HomeOrganization: "SMRU",
		Employment:       scenarioEmployment(day(2025, time.June, 10), "30000", "Lab Technician"),
		TaxProfile:       tax.Profile{Residency: tax.ResidencyThai, MonthsWorkingThisYear: 7},
		Allocations: []payroll.FundingAllocation{{
			ID:                  "alloc-004",
			FTE:                 decimal.NewFromInt(1),
			Type:                payroll.AllocationOrganization,
			FundingOrganization: "SMRU",
		}},
	}}
}

func foreignStaffScenario() []payroll.Employee {
	return []payroll.Employee{{
		ID:               "emp-005",
		Name:             "Tom Whitfield",
		HomeOrganization: "SMRU",
		Employment:       scenarioEmployment(day(2024, time.January, 1), "80000", "Epidemiologist"),
		TaxProfile: tax.Profile{
			Residency:             tax.ResidencyNonThaiNoID,
			MonthsWorkingThisYear: 12,
		},
		Allocations: []payroll.FundingAllocation{{
			ID:                  "alloc-005",
			FTE:                 decimal.NewFromInt(1),
			Type:                payroll.AllocationGrant,
			FundingOrganization: "BHF",
			FundingSourceName:   "BHF-TB-2024",
		}},
	}}
}

func seniorIncreaseScenario() []payroll.Employee {
	return []payroll.Employee{{
		ID:               "emp-006",
		Name:             "Dr. Kanya Wongsa",
		HomeOrganization: "SMRU",
		Employment:       scenarioEmployment(day(2023, time.January, 1), "900000", "Senior Researcher"),
		TaxProfile:       thaiProfile(),
		Allocations: []payroll.FundingAllocation{{
			ID:                  "alloc-006",
			FTE:                 decimal.NewFromInt(1),
			Type:                payroll.AllocationOrganization,
			FundingOrganization: "SMRU",
		}},
	}}
}

func scenarioEmployment(start time.Time, base, title string) *payroll.EmploymentProfile {
	return &payroll.EmploymentProfile{
		StartDate:     start,
		BaseSalary:    decimal.RequireFromString(base),
		PositionTitle: title,
	}
}

func thaiProfile() tax.Profile {
	return tax.Profile{Residency: tax.ResidencyThai, MonthsWorkingThisYear: 12}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}
