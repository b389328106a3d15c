/*
errors.go - Error taxonomy for the payroll engine

ERROR CATEGORIES:
  1. Input errors - Missing employment, empty allocation list, malformed dates.
     Surfaced before any computation; nothing may be persisted.
  2. Configuration errors - No tax table for the requested year, bad rates.
     Fatal to the single calculation; other employees in a bulk run continue.
  3. Invariant violations - A computed value broke an arithmetic guarantee
     (e.g. a negative contribution). The engine errors instead of clamping.
  4. Store errors - Duplicate payroll, missing employee.

Ineligibility is never an error: it yields a zero amount.

USAGE:
  if errors.Is(err, payroll.ErrInput) { ... 400 ... }
  var cfgErr *payroll.ConfigurationError
  if errors.As(err, &cfgErr) { log cfgErr.TaxYear }
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInput marks invalid or missing calculation input.
	ErrInput = errors.New("invalid payroll input")

	// ErrConfiguration marks missing or malformed engine configuration.
	ErrConfiguration = errors.New("payroll configuration error")

	// ErrInvariant marks a computed value that violates an arithmetic invariant.
	ErrInvariant = errors.New("payroll invariant violation")

	// ErrDuplicatePayroll is returned when a payroll already exists for the
	// same employee, allocation and pay period.
	ErrDuplicatePayroll = errors.New("payroll already exists for allocation and period")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrAllocationNotFound is returned when a referenced allocation doesn't exist.
	ErrAllocationNotFound = errors.New("allocation not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InputError names the offending field. Err optionally carries the cause.
type InputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Is(target error) bool { return target == ErrInput }
func (e *InputError) Unwrap() error        { return e.Err }

// ConfigurationError wraps a configuration lookup failure.
type ConfigurationError struct {
	TaxYear int
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.TaxYear != 0 {
		return fmt.Sprintf("configuration error for tax year %d: %v", e.TaxYear, e.Err)
	}
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
func (e *ConfigurationError) Unwrap() error        { return e.Err }

// InvariantViolation reports the field and value that broke an invariant.
type InvariantViolation struct {
	Field string
	Value string
	Rule  string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated: %s = %s (%s)", e.Field, e.Value, e.Rule)
}

func (e *InvariantViolation) Unwrap() error { return ErrInvariant }

// AllocationError ties a calculation failure to one allocation.
type AllocationError struct {
	AllocationID string
	Err          error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation %s: %v", e.AllocationID, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// EmployeeError ties a failure in a bulk run to one employee.
type EmployeeError struct {
	EmployeeID string
	Err        error
}

func (e *EmployeeError) Error() string {
	return fmt.Sprintf("employee %s: %v", e.EmployeeID, e.Err)
}

func (e *EmployeeError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInput) || errors.Is(err, ErrDuplicatePayroll)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrAllocationNotFound)
}
