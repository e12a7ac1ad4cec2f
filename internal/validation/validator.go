// =============================================================================
// FeliCa Ledger - Ledger Audit
// =============================================================================
//
// Checks a finished ledger before it is written out. Findings are collected,
// never thrown:
//
//   | rule        | severity | condition                                         |
//   |-------------|----------|---------------------------------------------------|
//   | balance     | error    | transaction without a previous balance            |
//   | amount      | error    | Charge/Retail amount differs from the delta       |
//   | station     | error    | Train without station, or station on another kind |
//   | alternation | error    | two consecutive station records share a role      |
//   | trip-role   | error    | non-station record carries Entry/Exit             |
//   | unclassified| warning  | Unknown kind (reported so the code can be mapped) |
//   | undated     | warning  | record kept with the unknown-date sentinel        |
//   | date-order  | warning  | dates go backwards in chronological order         |
//   | dropped     | warning  | history block rejected by the builder             |
//
// =============================================================================

package validation

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/felica-ledger/internal/ledger"
	"github.com/ginjaninja78/felica-ledger/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError is one audit finding.
type ValidationError struct {
	Severity string
	Rule     string

	// Index is the position in the most-recent-first ledger, or the history
	// slot for "dropped" findings.
	Index int

	// Date is the record date as text.
	Date string

	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] #%d (%s) %s: %s",
		strings.ToUpper(e.Severity), e.Index, e.Date, e.Rule, e.Message)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult is the outcome of one audit.
type ValidationResult struct {
	// IsValid is true if there are no errors (and no warnings when
	// TreatWarningsAsErrors is set).
	IsValid bool

	Errors       []*ValidationError
	ErrorCount   int
	WarningCount int

	TransactionsValidated int
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions tunes the audit.
type ValidationOptions struct {
	// TreatWarningsAsErrors makes any warning invalidate the result.
	TreatWarningsAsErrors bool

	// ReportUnknown emits a warning per Unknown transaction. Default: true.
	ReportUnknown bool
}

// DefaultValidationOptions returns the default options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{ReportUnknown: true}
}

// Validator audits ledgers.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{options: DefaultValidationOptions()}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// Validate audits l with default options and returns the findings.
func Validate(l types.Ledger) []*ValidationError {
	return NewValidator().ValidateAll(l, nil).Errors
}

// ValidateAll audits a most-recent-first ledger and the blocks dropped
// while building it.
func (v *Validator) ValidateAll(l types.Ledger, dropped []ledger.Dropped) *ValidationResult {
	result := &ValidationResult{
		IsValid:               true,
		Errors:                make([]*ValidationError, 0),
		TransactionsValidated: len(l),
	}

	for i, tx := range l {
		v.collect(result, v.ValidateTransaction(i, tx))
	}

	v.collect(result, validateSequence(l))

	for _, d := range dropped {
		v.collect(result, []*ValidationError{{
			Severity: SeverityWarning,
			Rule:     "dropped",
			Index:    d.Index,
			Date:     "-",
			Message:  fmt.Sprintf("history block dropped: %s", d.Reason),
		}})
	}

	return result
}

func (v *Validator) collect(result *ValidationResult, found []*ValidationError) {
	for _, err := range found {
		result.Errors = append(result.Errors, err)

		if err.Severity == SeverityError {
			result.ErrorCount++
			result.IsValid = false
			continue
		}

		result.WarningCount++
		if v.options.TreatWarningsAsErrors {
			result.IsValid = false
		}
	}
}

// ValidateTransaction runs the per-record rules on the transaction at
// ledger position index.
func (v *Validator) ValidateTransaction(index int, tx types.Transaction) []*ValidationError {
	var errs []*ValidationError
	add := func(severity, rule, format string, args ...any) {
		errs = append(errs, &ValidationError{
			Severity: severity,
			Rule:     rule,
			Index:    index,
			Date:     tx.Date.String(),
			Message:  fmt.Sprintf(format, args...),
		})
	}

	delta, hasDelta := tx.Delta()
	if !hasDelta {
		add(SeverityError, "balance", "no previous balance")
	}

	switch k := tx.Kind.(type) {
	case types.Train:
		if tx.Station == nil {
			add(SeverityError, "station", "train record without station")
		}
	case types.Charge:
		if hasDelta && k.Amount != delta {
			add(SeverityError, "amount", "charge amount %d differs from delta %d", k.Amount, delta)
		}
	case types.Retail:
		if hasDelta && k.Amount != nil && *k.Amount != delta {
			add(SeverityError, "amount", "retail amount %d differs from delta %d", *k.Amount, delta)
		}
	case types.Unknown:
		if v.options.ReportUnknown {
			add(SeverityWarning, "unclassified", "machine type 0x%02X, process type 0x%02X",
				k.RawCode, tx.ProcessTypeCode)
		}
	case nil:
		add(SeverityError, "station", "transaction was never classified")
	}

	if tx.KindTag() != types.KindTrain && tx.Station != nil {
		add(SeverityError, "station", "%s record carries a station", tx.KindTag())
	}
	if tx.Station == nil && tx.TripRole != types.TripNotApplicable {
		add(SeverityError, "trip-role", "non-station record tagged %s", tx.TripRole)
	}
	if !tx.Date.Valid {
		add(SeverityWarning, "undated", "record date failed validation")
	}

	return errs
}

// validateSequence walks l oldest-first checking alternation and date order.
func validateSequence(l types.Ledger) []*ValidationError {
	var errs []*ValidationError

	lastRole := types.TripNotApplicable
	var lastDate time.Time

	for chrono := 0; chrono < len(l); chrono++ {
		index := len(l) - 1 - chrono
		tx := l[index]

		if tx.HasStation() {
			if tx.TripRole != types.TripNotApplicable && tx.TripRole == lastRole {
				errs = append(errs, &ValidationError{
					Severity: SeverityError,
					Rule:     "alternation",
					Index:    index,
					Date:     tx.Date.String(),
					Message:  fmt.Sprintf("consecutive station records both tagged %s", tx.TripRole),
				})
			}
			lastRole = tx.TripRole
		}

		if t, ok := tx.Date.Time(); ok {
			if !lastDate.IsZero() && t.Before(lastDate) {
				errs = append(errs, &ValidationError{
					Severity: SeverityWarning,
					Rule:     "date-order",
					Index:    index,
					Date:     tx.Date.String(),
					Message:  fmt.Sprintf("date precedes previous record (%s)", lastDate.Format("2006-01-02")),
				})
			}
			lastDate = t
		}
	}

	return errs
}

// =============================================================================
// REPORTING
// =============================================================================

// FormatErrors renders findings one per line.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))
	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

// WriteErrorLog writes findings for source to filePath.
func WriteErrorLog(errors []*ValidationError, source, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Source: %s\n", source)
	fmt.Fprintf(writer, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
	writer.WriteString(FormatErrors(errors))

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	return nil
}
