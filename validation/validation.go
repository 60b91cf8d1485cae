// Package validation holds the pure rules that gate saving, signing and
// exporting.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/catalog"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
)

const DayLayout = "2006-01-02"

var (
	ErrInvalidDay   = errors.New("day must use the YYYY-MM-DD format")
	ErrInvalidScope = errors.New("scope must be manual, day or all")
	ErrNoTargets    = errors.New("manual scope needs at least one employee")
	ErrInvalidMode  = errors.New("output must be zip or pdf")
)

// Scope selects the employees of a batch export.
type Scope string

const (
	ScopeManual Scope = "manual"
	ScopeDay    Scope = "day"
	ScopeAll    Scope = "all"
)

// Output is the artifact a batch export produces.
type Output string

const (
	OutputZIP Output = "zip"
	OutputPDF Output = "pdf"
)

// ContractCompleteness lists why a contract cannot be signed or exported yet.
// An empty result means it can.
func ContractCompleteness(employeeSelected, signaturePresent bool, choice model.Variant) []error {
	var problems []error
	if !employeeSelected {
		problems = append(problems, model.ErrNoEmployee)
	}
	if !signaturePresent {
		problems = append(problems, model.ErrNoSignature)
	}
	if choice != model.VariantIntermitente && choice != model.VariantTemporada {
		problems = append(problems, model.ErrNoVariant)
	}
	return problems
}

// ContractProblems applies ContractCompleteness to a stored contract.
func ContractProblems(c *model.Contract) []error {
	return ContractCompleteness(c.EmployeeID != "", c.SignatureID != nil && *c.SignatureID != "", c.Variant())
}

// TabComplete reports whether a document tab is complete. Every tab needs a
// signature; the ficha de datos also needs its required fields.
func TabComplete(doc model.DocumentID, signaturePresent bool, fs model.FieldSet) bool {
	if !signaturePresent {
		return false
	}
	if doc == model.DocFichaDatos {
		return len(catalog.MissingFields(fs)) == 0
	}
	return true
}

// FieldSetPagesComplete reports completeness of each ficha de datos editor page.
func FieldSetPagesComplete(fs model.FieldSet) [catalog.FieldSetPages]bool {
	var out [catalog.FieldSetPages]bool
	for i, missing := range catalog.MissingByPage(fs) {
		out[i] = len(missing) == 0
	}
	return out
}

// ValidateDay parses a local calendar day.
func ValidateDay(day string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DayLayout, strings.TrimSpace(day), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDay, day)
	}
	return t, nil
}

// ExportRequest is the body of a batch export.
type ExportRequest struct {
	Documents   []model.DocumentID `json:"documents"`
	Scope       Scope              `json:"scope"`
	EmployeeIDs []string           `json:"employee_ids,omitempty"`
	Day         string             `json:"day,omitempty"`
	Output      Output             `json:"output"`
}

// ValidateExportRequest checks the request shape and fills the output default.
// Document ids are checked against the catalog by the orchestrator.
func ValidateExportRequest(req *ExportRequest, loc *time.Location) error {
	switch req.Scope {
	case ScopeManual:
		if len(nonEmpty(req.EmployeeIDs)) == 0 {
			return ErrNoTargets
		}
	case ScopeDay:
		if _, err := ValidateDay(req.Day, loc); err != nil {
			return err
		}
	case ScopeAll:
	default:
		return ErrInvalidScope
	}
	switch req.Output {
	case "":
		req.Output = OutputZIP
	case OutputZIP, OutputPDF:
	default:
		return ErrInvalidMode
	}
	return nil
}

// Messages flattens errors into user-facing strings.
func Messages(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

func nonEmpty(ids []string) []string {
	var out []string
	for _, id := range ids {
		if strings.TrimSpace(id) != "" {
			out = append(out, id)
		}
	}
	return out
}
