package export

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/validation"
)

var ErrNoTargets = errors.New("no employee with a signed contract matches the scope")

// Target is one employee with the signed contract used for every document.
type Target struct {
	Employee  *model.Employee
	Contract  *model.Contract
	Signature string
}

// Source reads signed contracts from persistence.
type Source interface {
	// LatestSignedContracts returns, for each employee, only their most
	// recently created signed contract with Employee loaded. A nil id list
	// means every employee.
	LatestSignedContracts(ctx context.Context, employeeIDs []string) ([]model.Contract, error)
	// SignatureData returns the signature image of a contract, or "".
	SignatureData(ctx context.Context, c *model.Contract) (string, error)
}

// ResolveTargets turns a request scope into the ordered employee list.
// Manual scope keeps the operator's order and drops employees without a
// signed contract; day and all scopes are ordered by employee name.
func ResolveTargets(ctx context.Context, src Source, req validation.ExportRequest, loc *time.Location) ([]Target, error) {
	if loc == nil {
		loc = time.Local
	}
	var ids []string
	if req.Scope == validation.ScopeManual {
		ids = dedupe(req.EmployeeIDs)
		if len(ids) == 0 {
			return nil, validation.ErrNoTargets
		}
	}
	contracts, err := src.LatestSignedContracts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load signed contracts: %w", err)
	}

	switch req.Scope {
	case validation.ScopeManual:
		contracts = orderByIDs(contracts, ids)
	case validation.ScopeDay:
		day, err := validation.ValidateDay(req.Day, loc)
		if err != nil {
			return nil, err
		}
		contracts = onDay(contracts, day, loc)
		sortByName(contracts)
	case validation.ScopeAll:
		sortByName(contracts)
	default:
		return nil, validation.ErrInvalidScope
	}

	targets := make([]Target, 0, len(contracts))
	for i := range contracts {
		c := &contracts[i]
		if c.Employee == nil || !c.IsSigned() {
			continue
		}
		sig, err := src.SignatureData(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("failed to load signature of contract %s: %w", c.ID, err)
		}
		targets = append(targets, Target{Employee: c.Employee, Contract: c, Signature: sig})
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	return targets, nil
}

// onDay keeps contracts created on the given local calendar day.
func onDay(contracts []model.Contract, day time.Time, loc *time.Location) []model.Contract {
	want := day.Format(validation.DayLayout)
	var out []model.Contract
	for _, c := range contracts {
		if c.CreatedAt.In(loc).Format(validation.DayLayout) == want {
			out = append(out, c)
		}
	}
	return out
}

func orderByIDs(contracts []model.Contract, ids []string) []model.Contract {
	byEmployee := make(map[string]model.Contract, len(contracts))
	for _, c := range contracts {
		byEmployee[c.EmployeeID] = c
	}
	out := make([]model.Contract, 0, len(contracts))
	for _, id := range ids {
		if c, ok := byEmployee[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func sortByName(contracts []model.Contract) {
	sort.SliceStable(contracts, func(i, j int) bool {
		a, b := contracts[i].Employee, contracts[j].Employee
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		an, bn := strings.ToLower(a.Surnames()+" "+a.Nombres), strings.ToLower(b.Surnames()+" "+b.Nombres)
		if an != bn {
			return an < bn
		}
		return a.DNI < b.DNI
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
