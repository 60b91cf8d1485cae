// Package export renders documents into PDFs and bundles them, either for one
// contract or in batches across many employees.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/catalog"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pdfdoc"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/render"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/validation"
)

const (
	ContentTypeZIP = "application/zip"
	ContentTypePDF = "application/pdf"
)

var (
	ErrCancelled       = errors.New("export cancelled")
	ErrNothingToExport = errors.New("no documents apply to the selected employees")
	ErrNotApplicable   = errors.New("document does not apply to this contract")
)

// UnitError is the failure of one (employee, document) unit. It aborts the run.
type UnitError struct {
	EmployeeID string
	DNI        string
	Document   string
	Err        error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("failed to export %s for DNI %s: %v", e.Document, e.DNI, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// Renderer captures the pages of one document. render.Worker implements it.
type Renderer interface {
	Render(ctx context.Context, req render.Request) ([]image.Image, error)
}

// Unit is one document for one employee.
type Unit struct {
	Document catalog.Document
	Target   Target
}

func (u Unit) Label() string {
	return fmt.Sprintf("%s - %s", u.Document.Label, u.Target.Employee.FullName())
}

// PlanUnits orders units document-major, employee-minor, skipping exclusive
// documents whose variant the employee's contract did not select.
func PlanUnits(docs []catalog.Document, targets []Target) []Unit {
	var units []Unit
	for _, d := range docs {
		for _, t := range targets {
			if d.AppliesTo(t.Contract) {
				units = append(units, Unit{Document: d, Target: t})
			}
		}
	}
	return units
}

// Result is a finished export.
type Result struct {
	Name        string
	ContentType string
	Data        []byte
	Units       int
	Sheets      int
}

// Exporter turns contracts into PDFs and archives using the catalog and a
// page renderer.
type Exporter struct {
	catalog  *catalog.Catalog
	renderer Renderer
}

// NewExporter creates an exporter over the catalog, capturing pages with r.
func NewExporter(c *catalog.Catalog, r Renderer) *Exporter {
	return &Exporter{catalog: c, renderer: r}
}

func (e *Exporter) Catalog() *catalog.Catalog { return e.catalog }

// Batch runs a planned export. Units are rendered strictly one after the
// other; ctx is checked between units and a cancelled run returns
// ErrCancelled without a partial result.
func (e *Exporter) Batch(ctx context.Context, docs []catalog.Document, targets []Target, output validation.Output, progress ProgressFunc) (*Result, error) {
	units := PlanUnits(docs, targets)
	if len(units) == 0 {
		return nil, ErrNothingToExport
	}
	track := newTracker(len(units), progress)
	logger.Info(ctx, "batch export started", "units", len(units), "employees", len(targets), "output", output)
	start := time.Now()

	var (
		res *Result
		err error
	)
	if output == validation.OutputPDF {
		res, err = e.consolidated(ctx, units, track)
	} else {
		res, err = e.zipUnits(ctx, units, track)
	}
	if err != nil {
		logger.Warn(ctx, "batch export aborted", "error", err, "duration", time.Since(start))
		return nil, err
	}
	res.Units = len(units)
	logger.Info(ctx, "batch export finished", "units", res.Units, "bytes", len(res.Data), "duration", time.Since(start))
	return res, nil
}

func (e *Exporter) zipUnits(ctx context.Context, units []Unit, track *tracker) (*Result, error) {
	archive := NewArchive()
	for _, u := range units {
		if err := between(ctx); err != nil {
			return nil, err
		}
		track.step(u.Label())
		images, err := e.renderUnit(ctx, u)
		if err != nil {
			return nil, unitFailure(ctx, u, err)
		}
		pdf, _, err := documentPDF(u.Document, images)
		if err != nil {
			return nil, unitFailure(ctx, u, err)
		}
		if _, err := archive.Add(FileName(u.Target.Employee, u.Document.Label), u.Target.Employee.DNI, pdf); err != nil {
			return nil, err
		}
	}
	data, err := archive.Bytes()
	if err != nil {
		return nil, err
	}
	return &Result{Name: "documentos.zip", ContentType: ContentTypeZIP, Data: data}, nil
}

// consolidated writes every unit into one PDF. Half-page documents are
// printed two per sheet when more than one employee has them; a pending
// half is carried across employees and flushed alone when the document ends.
func (e *Exporter) consolidated(ctx context.Context, units []Unit, track *tracker) (*Result, error) {
	perDoc := make(map[string]int)
	for _, u := range units {
		perDoc[string(u.Document.ID)]++
	}

	comp := pdfdoc.NewComposer("Documentos")
	var pending *pdfdoc.Raster
	flush := func() error {
		if pending == nil {
			return nil
		}
		err := comp.AddHalfPages(pending, nil)
		pending = nil
		return err
	}

	for i, u := range units {
		if i > 0 && units[i-1].Document.ID != u.Document.ID {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		if err := between(ctx); err != nil {
			return nil, err
		}
		track.step(u.Label())
		images, err := e.renderUnit(ctx, u)
		if err != nil {
			return nil, unitFailure(ctx, u, err)
		}

		twoUp := u.Document.HalfPage && perDoc[string(u.Document.ID)] > 1
		for _, img := range images {
			if !twoUp {
				r, err := pdfdoc.EncodeRaster(img)
				if err != nil {
					return nil, unitFailure(ctx, u, err)
				}
				if err := comp.AddPage(r, u.Document.Orientation); err != nil {
					return nil, unitFailure(ctx, u, err)
				}
				continue
			}
			r, err := pdfdoc.EncodeRaster(render.Trim(img))
			if err != nil {
				return nil, unitFailure(ctx, u, err)
			}
			if pending == nil {
				pending = &r
				continue
			}
			top := pending
			pending = nil
			if err := comp.AddHalfPages(top, &r); err != nil {
				return nil, unitFailure(ctx, u, err)
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	data, err := comp.Bytes()
	if err != nil {
		return nil, err
	}
	return &Result{Name: "documentos.pdf", ContentType: ContentTypePDF, Data: data, Sheets: comp.Stats().Pages}, nil
}

func (e *Exporter) renderUnit(ctx context.Context, u Unit) ([]image.Image, error) {
	in, err := catalog.InputFor(u.Document, u.Target.Employee, u.Target.Contract, u.Target.Signature)
	if err != nil {
		return nil, err
	}
	pages, err := e.catalog.Build(u.Document, in)
	if err != nil {
		return nil, err
	}
	return e.renderer.Render(logger.WithContract(ctx, u.Target.Contract.ID), render.Request{Label: u.Label(), Pages: pages})
}

// documentPDF composes one document's pages, one per sheet.
func documentPDF(doc catalog.Document, images []image.Image) ([]byte, pdfdoc.Stats, error) {
	comp := pdfdoc.NewComposer(doc.Label)
	for _, img := range images {
		r, err := pdfdoc.EncodeRaster(img)
		if err != nil {
			return nil, pdfdoc.Stats{}, err
		}
		if err := comp.AddPage(r, doc.Orientation); err != nil {
			return nil, pdfdoc.Stats{}, err
		}
	}
	stats := comp.Stats()
	data, err := comp.Bytes()
	return data, stats, err
}

func between(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return nil
}

func unitFailure(ctx context.Context, u Unit, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
	logger.Error(ctx, "export unit failed", "document", u.Document.ID, "dni", u.Target.Employee.DNI, "error", err)
	return &UnitError{EmployeeID: u.Target.Employee.ID, DNI: u.Target.Employee.DNI, Document: string(u.Document.ID), Err: err}
}
