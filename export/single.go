package export

import (
	"context"
	"fmt"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
)

// Document renders one document of one contract to a PDF.
func (e *Exporter) Document(ctx context.Context, t Target, id model.DocumentID) (*Result, error) {
	doc, ok := e.catalog.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownDocument, id)
	}
	if !doc.AppliesTo(t.Contract) {
		return nil, ErrNotApplicable
	}
	u := Unit{Document: doc, Target: t}
	images, err := e.renderUnit(ctx, u)
	if err != nil {
		return nil, unitFailure(ctx, u, err)
	}
	data, stats, err := documentPDF(doc, images)
	if err != nil {
		return nil, unitFailure(ctx, u, err)
	}
	logger.Info(ctx, "document exported", "document", id, "dni", t.Employee.DNI, "sheets", stats.Pages)
	return &Result{
		Name:        FileName(t.Employee, doc.Label),
		ContentType: ContentTypePDF,
		Data:        data,
		Units:       1,
		Sheets:      stats.Pages,
	}, nil
}

// All renders every document that applies to the contract and zips them.
func (e *Exporter) All(ctx context.Context, t Target) (*Result, error) {
	docs := e.catalog.Applicable(t.Contract)
	archive := NewArchive()
	for _, doc := range docs {
		if err := between(ctx); err != nil {
			return nil, err
		}
		u := Unit{Document: doc, Target: t}
		images, err := e.renderUnit(ctx, u)
		if err != nil {
			return nil, unitFailure(ctx, u, err)
		}
		data, _, err := documentPDF(doc, images)
		if err != nil {
			return nil, unitFailure(ctx, u, err)
		}
		if _, err := archive.Add(FileName(t.Employee, doc.Label), t.Employee.DNI, data); err != nil {
			return nil, err
		}
	}
	data, err := archive.Bytes()
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "contract documents exported", "dni", t.Employee.DNI, "documents", len(docs))
	return &Result{
		Name:        CleanName(t.Employee.FullName()) + "_documentos.zip",
		ContentType: ContentTypeZIP,
		Data:        data,
		Units:       len(docs),
	}, nil
}
