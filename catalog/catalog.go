// Package catalog declares every HR document the service can render and how
// each one is built from an employee, the ficha de datos, its own payload and
// the signature.
package catalog

import (
	"errors"
	"fmt"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pdfdoc"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/render"
)

// GroupContrato is the exclusion group of the two labor-contract variants.
const GroupContrato = "contrato"

var ErrPageCount = errors.New("document rendered an unexpected number of pages")

// Employer identifies the hiring company on every document.
type Employer struct {
	Name           string
	RUC            string
	Address        string
	Representative string
	City           string
}

// Input is everything a document needs. Payload is the document's own JSON
// payload decoded into a map; Signature is an image data URI or empty.
type Input struct {
	Employee  *model.Employee
	FieldSet  model.FieldSet
	Payload   map[string]any
	Signature string
}

// Document describes one printable form and how it is laid out.
type Document struct {
	ID          model.DocumentID
	Label       string
	Pages       int
	Group       string
	Orientation pdfdoc.Orientation
	// HalfPage documents fill the top half of the sheet and may be printed two-up.
	HalfPage bool

	build func(l *render.Layout, e Employer, in Input)
}

func (d Document) Exclusive() bool { return d.Group != "" }

// Variant is the contract variant an exclusive document belongs to.
func (d Document) Variant() model.Variant {
	switch d.ID {
	case model.DocContratoIntermitente:
		return model.VariantIntermitente
	case model.DocContratoTemporada:
		return model.VariantTemporada
	}
	return model.VariantNone
}

// AppliesTo reports whether the document belongs in c's document set.
// Exclusive documents apply only when c selected their variant.
func (d Document) AppliesTo(c *model.Contract) bool {
	if !d.Exclusive() {
		return true
	}
	return c != nil && c.Variant() == d.Variant()
}

// Catalog renders documents with a shared font set.
type Catalog struct {
	fonts    *render.Fonts
	employer Employer
	docs     []Document
	byID     map[model.DocumentID]int
}

// New creates the catalog of every form, in print order.
func New(fonts *render.Fonts, employer Employer) *Catalog {
	docs := documents()
	byID := make(map[model.DocumentID]int, len(docs))
	for i, d := range docs {
		byID[d.ID] = i
	}
	return &Catalog{fonts: fonts, employer: employer, docs: docs, byID: byID}
}

// All returns documents in catalog order.
func (c *Catalog) All() []Document {
	out := make([]Document, len(c.docs))
	copy(out, c.docs)
	return out
}

// Lookup finds a document by id.
func (c *Catalog) Lookup(id model.DocumentID) (Document, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Document{}, false
	}
	return c.docs[i], true
}

// Applicable lists, in catalog order, the documents that apply to contract.
func (c *Catalog) Applicable(contract *model.Contract) []Document {
	var out []Document
	for _, d := range c.docs {
		if d.AppliesTo(contract) {
			out = append(out, d)
		}
	}
	return out
}

// Select returns the requested documents in catalog order. Unknown ids are
// an error; an empty request selects everything.
func (c *Catalog) Select(ids []model.DocumentID) ([]Document, error) {
	if len(ids) == 0 {
		return c.All(), nil
	}
	want := make(map[model.DocumentID]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.byID[id]; !ok {
			return nil, fmt.Errorf("%w: %s", model.ErrUnknownDocument, id)
		}
		want[id] = true
	}
	var out []Document
	for _, d := range c.docs {
		if want[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

// Build lays out every page of doc. It has no side effects.
func (c *Catalog) Build(doc Document, in Input) ([]render.Page, error) {
	if in.Employee == nil {
		return nil, model.ErrNoEmployee
	}
	if in.Payload == nil {
		in.Payload = map[string]any{}
	}
	l := render.NewLayout(c.fonts, doc.Label, doc.Orientation == pdfdoc.Landscape)
	doc.build(l, c.employer, in)
	pages := l.Pages()
	if len(pages) != doc.Pages {
		return nil, fmt.Errorf("%w: %s has %d, expected %d", ErrPageCount, doc.ID, len(pages), doc.Pages)
	}
	return pages, nil
}

// InputFor collects a document's input from a contract.
func InputFor(doc Document, e *model.Employee, c *model.Contract, signature string) (Input, error) {
	fs, err := c.FieldSet()
	if err != nil {
		return Input{}, err
	}
	payload, err := c.PayloadMap(doc.ID)
	if err != nil {
		return Input{}, err
	}
	return Input{Employee: e, FieldSet: fs, Payload: payload, Signature: signature}, nil
}
