package catalog

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pdfdoc"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/render"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	fonts, err := render.DefaultFonts()
	if err != nil {
		t.Fatalf("Failed to load fonts: %v", err)
	}
	return New(fonts, Employer{Name: "Agua Lima S.A.C.", RUC: "20123456789", City: "Lima"})
}

func testEmployee() *model.Employee {
	return &model.Employee{ID: "emp-1", DNI: "12345678", Nombres: "Rosa", ApellidoPaterno: "Quispe", ApellidoMaterno: "Mamani"}
}

func TestCatalogOrderAndPages(t *testing.T) {
	c := testCatalog(t)
	want := []struct {
		id    model.DocumentID
		pages int
	}{
		{model.DocFichaDatos, 3},
		{model.DocContratoIntermitente, 3},
		{model.DocContratoTemporada, 3},
		{model.DocSistemaPensionario, 1},
		{model.DocReglamentoInterno, 2},
		{model.DocConsentimientoInformado, 5},
		{model.DocInduccion, 1},
		{model.DocCuentaBancaria, 1},
		{model.DocConflictoIntereses, 1},
		{model.DocConfidencialidad, 2},
		{model.DocAntisoborno, 1},
		{model.DocDeclaracionParentesco, 1},
		{model.DocDeclaracionBienes, 1},
	}

	all := c.All()
	if len(all) != len(want) {
		t.Fatalf("Expected %d documents, got %d", len(want), len(all))
	}
	for i, w := range want {
		if all[i].ID != w.id || all[i].Pages != w.pages {
			t.Errorf("Expected %s with %d pages at %d, got %s with %d", w.id, w.pages, i, all[i].ID, all[i].Pages)
		}
	}

	if d, _ := c.Lookup(model.DocSistemaPensionario); d.Orientation != pdfdoc.Landscape {
		t.Error("Expected pension election to be landscape")
	}
	if d, _ := c.Lookup(model.DocCuentaBancaria); !d.HalfPage {
		t.Error("Expected bank account to be a half-page document")
	}
	if _, ok := c.Lookup("desconocido"); ok {
		t.Error("Expected unknown document lookup to fail")
	}
}

func TestBuildProducesDeclaredPageCount(t *testing.T) {
	c := testCatalog(t)
	full := model.FieldSet{
		Cargo: "Operario", FechaInicio: "2024-03-01", FechaFin: "2024-08-31",
		Educacion:   []model.EducationRow{{Nivel: "Secundaria", Institucion: "IE 123"}},
		Familia:     []model.FamilyRow{{Parentesco: "Hijo", Nombres: "Luis"}},
		Experiencia: []model.WorkRow{{Empresa: "Agrícola Norte", Cargo: "Cosechador"}},
		Banco:       model.BankAccount{Banco: "BCP", NumeroCuenta: "191-1234567-0-12"},
	}
	inputs := map[string]Input{
		"empty": {Employee: testEmployee()},
		"full": {
			Employee: testEmployee(),
			FieldSet: full,
			Payload: map[string]any{
				"eleccion":        "AFP",
				"afp":             "Integra",
				"tiene_conflicto": true,
				"detalle":         "Proveedor familiar",
				"parientes":       []any{map[string]any{"nombres": "Ana", "parentesco": "Hermana"}},
				"bienes":          []any{map[string]any{"tipo": "Vehículo", "valor": 15000.0}},
			},
			Signature: "data:image/png;base64,AAAA",
		},
	}

	for name, in := range inputs {
		for _, d := range c.All() {
			pages, err := c.Build(d, in)
			if err != nil {
				t.Errorf("%s/%s: Build failed: %v", name, d.ID, err)
				continue
			}
			if len(pages) != d.Pages {
				t.Errorf("%s/%s: Expected %d pages, got %d", name, d.ID, d.Pages, len(pages))
			}
			if d.Orientation == pdfdoc.Landscape && pages[0].Width <= pages[0].Height {
				t.Errorf("%s/%s: Expected landscape page", name, d.ID)
			}
		}
	}
}

func TestCapturedPagesKeepFirstFidelity(t *testing.T) {
	c := testCatalog(t)
	fonts, err := render.DefaultFonts()
	if err != nil {
		t.Fatalf("Failed to load fonts: %v", err)
	}
	ctx := context.Background()

	r := render.NewRenderer(render.Options{Fidelities: []int{2, 1}}, fonts, nil)
	for _, d := range c.All() {
		pages, err := c.Build(d, Input{Employee: testEmployee()})
		if err != nil {
			t.Fatalf("%s: Build failed: %v", d.ID, err)
		}
		for i, p := range pages {
			img, err := r.Capture(ctx, p)
			if err != nil {
				t.Fatalf("%s/%d: Capture failed: %v", d.ID, i, err)
			}
			if w, _ := p.Size(); img.Bounds().Dx() != 2*w {
				t.Errorf("%s/%d: Expected the first fidelity to be kept, got width %d for page width %d", d.ID, i, img.Bounds().Dx(), w)
			}
		}
	}

	d, _ := c.Lookup(model.DocConsentimientoInformado)
	pages, err := c.Build(d, Input{Employee: testEmployee()})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	img, err := render.NewRenderer(render.DefaultOptions(), fonts, nil).Capture(ctx, pages[0])
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if w, _ := pages[0].Size(); img.Bounds().Dx() != 5*w {
		t.Errorf("Expected a 5x capture with default options, got width %d", img.Bounds().Dx())
	}
}

func TestBuildPlacesSignature(t *testing.T) {
	c := testCatalog(t)
	d, _ := c.Lookup(model.DocAntisoborno)
	sig := "data:image/png;base64,AAAA"

	pages, err := c.Build(d, Input{Employee: testEmployee(), Signature: sig})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := pages[len(pages)-1].Sources(); len(got) != 1 || got[0] != sig {
		t.Errorf("Expected signature on last page, got %v", got)
	}
}

func TestBuildRequiresEmployee(t *testing.T) {
	c := testCatalog(t)
	d, _ := c.Lookup(model.DocInduccion)
	if _, err := c.Build(d, Input{}); !errors.Is(err, model.ErrNoEmployee) {
		t.Errorf("Expected ErrNoEmployee, got %v", err)
	}
}

func TestApplicableDropsOtherVariant(t *testing.T) {
	c := testCatalog(t)
	contract := &model.Contract{SelectedVariant: model.VariantTemporada}

	docs := c.Applicable(contract)
	if len(docs) != len(c.All())-1 {
		t.Fatalf("Expected one document dropped, got %d of %d", len(docs), len(c.All()))
	}
	for _, d := range docs {
		if d.ID == model.DocContratoIntermitente {
			t.Error("Expected intermittent contract to be dropped")
		}
	}

	none := c.Applicable(&model.Contract{})
	for _, d := range none {
		if d.Exclusive() {
			t.Errorf("Expected no exclusive documents without a variant, got %s", d.ID)
		}
	}
}

func TestSelect(t *testing.T) {
	c := testCatalog(t)

	docs, err := c.Select([]model.DocumentID{model.DocCuentaBancaria, model.DocConsentimientoInformado})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != model.DocConsentimientoInformado || docs[1].ID != model.DocCuentaBancaria {
		t.Errorf("Expected catalog order, got %v", docs)
	}

	if _, err := c.Select([]model.DocumentID{"nope"}); !errors.Is(err, model.ErrUnknownDocument) {
		t.Errorf("Expected ErrUnknownDocument, got %v", err)
	}

	all, _ := c.Select(nil)
	if len(all) != len(c.All()) {
		t.Errorf("Expected every document for an empty selection, got %d", len(all))
	}
}

func TestInputFor(t *testing.T) {
	c := testCatalog(t)
	contract := &model.Contract{}
	if err := contract.SetFieldSet(model.FieldSet{Cargo: "Supervisor"}); err != nil {
		t.Fatalf("SetFieldSet failed: %v", err)
	}
	if err := contract.SetPayload(model.DocInduccion, []byte(`{"temas":["EPP"]}`)); err != nil {
		t.Fatalf("SetPayload failed: %v", err)
	}
	d, _ := c.Lookup(model.DocInduccion)

	in, err := InputFor(d, testEmployee(), contract, "")
	if err != nil {
		t.Fatalf("InputFor failed: %v", err)
	}
	if in.FieldSet.Cargo != "Supervisor" {
		t.Errorf("Expected cargo Supervisor, got %q", in.FieldSet.Cargo)
	}
	if !reflect.DeepEqual(strList(in.Payload, "temas"), []string{"EPP"}) {
		t.Errorf("Expected topics [EPP], got %v", in.Payload["temas"])
	}
}
