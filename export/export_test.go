package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"testing"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/catalog"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/render"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/validation"
)

// fakeRenderer returns a small page with a dark block for every requested page.
type fakeRenderer struct {
	mu     sync.Mutex
	calls  []string
	failOn string
}

func (f *fakeRenderer) Render(ctx context.Context, req render.Request) ([]image.Image, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Label)
	f.mu.Unlock()
	if f.failOn != "" && req.Label == f.failOn {
		return nil, errors.New("capture failed")
	}
	out := make([]image.Image, len(req.Pages))
	for i := range req.Pages {
		img := image.NewRGBA(image.Rect(0, 0, 80, 112))
		draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(20, 20, 60, 50), image.NewUniform(color.Black), image.Point{}, draw.Src)
		out[i] = img
	}
	return out, nil
}

func testExporter(t *testing.T) (*Exporter, *fakeRenderer) {
	t.Helper()
	fonts, err := render.DefaultFonts()
	if err != nil {
		t.Fatalf("Failed to load fonts: %v", err)
	}
	r := &fakeRenderer{}
	return NewExporter(catalog.New(fonts, catalog.Employer{Name: "Agua Lima S.A.C."}), r), r
}

func signedTarget(t *testing.T, id, dni, name string, v model.Variant, created time.Time) Target {
	t.Helper()
	e := &model.Employee{ID: id, DNI: dni, Nombres: name, ApellidoPaterno: "Flores"}
	sig := "sig-" + id
	c := &model.Contract{ID: "c-" + id, EmployeeID: id, Employee: e, SignatureID: &sig, CreatedAt: created}
	if err := c.ChooseVariant(v); err != nil {
		t.Fatalf("ChooseVariant failed: %v", err)
	}
	if err := c.Sign(created); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	return Target{Employee: e, Contract: c}
}

func docs(t *testing.T, e *Exporter, ids ...model.DocumentID) []catalog.Document {
	t.Helper()
	out, err := e.Catalog().Select(ids)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	return out
}

func TestPlanUnitsSkipsOtherVariant(t *testing.T) {
	e, _ := testExporter(t)
	now := time.Now()
	targets := []Target{
		signedTarget(t, "a", "11111111", "Ana", model.VariantIntermitente, now),
		signedTarget(t, "b", "22222222", "Beto", model.VariantTemporada, now),
	}
	units := PlanUnits(docs(t, e, model.DocContratoIntermitente, model.DocContratoTemporada, model.DocInduccion), targets)

	want := []string{"a/contrato-intermitente", "b/contrato-temporada", "a/induccion", "b/induccion"}
	if len(units) != len(want) {
		t.Fatalf("Expected %d units, got %d", len(want), len(units))
	}
	for i, u := range units {
		if got := u.Target.Employee.ID + "/" + string(u.Document.ID); got != want[i] {
			t.Errorf("Expected %s at %d, got %s", want[i], i, got)
		}
	}
}

func TestBatchZipProgressAndNames(t *testing.T) {
	e, _ := testExporter(t)
	now := time.Now()
	targets := []Target{
		signedTarget(t, "a", "11111111", "Ana", model.VariantIntermitente, now),
		signedTarget(t, "b", "22222222", "Ana", model.VariantTemporada, now),
	}

	var seen []Progress
	res, err := e.Batch(context.Background(), docs(t, e, model.DocContratoIntermitente, model.DocAntisoborno), targets, validation.OutputZIP, func(p Progress) {
		seen = append(seen, p)
	})
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}

	if len(seen) != 3 {
		t.Fatalf("Expected 3 progress updates, got %d", len(seen))
	}
	for i, p := range seen {
		if p.Current != i+1 || p.Total != 3 {
			t.Errorf("Expected %d/3, got %d/%d", i+1, p.Current, p.Total)
		}
	}
	if last := seen[len(seen)-1]; last.Current != last.Total {
		t.Errorf("Expected run to finish at total, got %+v", last)
	}

	zr, err := zip.NewReader(bytes.NewReader(res.Data), int64(len(res.Data)))
	if err != nil {
		t.Fatalf("Invalid zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
		if f.Method != zip.Deflate {
			t.Errorf("Expected deflate for %s", f.Name)
		}
	}
	for _, want := range []string{
		"Ana_Flores_Contrato_Intermitente.pdf",
		"Ana_Flores_Antisoborno.pdf",
		"Ana_Flores_Antisoborno_22222222.pdf",
	} {
		if !names[want] {
			t.Errorf("Expected %s in archive, got %v", want, names)
		}
	}
	if res.ContentType != ContentTypeZIP || res.Units != 3 {
		t.Errorf("Expected zip with 3 units, got %s with %d", res.ContentType, res.Units)
	}
}

// Three employees, informed consent (5 pages) and bank account (half page).
func TestBatchConsolidatedPairsHalfPages(t *testing.T) {
	e, _ := testExporter(t)
	day := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		employees int
		sheets    int
	}{
		{1, 5 + 1},
		{2, 10 + 1},
		{3, 15 + 2},
		{4, 20 + 2},
	}
	for _, tt := range tests {
		var targets []Target
		for i := 0; i < tt.employees; i++ {
			id := string(rune('a' + i))
			targets = append(targets, signedTarget(t, id, "1000000"+string(rune('0'+i)), "Emp", model.VariantIntermitente, day))
		}
		res, err := e.Batch(context.Background(), docs(t, e, model.DocConsentimientoInformado, model.DocCuentaBancaria), targets, validation.OutputPDF, nil)
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}
		if res.Sheets != tt.sheets {
			t.Errorf("%d employees: Expected %d sheets, got %d", tt.employees, tt.sheets, res.Sheets)
		}
		if res.Units != 2*tt.employees {
			t.Errorf("%d employees: Expected %d units, got %d", tt.employees, 2*tt.employees, res.Units)
		}
		if !bytes.HasPrefix(res.Data, []byte("%PDF-")) {
			t.Error("Expected PDF output")
		}
	}
}

func TestBatchCancelledBetweenUnits(t *testing.T) {
	e, r := testExporter(t)
	now := time.Now()
	targets := []Target{
		signedTarget(t, "a", "11111111", "Ana", model.VariantIntermitente, now),
		signedTarget(t, "b", "22222222", "Beto", model.VariantIntermitente, now),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := e.Batch(ctx, docs(t, e, model.DocInduccion), targets, validation.OutputZIP, func(p Progress) {
		if p.Current == 1 {
			cancel()
		}
	})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}
	if res != nil {
		t.Error("Expected no partial result")
	}
	if len(r.calls) > 1 {
		t.Errorf("Expected at most one render after cancel, got %d", len(r.calls))
	}
}

func TestBatchUnitFailureAborts(t *testing.T) {
	e, r := testExporter(t)
	now := time.Now()
	a := signedTarget(t, "a", "11111111", "Ana", model.VariantIntermitente, now)
	b := signedTarget(t, "b", "22222222", "Beto", model.VariantIntermitente, now)
	r.failOn = "Induccion - Ana Flores"

	_, err := e.Batch(context.Background(), docs(t, e, model.DocInduccion, model.DocAntisoborno), []Target{a, b}, validation.OutputZIP, nil)
	var ue *UnitError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UnitError, got %v", err)
	}
	if ue.DNI != "11111111" || ue.Document != string(model.DocInduccion) {
		t.Errorf("Expected failure for Ana's induction, got %+v", ue)
	}
	if len(r.calls) != 1 {
		t.Errorf("Expected run to stop after the failing unit, got %d renders", len(r.calls))
	}
}

func TestBatchNothingToExport(t *testing.T) {
	e, _ := testExporter(t)
	target := signedTarget(t, "a", "11111111", "Ana", model.VariantIntermitente, time.Now())
	_, err := e.Batch(context.Background(), docs(t, e, model.DocContratoTemporada), []Target{target}, validation.OutputZIP, nil)
	if !errors.Is(err, ErrNothingToExport) {
		t.Errorf("Expected ErrNothingToExport, got %v", err)
	}
}

func TestSingleDocumentAndAll(t *testing.T) {
	e, _ := testExporter(t)
	target := signedTarget(t, "a", "11111111", "Ana", model.VariantTemporada, time.Now())

	res, err := e.Document(context.Background(), target, model.DocConsentimientoInformado)
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if res.Sheets != 5 || res.Name != "Ana_Flores_Consentimiento_Informado.pdf" {
		t.Errorf("Expected 5-sheet consent PDF, got %d sheets named %s", res.Sheets, res.Name)
	}

	if _, err := e.Document(context.Background(), target, model.DocContratoIntermitente); !errors.Is(err, ErrNotApplicable) {
		t.Errorf("Expected ErrNotApplicable, got %v", err)
	}
	if _, err := e.Document(context.Background(), target, "otro"); !errors.Is(err, model.ErrUnknownDocument) {
		t.Errorf("Expected ErrUnknownDocument, got %v", err)
	}

	all, err := e.All(context.Background(), target)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(all.Data), int64(len(all.Data)))
	if err != nil {
		t.Fatalf("Invalid zip: %v", err)
	}
	if len(zr.File) != len(e.Catalog().All())-1 {
		t.Errorf("Expected %d files, got %d", len(e.Catalog().All())-1, len(zr.File))
	}
}
