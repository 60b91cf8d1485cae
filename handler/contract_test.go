package handler

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
)

func TestContractHandlerCreate(t *testing.T) {
	env := newTestEnv(t, nil)
	emp := &model.Employee{DNI: "11111111", Nombres: "Ana", ApellidoPaterno: "Flores", Cargo: "Operario", Sueldo: 1200}
	if err := env.store.CreateEmployee(context.Background(), emp); err != nil {
		t.Fatalf("CreateEmployee failed: %v", err)
	}

	w := env.do(http.MethodPost, "/api/contracts", map[string]any{"cliente_id": emp.ID, "variante": "temporada"})
	expectStatus(t, w, http.StatusCreated)
	body := decode(t, w)
	if body["estado"] != string(model.StateDraft) {
		t.Errorf("Expected draft state, got %v", body["estado"])
	}
	if body["variante"] != "temporada" {
		t.Errorf("Expected temporada, got %v", body["variante"])
	}
	ficha, _ := body["ficha_datos"].(map[string]any)
	if ficha["cargo"] != "Operario" || ficha["sueldo"] != "1200.00" {
		t.Errorf("Expected ficha prefilled from the employee, got %v", ficha)
	}

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"missing employee id", map[string]any{}, http.StatusBadRequest},
		{"unknown employee", map[string]any{"cliente_id": "nope"}, http.StatusNotFound},
		{"bad variant", map[string]any{"cliente_id": emp.ID, "variante": "anual"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/contracts", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestContractHandlerSetPayload(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.draft(t, env.employee(t, "11111111", "Ana", "Flores"))

	w := env.do(http.MethodPut, "/api/contracts/"+c.ID+"/payloads/ficha-datos", `{"cargo":"Operario"}`)
	expectStatus(t, w, http.StatusOK)
	missing, _ := decode(t, w)["missing"].([]any)
	if len(missing) == 0 {
		t.Error("Expected missing fields for a sparse ficha de datos")
	}

	w = env.do(http.MethodPut, "/api/contracts/"+c.ID+"/payloads/induccion", `{"fecha":"2024-01-15"}`)
	expectStatus(t, w, http.StatusOK)
	if _, ok := decode(t, w)["missing"]; ok {
		t.Error("Expected no missing list for other documents")
	}

	w = env.do(http.MethodPut, "/api/contracts/"+c.ID+"/payloads/unknown-doc", `{}`)
	expectStatus(t, w, http.StatusNotFound)

	w = env.do(http.MethodPut, "/api/contracts/"+c.ID+"/payloads/induccion", "")
	expectStatus(t, w, http.StatusBadRequest)
}

func TestContractHandlerChooseVariant(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.draft(t, env.employee(t, "11111111", "Ana", "Flores"))
	path := "/api/contracts/" + c.ID + "/variant"

	expectStatus(t, env.do(http.MethodPut, path, map[string]any{"variante": "intermitente"}), http.StatusOK)
	// Choosing the same variant again is fine.
	expectStatus(t, env.do(http.MethodPut, path, map[string]any{"variante": "intermitente"}), http.StatusOK)
	expectStatus(t, env.do(http.MethodPut, path, map[string]any{"variante": "temporada"}), http.StatusConflict)
}

func TestContractHandlerSignRequiresCompleteness(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.draft(t, env.employee(t, "11111111", "Ana", "Flores"))

	w := env.do(http.MethodPost, "/api/contracts/"+c.ID+"/sign", nil)
	expectStatus(t, w, http.StatusUnprocessableEntity)
	missing, _ := decode(t, w)["missing"].([]any)
	if len(missing) != 2 {
		t.Fatalf("Expected signature and variant problems, got %v", missing)
	}
	if missing[0] != model.ErrNoSignature.Error() || missing[1] != model.ErrNoVariant.Error() {
		t.Errorf("Unexpected problems: %v", missing)
	}
}

func TestContractHandlerSignFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.draft(t, env.employee(t, "11111111", "Ana", "Flores"))
	base := "/api/contracts/" + c.ID

	expectStatus(t, env.do(http.MethodPut, base+"/variant", map[string]any{"variante": "temporada"}), http.StatusOK)

	w := env.do(http.MethodPost, base+"/signature", map[string]any{"signature": "not-an-image"})
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(http.MethodPost, base+"/signature", map[string]any{"signature": testSignature})
	expectStatus(t, w, http.StatusOK)
	if decode(t, w)["firma_id"] == "" {
		t.Error("Expected a signature id")
	}

	w = env.do(http.MethodGet, base+"/editor", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode(t, w)["mode"]; got != "drafting" {
		t.Errorf("Expected drafting mode, got %v", got)
	}

	w = env.do(http.MethodPost, base+"/sign", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode(t, w)["estado"]; got != string(model.StateSigned) {
		t.Errorf("Expected signed state, got %v", got)
	}

	w = env.do(http.MethodGet, base+"/editor", nil)
	expectStatus(t, w, http.StatusOK)
	view := decode(t, w)
	if view["mode"] != "viewing" || view["read_only"] != true {
		t.Errorf("Expected read-only viewing mode, got %v", view)
	}

	// A signed contract is frozen.
	expectStatus(t, env.do(http.MethodPut, base+"/payloads/induccion", `{"fecha":"2024-01-15"}`), http.StatusConflict)
	expectStatus(t, env.do(http.MethodPost, base+"/sign", nil), http.StatusConflict)
	expectStatus(t, env.do(http.MethodPost, base+"/signature", map[string]any{"signature": testSignature}), http.StatusConflict)
}

func TestContractHandlerCompletion(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.draft(t, env.employee(t, "11111111", "Ana", "Flores"))

	w := env.do(http.MethodGet, "/api/contracts/"+c.ID+"/completion", nil)
	expectStatus(t, w, http.StatusOK)
	body := decode(t, w)
	if body["complete"] != false {
		t.Errorf("Expected incomplete contract, got %v", body["complete"])
	}
	tabs, _ := body["tabs"].(map[string]any)
	if _, ok := tabs[string(model.DocContratoTemporada)]; !ok {
		t.Error("Expected both contract tabs while no variant is chosen")
	}
	pages, _ := body["ficha_pages"].([]any)
	if len(pages) != 3 {
		t.Errorf("Expected 3 ficha pages, got %d", len(pages))
	}
}

func TestContractHandlerDocumentPDF(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.signed(t, env.employee(t, "11111111", "Ana", "Flores"), model.VariantIntermitente)
	base := "/api/contracts/" + c.ID + "/documents/"

	w := env.do(http.MethodGet, base+"induccion/pdf", nil)
	expectStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Expected application/pdf, got %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Error("Expected a PDF body")
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "Ana_Flores_") {
		t.Errorf("Expected employee in the file name, got %q", cd)
	}

	tests := []struct {
		name       string
		doc        string
		wantStatus int
	}{
		{"other variant", "contrato-temporada", http.StatusConflict},
		{"unknown document", "nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodGet, base+tt.doc+"/pdf", nil)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestContractHandlerDocumentsZIP(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.signed(t, env.employee(t, "11111111", "Ana", "Flores"), model.VariantTemporada)

	w := env.do(http.MethodGet, "/api/contracts/"+c.ID+"/documents.zip", nil)
	expectStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Expected application/zip, got %q", ct)
	}

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	// Every document except the intermittent contract.
	if len(zr.File) != 12 {
		t.Errorf("Expected 12 documents, got %d", len(zr.File))
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".pdf") {
			t.Errorf("Expected PDF entries, got %s", f.Name)
		}
	}
}

func TestContractHandlerNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{
		"/api/contracts/missing",
		"/api/contracts/missing/completion",
		"/api/contracts/missing/editor",
		"/api/contracts/missing/documents.zip",
	} {
		if w := env.do(http.MethodGet, path, nil); w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
	}
}
