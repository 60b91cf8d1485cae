package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
)

func TestSigningSubmitToContract(t *testing.T) {
	store := newTestStore(t)
	hub := NewMemoryHub()
	svc := NewSigningService(store, hub)
	ctx := context.Background()

	e := createEmployee(t, store, "12345678", "Lucia", "Quispe")
	c := &model.Contract{EmployeeID: e.ID}
	if err := store.CreateContract(ctx, c); err != nil {
		t.Fatalf("CreateContract failed: %v", err)
	}

	ch, stop := hub.Subscribe(c.ID)
	defer stop()

	issued := time.Now().Add(-time.Minute)
	sig, err := svc.Submit(ctx, SignRequest{ContractID: c.ID, EmployeeID: e.ID, IssuedAt: issued}, testSignature)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if sig.Source != model.SignatureSourceRemote {
		t.Errorf("Expected remote source, got %s", sig.Source)
	}

	d, ok := receive(t, ch)
	if !ok {
		t.Fatal("Expected a delivery for the contract")
	}
	if d.SignatureID != sig.ID || !d.LinkIssuedAt.Equal(issued) {
		t.Errorf("Unexpected delivery %+v", d)
	}

	stored, err := store.GetContract(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetContract failed: %v", err)
	}
	if stored.SignatureID == nil || *stored.SignatureID != sig.ID {
		t.Error("Expected signature to be attached to the contract")
	}
	active, err := store.ActiveSignature(ctx, e.ID)
	if err != nil || active.ID != sig.ID {
		t.Errorf("Expected submitted signature to be active, got %v", err)
	}
}

func TestSigningSubmitToEmployee(t *testing.T) {
	store := newTestStore(t)
	hub := NewMemoryHub()
	svc := NewSigningService(store, hub)
	e := createEmployee(t, store, "12345678", "Lucia", "Quispe")

	ch, stop := hub.Subscribe(e.ID)
	defer stop()

	if _, err := svc.Submit(context.Background(), SignRequest{EmployeeID: e.ID}, testSignature); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, ok := receive(t, ch); !ok {
		t.Error("Expected a delivery for the employee")
	}
}

func TestSigningSubmitKeepsNewerLocalSignature(t *testing.T) {
	store := newTestStore(t)
	hub := NewMemoryHub()
	svc := NewSigningService(store, hub)
	ctx := context.Background()

	e := createEmployee(t, store, "12345678", "Lucia", "Quispe")
	c := &model.Contract{EmployeeID: e.ID}
	if err := store.CreateContract(ctx, c); err != nil {
		t.Fatalf("CreateContract failed: %v", err)
	}
	issued := time.Now().Add(-time.Minute)

	local, _, err := svc.CaptureLocal(ctx, c.ID, testSignature)
	if err != nil {
		t.Fatalf("CaptureLocal failed: %v", err)
	}

	ch, stop := hub.Subscribe(c.ID)
	defer stop()

	_, err = svc.Submit(ctx, SignRequest{ContractID: c.ID, EmployeeID: e.ID, IssuedAt: issued}, testSignature)
	if !errors.Is(err, model.ErrLocalSignatureNewer) {
		t.Fatalf("Expected ErrLocalSignatureNewer, got %v", err)
	}
	if _, ok := receive(t, ch); ok {
		t.Error("Expected no delivery for a refused signature")
	}

	stored, err := store.GetContract(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetContract failed: %v", err)
	}
	if stored.SignatureID == nil || *stored.SignatureID != local.ID {
		t.Errorf("Expected local signature %s to stay linked, got %v", local.ID, stored.SignatureID)
	}
	active, err := store.ActiveSignature(ctx, e.ID)
	if err != nil || active.ID != local.ID {
		t.Errorf("Expected local signature to stay active, got %v", err)
	}

	// A link issued after the local capture may replace it.
	sig, err := svc.Submit(ctx, SignRequest{ContractID: c.ID, EmployeeID: e.ID, IssuedAt: time.Now().Add(time.Second)}, testSignature)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	stored, err = store.GetContract(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetContract failed: %v", err)
	}
	if stored.SignatureID == nil || *stored.SignatureID != sig.ID {
		t.Errorf("Expected remote signature %s linked, got %v", sig.ID, stored.SignatureID)
	}
}

func TestSigningSubmitToEmployeeKeepsNewerLocalSignature(t *testing.T) {
	store := newTestStore(t)
	svc := NewSigningService(store, NewMemoryHub())
	ctx := context.Background()

	e := createEmployee(t, store, "12345678", "Lucia", "Quispe")
	c := &model.Contract{EmployeeID: e.ID}
	if err := store.CreateContract(ctx, c); err != nil {
		t.Fatalf("CreateContract failed: %v", err)
	}
	if _, _, err := svc.CaptureLocal(ctx, c.ID, testSignature); err != nil {
		t.Fatalf("CaptureLocal failed: %v", err)
	}

	_, err := svc.Submit(ctx, SignRequest{EmployeeID: e.ID, IssuedAt: time.Now().Add(-time.Minute)}, testSignature)
	if !errors.Is(err, model.ErrLocalSignatureNewer) {
		t.Errorf("Expected ErrLocalSignatureNewer, got %v", err)
	}
}

func TestSigningSubmitRejects(t *testing.T) {
	store := newTestStore(t)
	svc := NewSigningService(store, NewMemoryHub())
	ctx := context.Background()

	e := createEmployee(t, store, "12345678", "Lucia", "Quispe")
	other := createEmployee(t, store, "87654321", "Pedro", "Rios")
	signed := signedContract(t, store, e, model.VariantIntermitente, time.Now())

	tests := []struct {
		name    string
		req     SignRequest
		data    string
		wantErr error
	}{
		{"signed contract", SignRequest{ContractID: signed.ID, EmployeeID: e.ID}, testSignature, model.ErrContractSigned},
		{"other employee", SignRequest{ContractID: signed.ID, EmployeeID: other.ID}, testSignature, ErrLinkMismatch},
		{"unknown employee", SignRequest{EmployeeID: "missing"}, testSignature, ErrNotFound},
		{"bad image", SignRequest{EmployeeID: other.ID}, "hello", model.ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Submit(ctx, tt.req, tt.data); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSigningCaptureLocal(t *testing.T) {
	store := newTestStore(t)
	svc := NewSigningService(store, NewMemoryHub())
	ctx := context.Background()

	e := createEmployee(t, store, "12345678", "Lucia", "Quispe")
	c := &model.Contract{EmployeeID: e.ID}
	if err := store.CreateContract(ctx, c); err != nil {
		t.Fatalf("CreateContract failed: %v", err)
	}

	sig, updated, err := svc.CaptureLocal(ctx, c.ID, testSignature)
	if err != nil {
		t.Fatalf("CaptureLocal failed: %v", err)
	}
	if sig.Source != model.SignatureSourceLocal {
		t.Errorf("Expected local source, got %s", sig.Source)
	}
	if updated.SignatureID == nil || *updated.SignatureID != sig.ID {
		t.Error("Expected signature attached to the contract")
	}
	if _, _, err := svc.CaptureLocal(ctx, "missing", testSignature); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSignRequestTarget(t *testing.T) {
	if got := (SignRequest{ContractID: "c", EmployeeID: "e"}).Target(); got != "c" {
		t.Errorf("Expected c, got %s", got)
	}
	if got := (SignRequest{EmployeeID: "e"}).Target(); got != "e" {
		t.Errorf("Expected e, got %s", got)
	}
}
