package model

import (
	"errors"
	"testing"
)

func TestValidateDNI(t *testing.T) {
	tests := []struct {
		dni   string
		valid bool
	}{
		{"12345678", true},
		{"00000001", true},
		{"1234567", false},
		{"123456789", false},
		{"1234567a", false},
		{"", false},
		{"１２３４５６７８", false},
	}

	for _, tt := range tests {
		err := ValidateDNI(tt.dni)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateDNI(%q) error = %v, expected valid=%v", tt.dni, err, tt.valid)
		}
	}
}

func TestEmployeeFullName(t *testing.T) {
	e := &Employee{Nombres: " Ana Lucía ", ApellidoPaterno: "Quispe", ApellidoMaterno: ""}
	if got := e.FullName(); got != "Ana Lucía Quispe" {
		t.Errorf("Expected 'Ana Lucía Quispe', got '%s'", got)
	}
	if got := e.Surnames(); got != "Quispe" {
		t.Errorf("Expected 'Quispe', got '%s'", got)
	}
}

func TestEmployeeValidate(t *testing.T) {
	if err := (&Employee{DNI: "12345678"}).Validate(); !errors.Is(err, ErrMissingNombre) {
		t.Errorf("Expected ErrMissingNombre, got %v", err)
	}
	if err := (&Employee{DNI: "123", Nombres: "Ana"}).Validate(); !errors.Is(err, ErrInvalidDNI) {
		t.Errorf("Expected ErrInvalidDNI, got %v", err)
	}
	if err := (&Employee{DNI: "12345678", Nombres: "Ana"}).Validate(); err != nil {
		t.Errorf("Expected valid employee, got %v", err)
	}
}

func TestPrefillFieldSet(t *testing.T) {
	e := &Employee{
		Cargo:        "Operario de campo",
		FechaIngreso: "2024-03-01",
		Direccion:    "Av. Grau 123",
		Distrito:     "Ica",
		Sueldo:       1130,
	}
	fs := PrefillFieldSet(e)
	if fs.Cargo != e.Cargo || fs.FechaInicio != e.FechaIngreso || fs.Direccion != e.Direccion {
		t.Errorf("Expected employee data in field set, got %+v", fs)
	}
	if fs.Sueldo != "1130.00" {
		t.Errorf("Expected sueldo 1130.00, got %s", fs.Sueldo)
	}
}

func TestContractFieldSetRoundTrip(t *testing.T) {
	c := &Contract{}
	fs := FieldSet{Cargo: "Empacador", Familia: []FamilyRow{{Parentesco: "Hijo", Nombres: "Luis"}}}
	if err := c.SetFieldSet(fs); err != nil {
		t.Fatalf("SetFieldSet failed: %v", err)
	}
	got, err := c.FieldSet()
	if err != nil {
		t.Fatalf("FieldSet failed: %v", err)
	}
	if got.Cargo != "Empacador" || len(got.Familia) != 1 {
		t.Errorf("Expected field set back, got %+v", got)
	}

	c.Estado = StateSigned
	if err := c.SetFieldSet(fs); !errors.Is(err, ErrContractSigned) {
		t.Errorf("Expected frozen field set once signed, got %v", err)
	}
}

func TestSignatureValidate(t *testing.T) {
	ok := &Signature{DataURI: "data:image/png;base64,iVBORw0KGgo="}
	if err := ok.Validate(); err != nil {
		t.Errorf("Expected valid signature, got %v", err)
	}
	bad := &Signature{DataURI: "https://example.com/firma.png"}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Expected ErrInvalidSignature, got %v", err)
	}
}

func TestSignatureDeliveryMatches(t *testing.T) {
	d := SignatureDelivery{Type: SignatureDeliveryType, ContractID: "c1", EmployeeID: "e1"}

	tests := []struct {
		id   string
		want bool
	}{
		{"c1", true},
		{"e1", true},
		{"c2", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := d.Matches(tt.id); got != tt.want {
			t.Errorf("Matches(%q) = %v, expected %v", tt.id, got, tt.want)
		}
	}

	other := SignatureDelivery{Type: "OTRO", ContractID: "c1"}
	if other.Matches("c1") {
		t.Error("Expected non-signature message to never match")
	}
}

// Only the editor showing the signed contract accepts the delivery.
