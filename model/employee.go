package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidDNI    = errors.New("DNI must be exactly 8 digits")
	ErrMissingNombre = errors.New("employee name is required")
)

// Employee is a "cliente" record. DNI is unique across employees.
type Employee struct {
	ID                 string    `gorm:"type:char(36);primaryKey" json:"id"`
	DNI                string    `gorm:"size:8;uniqueIndex;not null" json:"dni"`
	Nombres            string    `gorm:"size:120;not null" json:"nombres"`
	ApellidoPaterno    string    `gorm:"size:120" json:"apellido_paterno"`
	ApellidoMaterno    string    `gorm:"size:120" json:"apellido_materno"`
	Direccion          string    `gorm:"size:255" json:"direccion"`
	Distrito           string    `gorm:"size:120" json:"distrito"`
	Provincia          string    `gorm:"size:120" json:"provincia"`
	Departamento       string    `gorm:"size:120" json:"departamento"`
	Cargo              string    `gorm:"size:120" json:"cargo"`
	FechaIngreso       string    `gorm:"size:10" json:"fecha_ingreso"`
	Sueldo             float64   `gorm:"type:decimal(12,2)" json:"sueldo"`
	SistemaPensionario string    `gorm:"size:10" json:"sistema_pensionario"` // ONP, AFP
	AFPNombre          string    `gorm:"size:60" json:"afp_nombre,omitempty"`
	CUSPP              string    `gorm:"size:20" json:"cuspp,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Employee) TableName() string { return "clientes" }

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// FullName joins given names and surnames, skipping blanks.
func (e *Employee) FullName() string {
	return joinNonBlank(e.Nombres, e.ApellidoPaterno, e.ApellidoMaterno)
}

// Surnames returns both surnames, skipping blanks.
func (e *Employee) Surnames() string {
	return joinNonBlank(e.ApellidoPaterno, e.ApellidoMaterno)
}

// Validate checks the DNI and the given names.
func (e *Employee) Validate() error {
	if err := ValidateDNI(e.DNI); err != nil {
		return err
	}
	if strings.TrimSpace(e.Nombres) == "" {
		return ErrMissingNombre
	}
	return nil
}

// ValidateDNI checks the national id is an 8-digit numeric string.
func ValidateDNI(dni string) error {
	if len(dni) != 8 {
		return ErrInvalidDNI
	}
	for _, r := range dni {
		if r < '0' || r > '9' {
			return ErrInvalidDNI
		}
	}
	return nil
}

func joinNonBlank(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
