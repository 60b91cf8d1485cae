package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldSet is the "ficha de datos": the editable field superset that seeds
// every document template. Stored as the ficha-datos payload.
type FieldSet struct {
	Cargo           string `json:"cargo"`
	FechaInicio     string `json:"fecha_inicio"`
	FechaFin        string `json:"fecha_fin"`
	FechaNacimiento string `json:"fecha_nacimiento"`
	LugarNacimiento string `json:"lugar_nacimiento"`
	Nacionalidad    string `json:"nacionalidad"`
	Direccion       string `json:"direccion"`
	Distrito        string `json:"distrito"`
	Provincia       string `json:"provincia"`
	Departamento    string `json:"departamento"`
	EstadoCivil     string `json:"estado_civil"`
	Telefono        string `json:"telefono"`
	Email           string `json:"email"`
	Sueldo          string `json:"sueldo"`

	Educacion       []EducationRow `json:"educacion"`
	Familia         []FamilyRow    `json:"familia"`
	FamiliaNoAplica bool           `json:"familia_no_aplica"`
	Experiencia     []WorkRow      `json:"experiencia"`
	Banco           BankAccount    `json:"banco"`
}

type EducationRow struct {
	Nivel        string `json:"nivel"`
	Institucion  string `json:"institucion"`
	Especialidad string `json:"especialidad"`
	Anio         string `json:"anio"`
}

type FamilyRow struct {
	Parentesco      string `json:"parentesco"`
	Nombres         string `json:"nombres"`
	DNI             string `json:"dni"`
	FechaNacimiento string `json:"fecha_nacimiento"`
}

type WorkRow struct {
	Empresa string `json:"empresa"`
	Cargo   string `json:"cargo"`
	Desde   string `json:"desde"`
	Hasta   string `json:"hasta"`
}

type BankAccount struct {
	Banco        string `json:"banco"`
	NumeroCuenta string `json:"numero_cuenta"`
	CCI          string `json:"cci"`
}

func (r EducationRow) Populated() bool {
	return anyNonBlank(r.Nivel, r.Institucion, r.Especialidad, r.Anio)
}

func (r FamilyRow) Populated() bool {
	return anyNonBlank(r.Parentesco, r.Nombres, r.DNI, r.FechaNacimiento)
}

func (r WorkRow) Populated() bool {
	return anyNonBlank(r.Empresa, r.Cargo, r.Desde, r.Hasta)
}

// PrefillFieldSet seeds a new draft from the employee record.
func PrefillFieldSet(e *Employee) FieldSet {
	fs := FieldSet{
		Cargo:        e.Cargo,
		FechaInicio:  e.FechaIngreso,
		Direccion:    e.Direccion,
		Distrito:     e.Distrito,
		Provincia:    e.Provincia,
		Departamento: e.Departamento,
		Nacionalidad: "Peruana",
	}
	if e.Sueldo > 0 {
		fs.Sueldo = fmt.Sprintf("%.2f", e.Sueldo)
	}
	return fs
}

// FieldSet decodes the ficha-datos payload. An empty payload gives a zero FieldSet.
func (c *Contract) FieldSet() (FieldSet, error) {
	var fs FieldSet
	if !PayloadPresent(c.FichaDatos) {
		return fs, nil
	}
	if err := json.Unmarshal(c.FichaDatos, &fs); err != nil {
		return fs, fmt.Errorf("failed to decode ficha de datos: %w", err)
	}
	return fs, nil
}

// SetFieldSet stores fs as the ficha-datos payload.
func (c *Contract) SetFieldSet(fs FieldSet) error {
	raw, err := json.Marshal(fs)
	if err != nil {
		return fmt.Errorf("failed to encode ficha de datos: %w", err)
	}
	return c.SetPayload(DocFichaDatos, raw)
}

func anyNonBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
