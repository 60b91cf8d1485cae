package catalog

import (
	"strings"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
)

// FieldSetPages is the number of pages of the ficha de datos editor.
const FieldSetPages = 3

// MissingField names a required field that has no value yet. Page is the
// 1-based editor page the field lives on.
type MissingField struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Page  int    `json:"page"`
}

type requirement struct {
	field   string
	label   string
	page    int
	present func(fs model.FieldSet) bool
}

// Address, district, province, department and marital status are filled
// from the employee record or RENIEC and are never required.
var requirements = []requirement{
	{"cargo", "Cargo", 1, text(func(fs model.FieldSet) string { return fs.Cargo })},
	{"fecha_inicio", "Fecha de inicio", 1, text(func(fs model.FieldSet) string { return fs.FechaInicio })},
	{"fecha_fin", "Fecha de término", 1, text(func(fs model.FieldSet) string { return fs.FechaFin })},
	{"fecha_nacimiento", "Fecha de nacimiento", 1, text(func(fs model.FieldSet) string { return fs.FechaNacimiento })},
	{"lugar_nacimiento", "Lugar de nacimiento", 1, text(func(fs model.FieldSet) string { return fs.LugarNacimiento })},
	{"nacionalidad", "Nacionalidad", 1, text(func(fs model.FieldSet) string { return fs.Nacionalidad })},
	{"telefono", "Teléfono", 1, text(func(fs model.FieldSet) string { return fs.Telefono })},
	{"educacion", "Formación académica", 2, func(fs model.FieldSet) bool {
		for _, r := range fs.Educacion {
			if r.Populated() {
				return true
			}
		}
		return false
	}},
	{"familia", "Datos familiares", 2, func(fs model.FieldSet) bool {
		if fs.FamiliaNoAplica {
			return true
		}
		for _, r := range fs.Familia {
			if r.Populated() {
				return true
			}
		}
		return false
	}},
	{"banco.banco", "Banco", 3, text(func(fs model.FieldSet) string { return fs.Banco.Banco })},
	{"banco.numero_cuenta", "Número de cuenta", 3, text(func(fs model.FieldSet) string { return fs.Banco.NumeroCuenta })},
}

func text(get func(model.FieldSet) string) func(model.FieldSet) bool {
	return func(fs model.FieldSet) bool { return strings.TrimSpace(get(fs)) != "" }
}

// MissingFields lists the required fields of fs that are still empty, in
// editor order.
func MissingFields(fs model.FieldSet) []MissingField {
	var out []MissingField
	for _, r := range requirements {
		if !r.present(fs) {
			out = append(out, MissingField{Field: r.field, Label: r.label, Page: r.page})
		}
	}
	return out
}

// MissingByPage splits MissingFields across the editor pages.
func MissingByPage(fs model.FieldSet) [FieldSetPages][]MissingField {
	var pages [FieldSetPages][]MissingField
	for _, m := range MissingFields(fs) {
		pages[m.Page-1] = append(pages[m.Page-1], m)
	}
	return pages
}
