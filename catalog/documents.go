package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pdfdoc"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/render"
)

func documents() []Document {
	return []Document{
		{ID: model.DocFichaDatos, Label: "Ficha de Datos", Pages: 3, build: buildFicha},
		{ID: model.DocContratoIntermitente, Label: "Contrato Intermitente", Pages: 3, Group: GroupContrato, build: buildContrato("INTERMITENTE")},
		{ID: model.DocContratoTemporada, Label: "Contrato por Temporada", Pages: 3, Group: GroupContrato, build: buildContrato("DE TEMPORADA")},
		{ID: model.DocSistemaPensionario, Label: "Sistema Pensionario", Pages: 1, Orientation: pdfdoc.Landscape, build: buildPensionario},
		{ID: model.DocReglamentoInterno, Label: "Reglamento Interno", Pages: 2, build: buildReglamento},
		{ID: model.DocConsentimientoInformado, Label: "Consentimiento Informado", Pages: 5, build: buildConsentimiento},
		{ID: model.DocInduccion, Label: "Induccion", Pages: 1, build: buildInduccion},
		{ID: model.DocCuentaBancaria, Label: "Cuenta Bancaria", Pages: 1, HalfPage: true, build: buildCuentaBancaria},
		{ID: model.DocConflictoIntereses, Label: "Conflicto de Intereses", Pages: 1, build: buildConflicto},
		{ID: model.DocConfidencialidad, Label: "Confidencialidad", Pages: 2, build: buildConfidencialidad},
		{ID: model.DocAntisoborno, Label: "Antisoborno", Pages: 1, build: buildAntisoborno},
		{ID: model.DocDeclaracionParentesco, Label: "Declaracion de Parentesco", Pages: 1, build: buildParentesco},
		{ID: model.DocDeclaracionBienes, Label: "Declaracion de Bienes", Pages: 1, build: buildBienes},
	}
}

func header(l *render.Layout, e Employer, title string) {
	l.Small(fmt.Sprintf("%s  RUC %s", e.Name, e.RUC))
	l.Title(title)
}

func identity(l *render.Layout, in Input) {
	l.Field("Nombres y apellidos", in.Employee.FullName())
	l.Field("DNI", in.Employee.DNI)
}

func sign(l *render.Layout, in Input) {
	l.Signature(in.Signature, in.Employee.FullName(), in.Employee.DNI)
}

func place(e Employer, in Input) string {
	return fmt.Sprintf("%s, %s", orDefault(e.City, "Lima"), docDate(in))
}

func docDate(in Input) string {
	return str(in.Payload, "fecha", orDefault(in.FieldSet.FechaInicio, "____/____/______"))
}

func buildFicha(l *render.Layout, e Employer, in Input) {
	fs := in.FieldSet
	header(l, e, "FICHA DE DATOS DEL TRABAJADOR")
	l.Heading("Datos personales")
	identity(l, in)
	l.Field("Fecha de nacimiento", fs.FechaNacimiento)
	l.Field("Lugar de nacimiento", fs.LugarNacimiento)
	l.Field("Nacionalidad", fs.Nacionalidad)
	l.Field("Estado civil", fs.EstadoCivil)
	l.Field("Dirección", fs.Direccion)
	l.Field("Distrito / Provincia / Departamento", strings.Join(nonBlank(fs.Distrito, fs.Provincia, fs.Departamento), " / "))
	l.Field("Teléfono", fs.Telefono)
	l.Field("Correo electrónico", fs.Email)
	l.Heading("Datos laborales")
	l.Field("Cargo", fs.Cargo)
	l.Field("Fecha de inicio", fs.FechaInicio)
	l.Field("Fecha de término", fs.FechaFin)
	l.Field("Remuneración", fs.Sueldo)

	l.NewPage()
	header(l, e, "FICHA DE DATOS DEL TRABAJADOR")
	l.Heading("Formación académica")
	edu := make([][]string, 0, len(fs.Educacion))
	for _, r := range fs.Educacion {
		if r.Populated() {
			edu = append(edu, []string{r.Nivel, r.Institucion, r.Especialidad, r.Anio})
		}
	}
	l.Table([]string{"Nivel", "Institución", "Especialidad", "Año"}, edu)
	l.Heading("Datos familiares")
	if fs.FamiliaNoAplica {
		l.Paragraph("El trabajador declara no tener familiares directos que consignar.")
	} else {
		fam := make([][]string, 0, len(fs.Familia))
		for _, r := range fs.Familia {
			if r.Populated() {
				fam = append(fam, []string{r.Parentesco, r.Nombres, r.DNI, r.FechaNacimiento})
			}
		}
		l.Table([]string{"Parentesco", "Nombres", "DNI", "Nacimiento"}, fam)
	}

	l.NewPage()
	header(l, e, "FICHA DE DATOS DEL TRABAJADOR")
	l.Heading("Experiencia laboral")
	work := make([][]string, 0, len(fs.Experiencia))
	for _, r := range fs.Experiencia {
		if r.Populated() {
			work = append(work, []string{r.Empresa, r.Cargo, r.Desde, r.Hasta})
		}
	}
	l.Table([]string{"Empresa", "Cargo", "Desde", "Hasta"}, work)
	l.Heading("Cuenta para abono de haberes")
	l.Field("Banco", fs.Banco.Banco)
	l.Field("Número de cuenta", fs.Banco.NumeroCuenta)
	l.Field("CCI", fs.Banco.CCI)
	l.Space(12)
	l.Paragraph("Declaro bajo juramento que los datos consignados son verdaderos.")
	l.Paragraph(place(e, in))
	sign(l, in)
}

func buildContrato(kind string) func(*render.Layout, Employer, Input) {
	return func(l *render.Layout, e Employer, in Input) {
		fs := in.FieldSet
		title := "CONTRATO DE TRABAJO " + kind
		header(l, e, title)
		l.Paragraph(fmt.Sprintf(
			"Conste por el presente documento el contrato de trabajo sujeto a modalidad que celebran, de una parte, %s, con RUC %s y domicilio en %s, debidamente representada por %s, a quien se denominará EL EMPLEADOR; y de la otra parte, %s, identificado con DNI %s, con domicilio en %s, a quien se denominará EL TRABAJADOR, en los términos siguientes:",
			e.Name, e.RUC, orDefault(e.Address, "-"), orDefault(e.Representative, "su representante legal"),
			in.Employee.FullName(), in.Employee.DNI, orDefault(fs.Direccion, in.Employee.Direccion),
		))
		l.Heading("PRIMERO: Objeto")
		l.Paragraph(fmt.Sprintf("EL EMPLEADOR contrata a EL TRABAJADOR para desempeñar el cargo de %s, en las labores propias de la actividad agrícola de la empresa.",
			orDefault(str(in.Payload, "cargo", fs.Cargo), "________________")))
		l.Heading("SEGUNDO: Plazo")
		l.Paragraph(fmt.Sprintf("El presente contrato rige desde el %s hasta el %s%s.",
			orDefault(str(in.Payload, "fecha_inicio", fs.FechaInicio), "________"),
			orDefault(str(in.Payload, "fecha_fin", fs.FechaFin), "________"),
			campaign(in.Payload)))

		l.NewPage()
		header(l, e, title)
		l.Heading("TERCERO: Remuneración")
		l.Paragraph(fmt.Sprintf("EL TRABAJADOR percibirá una remuneración de S/ %s, sujeta a los descuentos de ley.",
			orDefault(str(in.Payload, "remuneracion", fs.Sueldo), "________")))
		l.Heading("CUARTO: Jornada")
		l.Paragraph(fmt.Sprintf("La jornada de trabajo será de %s, conforme al horario que establezca EL EMPLEADOR.",
			str(in.Payload, "jornada", "48 horas semanales")))
		l.Heading("QUINTO: Obligaciones")
		l.Paragraph("EL TRABAJADOR se obliga a cumplir el Reglamento Interno de Trabajo, las normas de seguridad y salud en el trabajo y las disposiciones de inocuidad alimentaria de la empresa.")

		l.NewPage()
		header(l, e, title)
		l.Heading("SEXTO: Disposiciones finales")
		l.Paragraph("En todo lo no previsto por el presente contrato se aplicarán las disposiciones del régimen laboral agrario y demás normas vigentes.")
		l.Paragraph("Las partes firman en señal de conformidad.")
		l.Paragraph(place(e, in))
		sign(l, in)
	}
}

func campaign(p map[string]any) string {
	if c := str(p, "campania", ""); c != "" {
		return ", correspondiente a la campaña " + c
	}
	return ""
}

func buildPensionario(l *render.Layout, e Employer, in Input) {
	header(l, e, "ELECCIÓN DEL SISTEMA PENSIONARIO")
	identity(l, in)
	choice := strings.ToUpper(str(in.Payload, "eleccion", in.Employee.SistemaPensionario))
	l.Paragraph("De conformidad con la Ley N.° 28991, declaro haber recibido el boletín informativo sobre los sistemas pensionarios y elijo:")
	l.Checkbox("Sistema Nacional de Pensiones (ONP)", choice == "ONP")
	l.Checkbox("Sistema Privado de Pensiones (AFP)", choice == "AFP")
	if choice == "AFP" {
		l.Field("AFP", str(in.Payload, "afp", in.Employee.AFPNombre))
		l.Field("CUSPP", str(in.Payload, "cuspp", in.Employee.CUSPP))
	}
	l.Paragraph(place(e, in))
	sign(l, in)
}

func buildReglamento(l *render.Layout, e Employer, in Input) {
	header(l, e, "CONSTANCIA DE ENTREGA DEL REGLAMENTO INTERNO DE TRABAJO")
	identity(l, in)
	l.Paragraph("Declaro haber recibido un ejemplar del Reglamento Interno de Trabajo y del Reglamento Interno de Seguridad y Salud en el Trabajo, los cuales me comprometo a leer y cumplir.")
	l.Paragraph("Los reglamentos regulan la jornada, el registro de asistencia, los permisos y licencias, las medidas disciplinarias y las normas de seguridad aplicables en campo y planta.")

	l.NewPage()
	header(l, e, "CONSTANCIA DE ENTREGA DEL REGLAMENTO INTERNO DE TRABAJO")
	l.Paragraph("Asimismo, declaro conocer que el incumplimiento de las disposiciones contenidas en dichos reglamentos podrá dar lugar a las sanciones previstas en los mismos.")
	l.Paragraph(place(e, in))
	sign(l, in)
}

var consentSections = []struct{ title, body string }{
	{"Finalidad", "Autorizo a EL EMPLEADOR a realizar los exámenes médicos ocupacionales de ingreso, periódicos y de retiro previstos en la normativa de seguridad y salud en el trabajo."},
	{"Alcance", "Los exámenes comprenden evaluación clínica, pruebas de laboratorio y demás evaluaciones que el médico ocupacional considere necesarias según el puesto."},
	{"Confidencialidad", "Los resultados serán tratados de forma confidencial y sólo se comunicará a EL EMPLEADOR la condición de aptitud para el puesto."},
	{"Datos personales", "Autorizo el tratamiento de mis datos personales y de salud conforme a la Ley N.° 29733, exclusivamente para fines de gestión laboral y de salud ocupacional."},
}

func buildConsentimiento(l *render.Layout, e Employer, in Input) {
	for i, s := range consentSections {
		if i > 0 {
			l.NewPage()
		}
		header(l, e, "CONSENTIMIENTO INFORMADO")
		if i == 0 {
			identity(l, in)
		}
		l.Heading(fmt.Sprintf("%d. %s", i+1, s.title))
		l.Paragraph(s.body)
	}
	l.NewPage()
	header(l, e, "CONSENTIMIENTO INFORMADO")
	l.Paragraph("Habiendo sido informado de lo anterior, otorgo mi consentimiento de manera libre y voluntaria.")
	l.Paragraph(place(e, in))
	sign(l, in)
}

func buildInduccion(l *render.Layout, e Employer, in Input) {
	header(l, e, "CONSTANCIA DE INDUCCIÓN")
	identity(l, in)
	l.Field("Cargo", in.FieldSet.Cargo)
	l.Paragraph("Declaro haber recibido la inducción general sobre los siguientes temas:")
	topics := strList(in.Payload, "temas")
	if len(topics) == 0 {
		topics = []string{"Política de seguridad y salud en el trabajo", "Riesgos del puesto y medidas de control", "Uso de equipos de protección personal", "Plan de respuesta ante emergencias", "Buenas prácticas agrícolas e inocuidad"}
	}
	for _, t := range topics {
		l.Checkbox(t, true)
	}
	l.Paragraph(place(e, in))
	sign(l, in)
}

func buildCuentaBancaria(l *render.Layout, e Employer, in Input) {
	b := in.FieldSet.Banco
	header(l, e, "AUTORIZACIÓN DE ABONO EN CUENTA")
	identity(l, in)
	l.Paragraph("Autorizo a EL EMPLEADOR a abonar mis remuneraciones y beneficios sociales en la siguiente cuenta de mi titularidad:")
	l.Field("Banco", str(in.Payload, "banco", b.Banco))
	l.Field("Número de cuenta", str(in.Payload, "numero_cuenta", b.NumeroCuenta))
	l.Field("CCI", str(in.Payload, "cci", b.CCI))
	sign(l, in)
}

func buildConflicto(l *render.Layout, e Employer, in Input) {
	header(l, e, "DECLARACIÓN JURADA DE CONFLICTO DE INTERESES")
	identity(l, in)
	has := flag(in.Payload, "tiene_conflicto")
	l.Paragraph("Declaro bajo juramento que, a la fecha:")
	l.Checkbox("No tengo situaciones que generen conflicto de intereses con la empresa.", !has)
	l.Checkbox("Tengo la(s) siguiente(s) situación(es) de posible conflicto de intereses:", has)
	if has {
		l.Paragraph(str(in.Payload, "detalle", ""))
	}
	l.Paragraph(place(e, in))
	sign(l, in)
}

func buildConfidencialidad(l *render.Layout, e Employer, in Input) {
	header(l, e, "ACUERDO DE CONFIDENCIALIDAD")
	identity(l, in)
	l.Paragraph("EL TRABAJADOR se obliga a guardar reserva sobre toda información técnica, comercial, financiera o de cualquier otra naturaleza a la que tenga acceso con motivo de sus labores.")
	l.Paragraph("Esta obligación se mantiene vigente durante la relación laboral y hasta dos años después de su extinción.")

	l.NewPage()
	header(l, e, "ACUERDO DE CONFIDENCIALIDAD")
	l.Paragraph("El incumplimiento de este acuerdo constituye falta grave y faculta a EL EMPLEADOR a iniciar las acciones legales correspondientes.")
	l.Paragraph(place(e, in))
	sign(l, in)
}

func buildAntisoborno(l *render.Layout, e Employer, in Input) {
	header(l, e, "COMPROMISO ANTISOBORNO")
	identity(l, in)
	l.Paragraph("Me comprometo a no ofrecer, prometer, entregar, aceptar ni solicitar ventajas indebidas de ninguna clase, directa o indirectamente, en el ejercicio de mis funciones, y a reportar cualquier acto de soborno del que tome conocimiento.")
	l.Paragraph(place(e, in))
	sign(l, in)
}

func buildParentesco(l *render.Layout, e Employer, in Input) {
	header(l, e, "DECLARACIÓN JURADA DE PARENTESCO")
	identity(l, in)
	rows := table(in.Payload, "parientes", "nombres", "parentesco", "area")
	l.Checkbox("No tengo parientes que laboren en la empresa.", len(rows) == 0)
	l.Checkbox("Tengo parientes que laboran en la empresa:", len(rows) > 0)
	if len(rows) > 0 {
		l.Table([]string{"Nombres", "Parentesco", "Área"}, rows)
	}
	l.Paragraph(place(e, in))
	sign(l, in)
}

func buildBienes(l *render.Layout, e Employer, in Input) {
	header(l, e, "DECLARACIÓN JURADA DE BIENES")
	identity(l, in)
	rows := table(in.Payload, "bienes", "tipo", "descripcion", "valor")
	if len(rows) == 0 {
		l.Paragraph("Declaro no poseer bienes registrables a mi nombre.")
	} else {
		l.Table([]string{"Tipo", "Descripción", "Valor (S/)"}, rows)
	}
	l.Paragraph(place(e, in))
	sign(l, in)
}

func str(p map[string]any, key, fallback string) string {
	switch v := p[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "Sí"
		}
		return "No"
	}
	return fallback
}

func flag(p map[string]any, key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || strings.EqualFold(v, "si") || strings.EqualFold(v, "sí")
	}
	return false
}

func strList(p map[string]any, key string) []string {
	items, _ := p[key].([]any)
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func table(p map[string]any, key string, cols ...string) [][]string {
	items, _ := p[key].([]any)
	var rows [][]string
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		row := make([]string, len(cols))
		filled := false
		for i, c := range cols {
			row[i] = str(m, c, "")
			filled = filled || row[i] != ""
		}
		if filled {
			rows = append(rows, row)
		}
	}
	return rows
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func nonBlank(values ...string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
