package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// State is the contract lifecycle: borrador -> pendiente -> firmado, or cancelado.
type State string

const (
	StateDraft     State = "borrador"
	StatePending   State = "pendiente"
	StateSigned    State = "firmado"
	StateCancelled State = "cancelado"
)

// Variant is the mutually exclusive labor-contract choice.
type Variant string

const (
	VariantNone         Variant = ""
	VariantIntermitente Variant = "intermitente"
	VariantTemporada    Variant = "temporada"
)

// DocumentID identifies a document type and its payload column.
type DocumentID string

const (
	DocFichaDatos              DocumentID = "ficha-datos"
	DocContratoIntermitente    DocumentID = "contrato-intermitente"
	DocContratoTemporada       DocumentID = "contrato-temporada"
	DocSistemaPensionario      DocumentID = "sistema-pensionario"
	DocReglamentoInterno       DocumentID = "reglamento-interno"
	DocConsentimientoInformado DocumentID = "consentimiento-informado"
	DocInduccion               DocumentID = "induccion"
	DocCuentaBancaria          DocumentID = "cuenta-bancaria"
	DocConflictoIntereses      DocumentID = "conflicto-intereses"
	DocConfidencialidad        DocumentID = "confidencialidad"
	DocAntisoborno             DocumentID = "antisoborno"
	DocDeclaracionParentesco   DocumentID = "declaracion-parentesco"
	DocDeclaracionBienes       DocumentID = "declaracion-bienes"
)

var (
	ErrContractSigned    = errors.New("contract is signed and can no longer be edited")
	ErrContractCancelled = errors.New("contract is cancelled")
	ErrNoEmployee        = errors.New("no employee selected")
	ErrNoSignature       = errors.New("signature is missing")
	ErrNoVariant         = errors.New("choose either the intermittent or the season contract")
	ErrVariantLocked     = errors.New("contract variant already chosen for this draft")
	ErrBothVariants      = errors.New("intermittent and season payloads are both filled")
	ErrUnknownDocument   = errors.New("unknown document type")
	ErrInvalidVariant    = errors.New("invalid contract variant")
)

// Contract holds one JSON payload per document type. Exactly one of the
// intermittent and season payloads is non-empty once signed.
type Contract struct {
	ID              string     `gorm:"type:char(36);primaryKey" json:"id"`
	EmployeeID      string     `gorm:"type:char(36);index;not null" json:"cliente_id"`
	Employee        *Employee  `gorm:"foreignKey:EmployeeID" json:"cliente,omitempty"`
	Estado          State      `gorm:"size:16;index;not null;default:borrador" json:"estado"`
	FirmadoAt       *time.Time `json:"firmado_at,omitempty"`
	SelectedVariant Variant    `gorm:"size:16" json:"variante,omitempty"`
	SignatureID     *string    `gorm:"type:char(36)" json:"firma_id,omitempty"`

	FichaDatos              datatypes.JSON `json:"ficha_datos,omitempty"`
	ContratoIntermitente    datatypes.JSON `json:"contrato_intermitente,omitempty"`
	ContratoTemporada       datatypes.JSON `json:"contrato_temporada,omitempty"`
	SistemaPensionario      datatypes.JSON `json:"sistema_pensionario,omitempty"`
	ReglamentoInterno       datatypes.JSON `json:"reglamento_interno,omitempty"`
	ConsentimientoInformado datatypes.JSON `json:"consentimiento_informado,omitempty"`
	Induccion               datatypes.JSON `json:"induccion,omitempty"`
	CuentaBancaria          datatypes.JSON `json:"cuenta_bancaria,omitempty"`
	ConflictoIntereses      datatypes.JSON `json:"conflicto_intereses,omitempty"`
	Confidencialidad        datatypes.JSON `json:"confidencialidad,omitempty"`
	Antisoborno             datatypes.JSON `json:"antisoborno,omitempty"`
	DeclaracionParentesco   datatypes.JSON `json:"declaracion_parentesco,omitempty"`
	DeclaracionBienes       datatypes.JSON `json:"declaracion_bienes,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Contract) TableName() string { return "contratos" }

func (c *Contract) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Estado == "" {
		c.Estado = StateDraft
	}
	return nil
}

// VariantDocument maps a variant to the document carrying its payload.
func VariantDocument(v Variant) DocumentID {
	switch v {
	case VariantIntermitente:
		return DocContratoIntermitente
	case VariantTemporada:
		return DocContratoTemporada
	}
	return ""
}

// ParseVariant accepts the variant names and their document ids.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case string(VariantIntermitente), string(DocContratoIntermitente):
		return VariantIntermitente, nil
	case string(VariantTemporada), string(DocContratoTemporada):
		return VariantTemporada, nil
	}
	return VariantNone, ErrInvalidVariant
}

func (c *Contract) payloadField(doc DocumentID) *datatypes.JSON {
	switch doc {
	case DocFichaDatos:
		return &c.FichaDatos
	case DocContratoIntermitente:
		return &c.ContratoIntermitente
	case DocContratoTemporada:
		return &c.ContratoTemporada
	case DocSistemaPensionario:
		return &c.SistemaPensionario
	case DocReglamentoInterno:
		return &c.ReglamentoInterno
	case DocConsentimientoInformado:
		return &c.ConsentimientoInformado
	case DocInduccion:
		return &c.Induccion
	case DocCuentaBancaria:
		return &c.CuentaBancaria
	case DocConflictoIntereses:
		return &c.ConflictoIntereses
	case DocConfidencialidad:
		return &c.Confidencialidad
	case DocAntisoborno:
		return &c.Antisoborno
	case DocDeclaracionParentesco:
		return &c.DeclaracionParentesco
	case DocDeclaracionBienes:
		return &c.DeclaracionBienes
	}
	return nil
}

// Payload returns the raw JSON stored for doc, nil when unset or unknown.
func (c *Contract) Payload(doc DocumentID) datatypes.JSON {
	if f := c.payloadField(doc); f != nil {
		return *f
	}
	return nil
}

// PayloadMap decodes the payload for doc into a flat map. Empty payloads give an empty map.
func (c *Contract) PayloadMap(doc DocumentID) (map[string]any, error) {
	out := map[string]any{}
	raw := c.Payload(doc)
	if !PayloadPresent(raw) {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", doc, err)
	}
	return out, nil
}

// Editable reports whether payloads and the signature may still change.
func (c *Contract) Editable() error {
	switch c.Estado {
	case StateSigned:
		return ErrContractSigned
	case StateCancelled:
		return ErrContractCancelled
	}
	return nil
}

// SetPayload replaces the payload of doc. Writing a variant payload while the
// other variant is selected is rejected.
func (c *Contract) SetPayload(doc DocumentID, raw []byte) error {
	if err := c.Editable(); err != nil {
		return err
	}
	f := c.payloadField(doc)
	if f == nil {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, doc)
	}
	if !json.Valid(raw) {
		return fmt.Errorf("payload for %s is not valid JSON", doc)
	}
	if v := c.Variant(); v != VariantNone && isVariantDoc(doc) && VariantDocument(v) != doc && PayloadPresent(raw) {
		return ErrVariantLocked
	}
	*f = datatypes.JSON(bytes.Clone(raw))
	return nil
}

// ChooseVariant locks the draft to v. The other variant payload is cleared;
// the selected one is seeded so it is never empty.
func (c *Contract) ChooseVariant(v Variant) error {
	if err := c.Editable(); err != nil {
		return err
	}
	st, err := Choose(OpenEditor(c, nil), v)
	if err != nil {
		return err
	}
	c.SelectedVariant = st.(Drafting).Choice
	c.applyVariant()
	return nil
}

func (c *Contract) applyVariant() {
	v := c.SelectedVariant
	other := VariantIntermitente
	if v == VariantIntermitente {
		other = VariantTemporada
	}
	*c.payloadField(VariantDocument(other)) = datatypes.JSON("{}")
	sel := c.payloadField(VariantDocument(v))
	if !PayloadPresent(*sel) {
		*sel = datatypes.JSON(fmt.Sprintf(`{"variante":%q}`, v))
	}
}

// Variant returns the explicit selection, falling back to inspecting which
// variant payload is non-empty for rows written before the column existed.
func (c *Contract) Variant() Variant {
	if c.SelectedVariant != VariantNone {
		return c.SelectedVariant
	}
	inter := PayloadPresent(c.ContratoIntermitente)
	temp := PayloadPresent(c.ContratoTemporada)
	switch {
	case inter && !temp:
		return VariantIntermitente
	case temp && !inter:
		return VariantTemporada
	}
	return VariantNone
}

// CheckExclusive verifies exactly one variant payload is non-empty.
func (c *Contract) CheckExclusive() error {
	inter := PayloadPresent(c.ContratoIntermitente)
	temp := PayloadPresent(c.ContratoTemporada)
	switch {
	case inter && temp:
		return ErrBothVariants
	case !inter && !temp:
		return ErrNoVariant
	}
	return nil
}

// Submit moves a draft to pendiente.
func (c *Contract) Submit() error {
	if err := c.Editable(); err != nil {
		return err
	}
	c.Estado = StatePending
	return nil
}

// Sign freezes the contract. It needs an employee, a signature and a variant.
func (c *Contract) Sign(now time.Time) error {
	if err := c.Editable(); err != nil {
		return err
	}
	if c.EmployeeID == "" {
		return ErrNoEmployee
	}
	if c.SignatureID == nil || *c.SignatureID == "" {
		return ErrNoSignature
	}
	v := c.Variant()
	if v == VariantNone {
		return ErrNoVariant
	}
	c.SelectedVariant = v
	c.applyVariant()
	if err := c.CheckExclusive(); err != nil {
		return err
	}
	c.Estado = StateSigned
	c.FirmadoAt = &now
	return nil
}

// Cancel marks a non-signed contract as cancelado.
func (c *Contract) Cancel() error {
	if err := c.Editable(); err != nil {
		return err
	}
	c.Estado = StateCancelled
	return nil
}

// AttachSignature links sig to the contract while it is editable.
func (c *Contract) AttachSignature(sigID string) error {
	if err := c.Editable(); err != nil {
		return err
	}
	c.SignatureID = &sigID
	return nil
}

func (c *Contract) IsSigned() bool { return c.Estado == StateSigned }

// PayloadPresent reports whether raw holds any data. Empty, null, {} and []
// count as empty.
func PayloadPresent(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	switch string(t) {
	case "", "null", "{}", "[]", `""`:
		return false
	}
	var probe any
	if err := json.Unmarshal(t, &probe); err != nil {
		return true
	}
	switch v := probe.(type) {
	case map[string]any:
		return len(v) > 0
	case []any:
		return len(v) > 0
	}
	return true
}

func isVariantDoc(doc DocumentID) bool {
	return doc == DocContratoIntermitente || doc == DocContratoTemporada
}
