package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SignatureSourceLocal  = "local"
	SignatureSourceRemote = "remote"
)

var (
	ErrInvalidSignature    = errors.New("signature must be an image data URI")
	ErrLocalSignatureNewer = errors.New("a signature was captured in person after this link was issued")
)

// Signature is a handwritten signature image. At most one per employee is active.
type Signature struct {
	ID         string    `gorm:"type:char(36);primaryKey" json:"id"`
	EmployeeID string    `gorm:"type:char(36);index;not null" json:"cliente_id"`
	ContractID string    `gorm:"type:char(36);index" json:"contrato_id,omitempty"`
	DataURI    string    `gorm:"type:text;not null" json:"data_uri"`
	Activa     bool      `gorm:"index" json:"activa"`
	Source     string    `gorm:"size:10" json:"origen"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Signature) TableName() string { return "firmas" }

func (s *Signature) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Source == "" {
		s.Source = SignatureSourceLocal
	}
	return nil
}

// Validate checks that the signature is an image data URI.
func (s *Signature) Validate() error {
	if !strings.HasPrefix(s.DataURI, "data:image/") || !strings.Contains(s.DataURI, ",") {
		return ErrInvalidSignature
	}
	return nil
}

// SignatureDeliveryType tags handoff messages.
const SignatureDeliveryType = "SIGNATURE_COMPLETE"

// SignatureDelivery is published when a signature is submitted from another device.
type SignatureDelivery struct {
	Type        string    `json:"type"`
	ContractID  string    `json:"contractId,omitempty"`
	EmployeeID  string    `json:"employeeId,omitempty"`
	SignatureID string    `json:"signatureId,omitempty"`
	Signature   string    `json:"signature"`
	IssuedAt    time.Time `json:"issuedAt"`
	// LinkIssuedAt is when the handoff link used for this signature was created.
	LinkIssuedAt time.Time `json:"linkIssuedAt"`
}

// Matches reports whether the delivery targets the given contract or employee id.
func (d SignatureDelivery) Matches(id string) bool {
	if id == "" || d.Type != SignatureDeliveryType {
		return false
	}
	return id == d.ContractID || id == d.EmployeeID
}
