package model

import "time"

// EditorState is one of Listing, Drafting or Viewing.
type EditorState interface {
	Mode() string
}

// Listing shows the contract list; nothing is open.
type Listing struct{}

// Drafting edits a contract that is not signed yet. Contract is nil until the
// draft is first persisted, in which case EmployeeID identifies it.
type Drafting struct {
	Contract         *Contract
	EmployeeID       string
	Choice           Variant
	LocalSignatureAt time.Time
}

// Viewing shows a signed contract read-only.
type Viewing struct {
	Contract *Contract
}

func (Listing) Mode() string  { return "listing" }
func (Drafting) Mode() string { return "drafting" }
func (Viewing) Mode() string  { return "viewing" }

// OpenEditor picks the state for an existing contract. localSig is the
// signature captured in person for it, if any.
func OpenEditor(c *Contract, localSig *Signature) EditorState {
	if c == nil {
		return Listing{}
	}
	if c.IsSigned() {
		return Viewing{Contract: c}
	}
	d := Drafting{Contract: c, EmployeeID: c.EmployeeID, Choice: c.Variant()}
	d.LocalSignatureAt = localCaptureTime(localSig)
	return d
}

// StartDraft begins a not-yet-persisted contract for an employee. localSig is
// the employee's active signature, if any.
func StartDraft(employeeID string, localSig *Signature) EditorState {
	return Drafting{EmployeeID: employeeID, LocalSignatureAt: localCaptureTime(localSig)}
}

func localCaptureTime(sig *Signature) time.Time {
	if sig == nil || sig.Source != SignatureSourceLocal {
		return time.Time{}
	}
	return sig.CreatedAt
}

// Choose locks the exclusive variant for a draft.
func Choose(s EditorState, v Variant) (EditorState, error) {
	switch st := s.(type) {
	case Drafting:
		if v != VariantIntermitente && v != VariantTemporada {
			return s, ErrInvalidVariant
		}
		if st.Choice != VariantNone && st.Choice != v {
			return s, ErrVariantLocked
		}
		st.Choice = v
		return st, nil
	case Viewing:
		return s, ErrContractSigned
	}
	return s, ErrNoEmployee
}

// AcceptDelivery decides whether a remote signature may be applied to the
// open editor. It must target the open contract or employee, and is dropped
// when the operator captured a signature locally after the link was issued.
func AcceptDelivery(s EditorState, d SignatureDelivery) bool {
	st, ok := s.(Drafting)
	if !ok {
		return false
	}
	matched := false
	if st.Contract != nil {
		matched = d.Matches(st.Contract.ID)
	}
	if !matched && st.Contract == nil {
		matched = d.Matches(st.EmployeeID)
	}
	if !matched {
		return false
	}
	if !st.LocalSignatureAt.IsZero() && !st.LocalSignatureAt.Before(d.LinkIssuedAt) {
		return false
	}
	return true
}

// EditorView is the JSON shape of an EditorState.
type EditorView struct {
	Mode       string  `json:"mode"`
	ContractID string  `json:"contract_id,omitempty"`
	EmployeeID string  `json:"cliente_id,omitempty"`
	Choice     Variant `json:"variante,omitempty"`
	ReadOnly   bool    `json:"read_only"`
	Locked     bool    `json:"variante_bloqueada"`
}

func ViewOf(s EditorState) EditorView {
	v := EditorView{Mode: s.Mode()}
	switch st := s.(type) {
	case Drafting:
		if st.Contract != nil {
			v.ContractID = st.Contract.ID
		}
		v.EmployeeID = st.EmployeeID
		v.Choice = st.Choice
		v.Locked = st.Choice != VariantNone
	case Viewing:
		v.ContractID = st.Contract.ID
		v.EmployeeID = st.Contract.EmployeeID
		v.Choice = st.Contract.Variant()
		v.ReadOnly = true
		v.Locked = true
	}
	return v
}
