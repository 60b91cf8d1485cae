package service

import (
	"context"
	"errors"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
)

var ErrLinkMismatch = errors.New("sign link does not belong to this contract's employee")

// SignRequest is what a verified signing link names.
type SignRequest struct {
	ContractID string
	EmployeeID string
	IssuedAt   time.Time
}

// Target is the id editors subscribe with.
func (r SignRequest) Target() string {
	if r.ContractID != "" {
		return r.ContractID
	}
	return r.EmployeeID
}

// SigningService stores captured signatures and announces remote ones.
type SigningService struct {
	store *Store
	hub   SignatureHub
	now   func() time.Time
}

// NewSigningService creates a new signing service
func NewSigningService(store *Store, hub SignatureHub) *SigningService {
	return &SigningService{store: store, hub: hub, now: time.Now}
}

func (s *SigningService) Hub() SignatureHub { return s.hub }

// Describe returns the employee and, when named, the contract a link signs.
func (s *SigningService) Describe(ctx context.Context, req SignRequest) (*model.Employee, *model.Contract, error) {
	e, err := s.store.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		return nil, nil, err
	}
	if req.ContractID == "" {
		return e, nil, nil
	}
	c, err := s.store.GetContract(ctx, req.ContractID)
	if err != nil {
		return nil, nil, err
	}
	if c.EmployeeID != e.ID {
		return nil, nil, ErrLinkMismatch
	}
	return e, c, nil
}

// CaptureLocal stores a signature drawn in person and links it to the contract.
func (s *SigningService) CaptureLocal(ctx context.Context, contractID, dataURI string) (*model.Signature, *model.Contract, error) {
	c, err := s.store.GetContract(ctx, contractID)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Editable(); err != nil {
		return nil, nil, err
	}
	sig := &model.Signature{
		EmployeeID: c.EmployeeID,
		ContractID: c.ID,
		DataURI:    dataURI,
		Source:     model.SignatureSourceLocal,
	}
	c, err = s.store.AttachNewSignature(ctx, contractID, sig, nil)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(logger.WithContract(ctx, contractID), "local signature captured", "signature_id", sig.ID)
	return sig, c, nil
}

// Submit stores a signature sent from a signing link and publishes it to the
// editors waiting for it. A signature the operator captured in person after
// the link was issued wins: the remote one is refused with
// model.ErrLocalSignatureNewer. A publish failure is logged; the signature is
// already stored and the editor picks it up on reload.
func (s *SigningService) Submit(ctx context.Context, req SignRequest, dataURI string) (*model.Signature, error) {
	_, c, err := s.Describe(ctx, req)
	if err != nil {
		return nil, err
	}
	if c != nil {
		if err := c.Editable(); err != nil {
			return nil, err
		}
	}

	sig := &model.Signature{
		EmployeeID: req.EmployeeID,
		ContractID: req.ContractID,
		DataURI:    dataURI,
		Source:     model.SignatureSourceRemote,
	}
	delivery := model.SignatureDelivery{
		Type:         model.SignatureDeliveryType,
		ContractID:   req.ContractID,
		EmployeeID:   req.EmployeeID,
		Signature:    dataURI,
		LinkIssuedAt: req.IssuedAt,
	}
	accept := func(state model.EditorState) error {
		if !model.AcceptDelivery(state, delivery) {
			return model.ErrLocalSignatureNewer
		}
		return nil
	}

	if c != nil {
		_, err = s.store.AttachNewSignature(ctx, c.ID, sig, func(c *model.Contract, current *model.Signature) error {
			return accept(model.OpenEditor(c, current))
		})
	} else {
		err = s.store.ActivateSignature(ctx, sig, func(current *model.Signature) error {
			return accept(model.StartDraft(req.EmployeeID, current))
		})
	}
	if err != nil {
		if errors.Is(err, model.ErrLocalSignatureNewer) {
			logger.Info(ctx, "remote signature refused", "target", req.Target(), "link_issued_at", req.IssuedAt)
		}
		return nil, err
	}

	delivery.SignatureID = sig.ID
	delivery.IssuedAt = s.now()
	if err := s.hub.Publish(ctx, delivery); err != nil {
		logger.Warn(ctx, "failed to publish signature delivery", "error", err, "target", req.Target())
	}
	logger.Info(ctx, "remote signature received", "target", req.Target(), "signature_id", sig.ID)
	return sig, nil
}
