package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/catalog"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/export"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/service"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/validation"
	"github.com/gin-gonic/gin"
)

type ContractHandler struct {
	store   *service.Store
	signing *service.SigningService
	exports *service.ExportService
}

// NewContractHandler creates a new contract handler
func NewContractHandler(store *service.Store, signing *service.SigningService, exports *service.ExportService) *ContractHandler {
	return &ContractHandler{store: store, signing: signing, exports: exports}
}

type CreateContractRequest struct {
	EmployeeID string `json:"cliente_id" binding:"required"`
	Variant    string `json:"variante"`
}

// Create opens a draft for an employee with the ficha de datos prefilled
// from the employee record.
func (h *ContractHandler) Create(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ctx := c.Request.Context()

	e, err := h.store.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		respondError(c, err)
		return
	}
	contract := &model.Contract{EmployeeID: e.ID}
	if err := contract.SetFieldSet(model.PrefillFieldSet(e)); err != nil {
		respondError(c, err)
		return
	}
	if req.Variant != "" {
		v, err := model.ParseVariant(req.Variant)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := contract.ChooseVariant(v); err != nil {
			respondError(c, err)
			return
		}
	}
	if err := h.store.CreateContract(ctx, contract); err != nil {
		respondError(c, err)
		return
	}
	contract.Employee = e
	logger.Info(logger.WithContract(ctx, contract.ID), "contract draft created", "employee_id", e.ID)
	c.JSON(http.StatusCreated, contract)
}

// Get returns a contract with its employee.
func (h *ContractHandler) Get(c *gin.Context) {
	contract, err := h.store.GetContract(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// SetPayload replaces one document payload with the raw JSON body. Saving the
// ficha de datos also reports which required fields are still empty.
func (h *ContractHandler) SetPayload(c *gin.Context) {
	doc := model.DocumentID(c.Param("doc"))
	raw, err := c.GetRawData()
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload body required"})
		return
	}

	contract, err := h.store.UpdateContract(c.Request.Context(), c.Param("id"), func(ct *model.Contract) error {
		return ct.SetPayload(doc, raw)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"contrato": contract}
	if doc == model.DocFichaDatos {
		fs, err := contract.FieldSet()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resp["missing"] = catalog.MissingFields(fs)
	}
	c.JSON(http.StatusOK, resp)
}

type ChooseVariantRequest struct {
	Variant string `json:"variante" binding:"required"`
}

// ChooseVariant locks the draft to the intermittent or the season contract.
func (h *ContractHandler) ChooseVariant(c *gin.Context) {
	var req ChooseVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	v, err := model.ParseVariant(req.Variant)
	if err != nil {
		respondError(c, err)
		return
	}
	contract, err := h.store.UpdateContract(c.Request.Context(), c.Param("id"), func(ct *model.Contract) error {
		return ct.ChooseVariant(v)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

type SignatureRequest struct {
	Signature string `json:"signature" binding:"required"`
}

// CaptureSignature stores a signature drawn on the operator's device.
func (h *ContractHandler) CaptureSignature(c *gin.Context) {
	var req SignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	sig, contract, err := h.signing.CaptureLocal(c.Request.Context(), c.Param("id"), req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"firma_id": sig.ID, "contrato": contract})
}

// Sign freezes the contract once an employee, a signature and a variant are
// present. The employee's active signature is used when none is attached.
func (h *ContractHandler) Sign(c *gin.Context) {
	ctx := c.Request.Context()
	contract, err := h.store.GetContract(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := contract.Editable(); err != nil {
		respondError(c, err)
		return
	}
	hasSig, err := h.signaturePresent(ctx, contract)
	if err != nil {
		respondError(c, err)
		return
	}
	if problems := validation.ContractCompleteness(contract.EmployeeID != "", hasSig, contract.Variant()); len(problems) > 0 {
		respondProblems(c, problems)
		return
	}

	signed, err := h.store.SignContract(ctx, contract.ID, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info(logger.WithContract(ctx, signed.ID), "contract signed", "variant", signed.Variant())
	c.JSON(http.StatusOK, signed)
}

func (h *ContractHandler) signaturePresent(ctx context.Context, contract *model.Contract) (bool, error) {
	_, err := h.store.ContractSignature(ctx, contract)
	if errors.Is(err, service.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Completion reports per-tab and per-page completeness for the editor.
func (h *ContractHandler) Completion(c *gin.Context) {
	ctx := c.Request.Context()
	contract, err := h.store.GetContract(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	hasSig, err := h.signaturePresent(ctx, contract)
	if err != nil {
		respondError(c, err)
		return
	}
	fs, err := contract.FieldSet()
	if err != nil {
		respondError(c, err)
		return
	}

	tabs := make(map[model.DocumentID]bool)
	for _, doc := range h.exports.Exporter().Catalog().Applicable(contract) {
		tabs[doc.ID] = validation.TabComplete(doc.ID, hasSig, fs)
	}
	problems := validation.ContractCompleteness(contract.EmployeeID != "", hasSig, contract.Variant())
	c.JSON(http.StatusOK, gin.H{
		"complete":    len(problems) == 0,
		"problems":    validation.Messages(problems),
		"tabs":        tabs,
		"ficha_pages": validation.FieldSetPagesComplete(fs),
		"missing":     catalog.MissingFields(fs),
	})
}

// Editor returns the editor state for the contract.
func (h *ContractHandler) Editor(c *gin.Context) {
	ctx := c.Request.Context()
	contract, err := h.store.GetContract(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	sig, err := h.store.ContractSignature(ctx, contract)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ViewOf(model.OpenEditor(contract, sig)))
}

func (h *ContractHandler) target(c *gin.Context) (export.Target, bool) {
	ctx := c.Request.Context()
	contract, err := h.store.GetContract(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return export.Target{}, false
	}
	t, err := h.exports.Target(ctx, contract)
	if err != nil {
		respondError(c, err)
		return export.Target{}, false
	}
	return t, true
}

// DocumentPDF renders one document of the contract.
func (h *ContractHandler) DocumentPDF(c *gin.Context) {
	t, ok := h.target(c)
	if !ok {
		return
	}
	ctx := logger.WithContract(c.Request.Context(), t.Contract.ID)
	res, err := h.exports.Exporter().Document(ctx, t, model.DocumentID(c.Param("doc")))
	if err != nil {
		respondError(c, err)
		return
	}
	sendResult(c, res)
}

// DocumentsZIP renders every applicable document of the contract into a ZIP.
func (h *ContractHandler) DocumentsZIP(c *gin.Context) {
	t, ok := h.target(c)
	if !ok {
		return
	}
	ctx := logger.WithContract(c.Request.Context(), t.Contract.ID)
	res, err := h.exports.Exporter().All(ctx, t)
	if err != nil {
		respondError(c, err)
		return
	}
	sendResult(c, res)
}

func sendResult(c *gin.Context, res *export.Result) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Name))
	c.Data(http.StatusOK, res.ContentType, res.Data)
}
