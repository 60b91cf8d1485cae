package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/config"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/middleware"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/service"
	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

const (
	qrSize          = 256
	signPagePath    = "/firmar/"
	streamKeepAlive = 20 * time.Second
)

type SigningHandler struct {
	store     *service.Store
	signing   *service.SigningService
	config    *config.SigningConfig
	keepAlive time.Duration
}

// NewSigningHandler creates a new signing handler
func NewSigningHandler(store *service.Store, signing *service.SigningService, cfg *config.SigningConfig) *SigningHandler {
	return &SigningHandler{store: store, signing: signing, config: cfg, keepAlive: streamKeepAlive}
}

type SignLinkRequest struct {
	ContractID string `json:"contrato_id"`
	EmployeeID string `json:"cliente_id"`
}

// CreateLink issues a link the employee opens on their own phone. A contract
// id wins over the employee id, and the employee is taken from the contract.
func (h *SigningHandler) CreateLink(c *gin.Context) {
	var req SignLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ctx := c.Request.Context()

	switch {
	case req.ContractID != "":
		contract, err := h.store.GetContract(ctx, req.ContractID)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := contract.Editable(); err != nil {
			respondError(c, err)
			return
		}
		req.EmployeeID = contract.EmployeeID
	case req.EmployeeID != "":
		if _, err := h.store.GetEmployee(ctx, req.EmployeeID); err != nil {
			respondError(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": middleware.ErrSignLinkTarget.Error()})
		return
	}

	token, expiresAt, err := middleware.GenerateSignLink(req.ContractID, req.EmployeeID, h.config)
	if err != nil {
		respondError(c, err)
		return
	}
	target := req.ContractID
	if target == "" {
		target = req.EmployeeID
	}
	logger.Info(ctx, "sign link issued", "target", target, "expires_at", expiresAt)

	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"url":        h.signURL(token),
		"qr_url":     "/api/sign-links/" + token + "/qr.png",
		"target":     target,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

func (h *SigningHandler) signURL(token string) string {
	return strings.TrimRight(h.config.PublicBaseURL, "/") + signPagePath + token
}

// QR renders the signing link as a PNG for the phone camera.
func (h *SigningHandler) QR(c *gin.Context) {
	png, err := qrcode.Encode(h.signURL(c.Param("token")), qrcode.Medium, qrSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func signRequest(claims *middleware.SignLinkClaims) service.SignRequest {
	return service.SignRequest{
		ContractID: claims.ContractID,
		EmployeeID: claims.EmployeeID,
		IssuedAt:   claims.IssuedTime(),
	}
}

// Describe tells the signing page whose signature it is collecting.
func (h *SigningHandler) Describe(c *gin.Context) {
	claims := middleware.GetSignLink(c)
	e, contract, err := h.signing.Describe(c.Request.Context(), signRequest(claims))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{
		"nombre": e.FullName(),
		"dni":    e.DNI,
	}
	if contract != nil {
		resp["contrato_id"] = contract.ID
		resp["firmado"] = contract.IsSigned()
	}
	if claims.ExpiresAt != nil {
		resp["expires_at"] = claims.ExpiresAt.Time.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// Submit receives the signature drawn on the signing page.
func (h *SigningHandler) Submit(c *gin.Context) {
	var req SignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	sig, err := h.signing.Submit(c.Request.Context(), signRequest(middleware.GetSignLink(c)), req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"firma_id": sig.ID, "message": "Firma recibida"})
}

// Stream pushes signature deliveries for ?id= (a contract or employee id) as
// server-sent events until the client goes away.
func (h *SigningHandler) Stream(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	deliveries, stop := h.signing.Hub().Subscribe(id)
	defer stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"id": id})
	c.Writer.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			c.SSEvent("signature", d)
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"at": time.Now().Unix()})
		}
		c.Writer.Flush()
	}
}
