package handler

import (
	"github.com/EduardoCane/EmpresaAguaLima-sub000/config"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/middleware"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/service"
	"github.com/gin-gonic/gin"
)

// Deps are the services the API is built on.
type Deps struct {
	Store   *service.Store
	Reniec  *service.ReniecService
	Signing *service.SigningService
	Exports *service.ExportService
	SignCfg *config.SigningConfig
}

// RegisterRoutes mounts every API route on api.
func RegisterRoutes(api *gin.RouterGroup, d Deps) {
	employees := NewEmployeeHandler(d.Store, d.Reniec)
	contracts := NewContractHandler(d.Store, d.Signing, d.Exports)
	exports := NewExportHandler(d.Exports)
	signing := NewSigningHandler(d.Store, d.Signing, d.SignCfg)
	documents := NewDocumentHandler(d.Exports.Exporter().Catalog())

	api.GET("/documents", documents.List)

	api.GET("/employees", employees.List)
	api.POST("/employees", employees.Create)
	api.GET("/employees/:id", employees.Get)
	api.GET("/employees/:id/contracts", employees.Contracts)
	api.GET("/reniec/:dni", employees.LookupDNI)

	api.POST("/contracts", contracts.Create)
	api.GET("/contracts/:id", contracts.Get)
	api.PUT("/contracts/:id/payloads/:doc", contracts.SetPayload)
	api.PUT("/contracts/:id/variant", contracts.ChooseVariant)
	api.POST("/contracts/:id/signature", contracts.CaptureSignature)
	api.POST("/contracts/:id/sign", contracts.Sign)
	api.GET("/contracts/:id/completion", contracts.Completion)
	api.GET("/contracts/:id/editor", contracts.Editor)
	api.GET("/contracts/:id/documents/:doc/pdf", contracts.DocumentPDF)
	api.GET("/contracts/:id/documents.zip", contracts.DocumentsZIP)

	api.GET("/exports", exports.List)
	api.POST("/exports", exports.Start)
	api.GET("/exports/:id", exports.Get)
	api.GET("/exports/:id/download", exports.Download)
	api.DELETE("/exports/:id", exports.Cancel)

	api.POST("/sign-links", signing.CreateLink)
	api.GET("/sign-links/:token/qr.png", middleware.SignLinkMiddleware(d.SignCfg), signing.QR)
	api.GET("/sign/:token", middleware.SignLinkMiddleware(d.SignCfg), signing.Describe)
	api.POST("/sign/:token", middleware.SignLinkMiddleware(d.SignCfg), signing.Submit)
	api.GET("/signatures/stream", signing.Stream)
}
