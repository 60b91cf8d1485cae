package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/service"
	"github.com/gin-gonic/gin"
)

type EmployeeHandler struct {
	store  *service.Store
	reniec *service.ReniecService
}

// NewEmployeeHandler creates a new employee handler. reniec may be nil.
func NewEmployeeHandler(store *service.Store, reniec *service.ReniecService) *EmployeeHandler {
	return &EmployeeHandler{store: store, reniec: reniec}
}

// List searches employees by DNI prefix or name (?q=, ?limit=).
func (h *EmployeeHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	employees, err := h.store.ListEmployees(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clientes": employees})
}

// Create registers an employee.
func (h *EmployeeHandler) Create(c *gin.Context) {
	var e model.Employee
	if err := c.ShouldBindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	e.ID = ""
	e.CreatedAt, e.UpdatedAt = time.Time{}, time.Time{}

	if err := h.store.CreateEmployee(c.Request.Context(), &e); err != nil {
		respondError(c, err)
		return
	}
	logger.Info(c.Request.Context(), "employee created", "employee_id", e.ID)
	c.JSON(http.StatusCreated, e)
}

// Get returns one employee.
func (h *EmployeeHandler) Get(c *gin.Context) {
	e, err := h.store.GetEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Contracts lists an employee's contracts, newest first.
func (h *EmployeeHandler) Contracts(c *gin.Context) {
	ctx := c.Request.Context()
	e, err := h.store.GetEmployee(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	contracts, err := h.store.ListContracts(ctx, e.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contratos": contracts})
}

// LookupDNI answers with a registered employee or a RENIEC record. A failed
// lookup is not an error: the form switches to manual entry.
func (h *EmployeeHandler) LookupDNI(c *gin.Context) {
	ctx := c.Request.Context()
	dni := c.Param("dni")
	if err := model.ValidateDNI(dni); err != nil {
		respondError(c, err)
		return
	}

	e, err := h.store.GetEmployeeByDNI(ctx, dni)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"found": true, "source": "clientes", "cliente": e})
		return
	case !errors.Is(err, service.ErrNotFound):
		respondError(c, err)
		return
	}

	if h.reniec == nil {
		c.JSON(http.StatusOK, gin.H{"found": false, "manual_entry": true})
		return
	}
	p, err := h.reniec.Lookup(ctx, dni)
	if err != nil {
		logger.Warn(ctx, "DNI lookup failed, manual entry", "error", err)
		c.JSON(http.StatusOK, gin.H{"found": false, "manual_entry": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "source": "reniec", "persona": p})
}
