package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/config"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateDNI = errors.New("an employee with this DNI already exists")
)

// OpenDatabase connects to postgres or sqlite as configured.
func OpenDatabase(cfg *config.DatabaseConfig, logLevel string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Gorm(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	slog.Info("database connected", "driver", cfg.Driver)
	return db, nil
}

// Store persists employees, contracts and signatures.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the tables.
func (s *Store) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&model.Employee{}, &model.Contract{}, &model.Signature{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Employees

func (s *Store) CreateEmployee(ctx context.Context, e *model.Employee) error {
	if err := e.Validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Create(e).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateDNI
	}
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*model.Employee, error) {
	var e model.Employee
	if err := s.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *Store) GetEmployeeByDNI(ctx context.Context, dni string) (*model.Employee, error) {
	var e model.Employee
	if err := s.db.WithContext(ctx).First(&e, "dni = ?", dni).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// ListEmployees filters by DNI prefix or name fragment when q is set.
func (s *Store) ListEmployees(ctx context.Context, q string, limit int) ([]model.Employee, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	tx := s.db.WithContext(ctx).Order("apellido_paterno, apellido_materno, nombres").Limit(limit)
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("dni LIKE ? OR LOWER(nombres) LIKE ? OR LOWER(apellido_paterno) LIKE ? OR LOWER(apellido_materno) LIKE ?", q+"%", like, like, like)
	}
	var out []model.Employee
	if err := tx.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return out, nil
}

// Contracts

func (s *Store) CreateContract(ctx context.Context, c *model.Contract) error {
	if c.EmployeeID == "" {
		return model.ErrNoEmployee
	}
	if _, err := s.GetEmployee(ctx, c.EmployeeID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

// GetContract loads a contract with its employee.
func (s *Store) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	var c model.Contract
	if err := s.db.WithContext(ctx).Preload("Employee").First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) ListContracts(ctx context.Context, employeeID string) ([]model.Contract, error) {
	var out []model.Contract
	err := s.db.WithContext(ctx).Where("employee_id = ?", employeeID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	return out, nil
}

// UpdateContract loads the contract, applies fn and saves it. Signed
// contracts are never written again.
func (s *Store) UpdateContract(ctx context.Context, id string, fn func(c *model.Contract) error) (*model.Contract, error) {
	return s.updateContract(ctx, id, func(_ *gorm.DB, c *model.Contract) error { return fn(c) })
}

func (s *Store) updateContract(ctx context.Context, id string, fn func(tx *gorm.DB, c *model.Contract) error) (*model.Contract, error) {
	var out *model.Contract
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c model.Contract
		if err := tx.Preload("Employee").First(&c, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if c.IsSigned() {
			return model.ErrContractSigned
		}
		if err := fn(tx, &c); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&c).Error; err != nil {
			return fmt.Errorf("failed to save contract: %w", err)
		}
		out = &c
		return nil
	})
	return out, err
}

// SignContract attaches the employee's active signature when the contract
// has none and freezes it.
func (s *Store) SignContract(ctx context.Context, id string, now time.Time) (*model.Contract, error) {
	return s.updateContract(ctx, id, func(tx *gorm.DB, c *model.Contract) error {
		if c.SignatureID == nil {
			sig, err := s.activeSignature(tx, c.EmployeeID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			if sig != nil {
				if err := c.AttachSignature(sig.ID); err != nil {
					return err
				}
			}
		}
		return c.Sign(now)
	})
}

// LatestSignedContracts returns each employee's most recent signed contract.
// A nil id list means every employee.
func (s *Store) LatestSignedContracts(ctx context.Context, employeeIDs []string) ([]model.Contract, error) {
	tx := s.db.WithContext(ctx).Preload("Employee").
		Where("estado = ?", model.StateSigned).
		Order("employee_id, created_at DESC, id")
	if employeeIDs != nil {
		if len(employeeIDs) == 0 {
			return nil, nil
		}
		tx = tx.Where("employee_id IN ?", employeeIDs)
	}
	var all []model.Contract
	if err := tx.Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to load signed contracts: %w", err)
	}

	out := make([]model.Contract, 0, len(all))
	seen := make(map[string]bool, len(all))
	for _, c := range all {
		if seen[c.EmployeeID] {
			continue
		}
		seen[c.EmployeeID] = true
		out = append(out, c)
	}
	return out, nil
}

// Signatures

// ActivateSignature stores sig as the employee's only active signature.
// accept, when set, sees the signature active until now and may refuse.
func (s *Store) ActivateSignature(ctx context.Context, sig *model.Signature, accept func(current *model.Signature) error) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if accept != nil {
			current, err := s.activeSignature(tx, sig.EmployeeID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			if err := accept(current); err != nil {
				return err
			}
		}
		return activateSignature(tx, sig)
	})
}

// AttachNewSignature activates sig and links it to the contract in one
// transaction. accept sees the contract and the signature linked to it so
// far (nil when none) and may refuse.
func (s *Store) AttachNewSignature(ctx context.Context, contractID string, sig *model.Signature, accept func(c *model.Contract, current *model.Signature) error) (*model.Contract, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	return s.updateContract(ctx, contractID, func(tx *gorm.DB, c *model.Contract) error {
		if err := c.Editable(); err != nil {
			return err
		}
		if accept != nil {
			var current *model.Signature
			if c.SignatureID != nil && *c.SignatureID != "" {
				var linked model.Signature
				if err := tx.First(&linked, "id = ?", *c.SignatureID).Error; err != nil {
					if err = notFound(err); !errors.Is(err, ErrNotFound) {
						return err
					}
				} else {
					current = &linked
				}
			}
			if err := accept(c, current); err != nil {
				return err
			}
		}
		if err := activateSignature(tx, sig); err != nil {
			return err
		}
		return c.AttachSignature(sig.ID)
	})
}

func activateSignature(tx *gorm.DB, sig *model.Signature) error {
	if err := tx.Model(&model.Signature{}).
		Where("employee_id = ? AND activa = ?", sig.EmployeeID, true).
		Update("activa", false).Error; err != nil {
		return fmt.Errorf("failed to deactivate signatures: %w", err)
	}
	sig.Activa = true
	if err := tx.Create(sig).Error; err != nil {
		return fmt.Errorf("failed to store signature: %w", err)
	}
	return nil
}

// ActiveSignature returns the employee's active signature.
func (s *Store) ActiveSignature(ctx context.Context, employeeID string) (*model.Signature, error) {
	return s.activeSignature(s.db.WithContext(ctx), employeeID)
}

func (s *Store) activeSignature(tx *gorm.DB, employeeID string) (*model.Signature, error) {
	var sig model.Signature
	err := tx.Where("employee_id = ? AND activa = ?", employeeID, true).Order("created_at DESC").First(&sig).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sig, nil
}

func (s *Store) GetSignature(ctx context.Context, id string) (*model.Signature, error) {
	var sig model.Signature
	if err := s.db.WithContext(ctx).First(&sig, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sig, nil
}

// ContractSignature is the signature linked to c, or the employee's active
// one while c has none.
func (s *Store) ContractSignature(ctx context.Context, c *model.Contract) (*model.Signature, error) {
	if c.SignatureID != nil && *c.SignatureID != "" {
		return s.GetSignature(ctx, *c.SignatureID)
	}
	return s.ActiveSignature(ctx, c.EmployeeID)
}

// SignatureData returns the image of ContractSignature, or "" when there is none.
func (s *Store) SignatureData(ctx context.Context, c *model.Contract) (string, error) {
	sig, err := s.ContractSignature(ctx, c)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sig.DataURI, nil
}
