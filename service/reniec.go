package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/config"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
)

var (
	ErrLookupUnavailable = errors.New("national id lookup unavailable")
	ErrPersonNotFound    = errors.New("no person found for this DNI")
)

// Person is a normalized national-id lookup result.
type Person struct {
	DNI             string `json:"dni"`
	Nombres         string `json:"nombres"`
	ApellidoPaterno string `json:"apellido_paterno"`
	ApellidoMaterno string `json:"apellido_materno"`
}

// ReniecService looks up DNIs against the primary registry and falls back
// to the secondary one when it is unreachable.
type ReniecService struct {
	config     *config.ReniecConfig
	httpClient *http.Client
}

// NewReniecService creates a new RENIEC lookup service
func NewReniecService(cfg *config.ReniecConfig) *ReniecService {
	return &ReniecService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// Lookup queries the primary endpoint and, when it is unreachable and
// configured as a relative path, the public fallback. Callers treat every
// error as "enter the data by hand".
func (s *ReniecService) Lookup(ctx context.Context, dni string) (*Person, error) {
	if err := model.ValidateDNI(dni); err != nil {
		return nil, err
	}
	primary := s.config.PrimaryURL
	p, err := s.fetch(ctx, s.resolve(primary), dni)
	if err == nil {
		return p, nil
	}
	var unreachable *unreachableError
	if !errors.As(err, &unreachable) || !isRelative(primary) || s.config.FallbackURL == "" {
		return nil, err
	}
	logger.Warn(ctx, "primary DNI lookup unreachable, trying fallback", "error", err)
	return s.fetch(ctx, s.config.FallbackURL, dni)
}

type unreachableError struct{ err error }

func (e *unreachableError) Error() string { return e.err.Error() }
func (e *unreachableError) Unwrap() error { return e.err }

func (s *ReniecService) resolve(endpoint string) string {
	if !isRelative(endpoint) || s.config.BaseURL == "" {
		return endpoint
	}
	return strings.TrimRight(s.config.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

func isRelative(endpoint string) bool {
	u, err := url.Parse(endpoint)
	return err == nil && u.Scheme == "" && u.Host == ""
}

func (s *ReniecService) fetch(ctx context.Context, endpoint, dni string) (*Person, error) {
	if endpoint == "" {
		return nil, ErrLookupUnavailable
	}
	target := strings.ReplaceAll(endpoint, "{dni}", dni)
	if target == endpoint {
		target = strings.TrimRight(endpoint, "/") + "/" + dni
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.Token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &unreachableError{err: fmt.Errorf("%w: %v", ErrLookupUnavailable, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPersonNotFound
	}
	if resp.StatusCode >= 500 {
		return nil, &unreachableError{err: fmt.Errorf("%w: status %d", ErrLookupUnavailable, resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrLookupUnavailable, resp.StatusCode)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	p := normalizePerson(raw, dni)
	if p.Nombres == "" && p.ApellidoPaterno == "" {
		return nil, ErrPersonNotFound
	}
	return p, nil
}

// normalizePerson accepts flat and {"data": {...}} bodies with camelCase or
// snake_case keys.
func normalizePerson(raw map[string]any, dni string) *Person {
	if data, ok := raw["data"].(map[string]any); ok {
		raw = data
	}
	p := &Person{
		DNI:             pick(raw, "numeroDocumento", "numero_documento", "dni", "numero"),
		Nombres:         pick(raw, "nombres", "nombre", "names"),
		ApellidoPaterno: pick(raw, "apellidoPaterno", "apellido_paterno", "paterno"),
		ApellidoMaterno: pick(raw, "apellidoMaterno", "apellido_materno", "materno"),
	}
	if p.DNI == "" {
		p.DNI = dni
	}
	return p
}

func pick(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok {
			if v = strings.Join(strings.Fields(v), " "); v != "" {
				return strings.ToUpper(v)
			}
		}
	}
	return ""
}
