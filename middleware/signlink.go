package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const signLinkKey = "signlink"

var ErrSignLinkTarget = errors.New("sign link needs a contract or an employee")

// SignLinkClaims identify what a cross-device signing link signs: a contract,
// or the employee when the draft is not persisted yet.
type SignLinkClaims struct {
	ContractID string `json:"cid,omitempty"`
	EmployeeID string `json:"eid"`
	jwt.RegisteredClaims
}

// Target is the id an editor matches deliveries against.
func (c *SignLinkClaims) Target() string {
	if c.ContractID != "" {
		return c.ContractID
	}
	return c.EmployeeID
}

// IssuedTime is when the link was created.
func (c *SignLinkClaims) IssuedTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// GenerateSignLink signs a new handoff token.
func GenerateSignLink(contractID, employeeID string, cfg *config.SigningConfig) (string, time.Time, error) {
	if employeeID == "" {
		return "", time.Time{}, ErrSignLinkTarget
	}
	now := time.Now()
	expiresAt := now.Add(cfg.LinkTTL())

	claims := SignLinkClaims{
		ContractID: contractID,
		EmployeeID: employeeID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseSignLink validates a handoff token.
func ParseSignLink(tokenString string, cfg *config.SigningConfig) (*SignLinkClaims, error) {
	claims := &SignLinkClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.EmployeeID == "" {
		return nil, ErrSignLinkTarget
	}
	return claims, nil
}

// SignLinkMiddleware validates the :token path parameter of signing routes.
func SignLinkMiddleware(cfg *config.SigningConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Param("token")
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign link token required"})
			c.Abort()
			return
		}

		claims, err := ParseSignLink(tokenString, cfg)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired sign link"})
			c.Abort()
			return
		}

		c.Set(signLinkKey, claims)
		c.Next()
	}
}

// GetSignLink returns the claims stored by SignLinkMiddleware.
func GetSignLink(c *gin.Context) *SignLinkClaims {
	if v, exists := c.Get(signLinkKey); exists {
		if claims, ok := v.(*SignLinkClaims); ok {
			return claims
		}
	}
	return nil
}
