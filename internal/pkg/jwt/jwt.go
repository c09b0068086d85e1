package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Roles issued by the HRIS backend that this service cares about
const (
	RoleOwner    = "owner"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrCompanyIDRequired  = errors.New("company_id claim is required")
	ErrAnalyticsForbidden = errors.New("analytics requires manager or owner role")
)

// Claims is the subset of access token claims read by the analytics API
type Claims struct {
	UserID     string
	EmployeeID string
	CompanyID  string
	Role       string
}

// CanViewAnalytics reports whether the role may read company analytics
func (c Claims) CanViewAnalytics() bool {
	return c.Role == RoleOwner || c.Role == RoleManager
}

type Service interface {
	// GenerateAccessToken signs a token in the format issued by the HRIS backend
	GenerateAccessToken(claims Claims, ttl time.Duration) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	tokenAuth *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// NewJWTService verifies tokens signed with the secret shared with the HRIS backend
func NewJWTService(secretKey string) Service {
	return &JWTService{
		tokenAuth: jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(claims Claims, ttl time.Duration) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(ttl).Unix()

	payload := map[string]interface{}{
		"user_id":     claims.UserID,
		"employee_id": returnValueOrNil(claims.EmployeeID),
		"company_id":  returnValueOrNil(claims.CompanyID),
		"role":        claims.Role,
		"type":        "access",
		"exp":         expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(payload)
	return tokenString, expiresAt, err
}

// ClaimsFromContext reads the verified access token claims placed on ctx by
// jwtauth.Verifier
func ClaimsFromContext(ctx context.Context) (Claims, error) {
	_, raw, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Claims{}, err
	}
	if tokenType, _ := raw["type"].(string); tokenType != "access" {
		return Claims{}, ErrInvalidToken
	}

	var c Claims
	c.UserID, _ = raw["user_id"].(string)
	c.EmployeeID, _ = raw["employee_id"].(string)
	c.CompanyID, _ = raw["company_id"].(string)
	c.Role, _ = raw["role"].(string)
	return c, nil
}

func returnValueOrNil(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
