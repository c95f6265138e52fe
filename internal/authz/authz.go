// Package authz checks bearer tokens and gates routes by role.
package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type Role string

const (
	RoleAdministrator Role = "Administrator"
	RoleSalesperson   Role = "Salesperson"
	RoleSupplier      Role = "Supplier"
)

var ErrUnauthorized = errors.New("unauthorized")

// Claims identify the staff member behind a request.
type Claims struct {
	EmployeeID int64 `json:"employee_id"`
	Role       Role  `json:"role"`
	jwt.StandardClaims
}

// Verifier signs and checks HS256 tokens.
type Verifier struct{ Secret []byte }

func (v Verifier) Sign(employeeID int64, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	c := &Claims{
		EmployeeID: employeeID,
		Role:       role,
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(employeeID, 10),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.Secret)
}

func (v Verifier) Parse(token string) (*Claims, error) {
	c := &Claims{}
	t, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !t.Valid || c.EmployeeID <= 0 || c.Role == "" {
		return nil, ErrUnauthorized
	}
	return c, nil
}

type ctxKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}

func deny(w http.ResponseWriter, code int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": msg})
}

// Middleware rejects requests without a valid bearer token.
func Middleware(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || token == "" {
				deny(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			c, err := v.Parse(token)
			if err != nil {
				deny(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), c)))
		})
	}
}

// RequireRole lets through only callers holding one of roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := FromContext(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "Unauthorized", "missing credentials")
				return
			}
			for _, role := range roles {
				if c.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			deny(w, http.StatusForbidden, "Forbidden", "role "+string(c.Role)+" may not do this")
		})
	}
}
