package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	hmac          []byte
	adminUser     string
	adminPassHash string
	guestExaminer bool
}

// NewAuthService builds the local login service. guestExaminer enables the
// username==password examiner shortcut for development setups without a user
// directory.
func NewAuthService(secret, adminUser, adminPassHash string, guestExaminer bool) *AuthService {
	return &AuthService{
		hmac:          []byte(secret),
		adminUser:     adminUser,
		adminPassHash: adminPassHash,
		guestExaminer: guestExaminer,
	}
}

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"` // "examiner" or "admin"
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "oscegrade",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(8 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	})
	if err != nil || !token.Valid {
		return nil, err
	}
	c, _ := token.Claims.(*Claims)
	return c, nil
}

type ctxKey string

const (
	ctxKeySub  ctxKey = "sub"
	ctxKeyRole ctxKey = "role"
)

// WithIdentity stores the authenticated subject and role on the context.
func WithIdentity(ctx context.Context, sub, role string) context.Context {
	ctx = context.WithValue(ctx, ctxKeySub, sub)
	return context.WithValue(ctx, ctxKeyRole, role)
}

func SubjectFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeySub).(string); ok {
		return s
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyRole).(string); ok {
		return s
	}
	return ""
}

// POST /auth/login  { "username": "...", "password": "..." }
// Admin credentials come from config. With guestExaminer enabled, anyone else
// authenticates as examiner with username==password.
func LoginHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		role := ""
		switch {
		case req.Username == a.adminUser:
			if bcrypt.CompareHashAndPassword([]byte(a.adminPassHash), []byte(req.Password)) == nil {
				role = "admin"
			}
		case a.guestExaminer && req.Username != "" && req.Username == req.Password:
			role = "examiner"
		}
		if role == "" {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(req.Username, role)
		if err != nil {
			http.Error(w, "issue token", 500)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok})
	}
}

func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil || c == nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), c.Sub, c.Role)))
		})
	}
}

// RequireRole gates a route on one of the allowed roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := RoleFromContext(r.Context())
			for _, want := range roles {
				if got == want {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}
