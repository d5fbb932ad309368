package httpgin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
)

const principalKey = "principal"

// Principal is the caller identified by a verified bearer token.
type Principal struct {
	UserID uuid.UUID
	Role   domain.Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == domain.RoleAdmin
}

// Claims carried by access tokens issued by the identity service.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth verifies an HS256 bearer token and stores the caller's Principal
// in the gin context. Tokens are issued elsewhere; this service only checks them.
func JWTAuth(secret string) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			abortAuth(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

		var claims Claims
		tok, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			abortAuth(c, http.StatusUnauthorized, msg)
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, "invalid subject")
			return
		}

		role := domain.Role(claims.Role)
		if role != domain.RoleAdmin {
			role = domain.RoleCustomer
		}

		c.Set(principalKey, Principal{UserID: userID, Role: role})
		c.Next()
	}
}

// RequireAdmin rejects callers whose token does not carry the admin role.
// It must run after JWTAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok || !p.IsAdmin() {
			abortAuth(c, http.StatusForbidden, "admin role required")
			return
		}
		c.Next()
	}
}

func principal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// canAccess reports whether the caller may act on a resource owned by owner.
func canAccess(c *gin.Context, owner uuid.UUID) bool {
	p, ok := principal(c)
	return ok && (p.IsAdmin() || p.UserID == owner)
}

func abortAuth(c *gin.Context, status int, detail string) {
	code := "unauthorized"
	if status == http.StatusForbidden {
		code = "forbidden"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Detail: detail})
}
