package access

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"

	"github.com/tav360/crm-backend/core/csql"
	"github.com/tav360/crm-backend/core/logger"
)

// Claims are the token claims: the subject is the user's email, the
// role is carried alongside.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JwtMiddlewareBuilder is a helper builder for the JWT middleware
type JwtMiddlewareBuilder struct {
	// Secret is the HMAC signing secret shared with IssueToken
	Secret string
	// DB is the postgres database holding the users table
	DB *csql.DB
	// ExemptPaths are request paths that pass through without a token,
	// such as the login route and the health probe
	ExemptPaths []string
}

// IssueToken creates a signed HS256 bearer token for the given user.
func IssueToken(secret string, lifetime time.Duration, email, role string) (string, error) {
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(lifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// NewJwtMiddleware returns a middleware handler to validate JWT bearer
// tokens against the users table.
//
// Tokens are accepted as "Authorization: Bearer" header. The token
// subject is resolved against the users table on every request; a token
// whose subject no longer exists is rejected. On success the resolved
// principal is stored in the request context and the identity is
// attached to the request logger.
//
// This is a final handler: requests without a valid token are rejected
// with http.StatusUnauthorized unless their path is exempt.
func NewJwtMiddleware(jmb *JwtMiddlewareBuilder) mux.MiddlewareFunc {

	exempt := make(map[string]bool, len(jmb.ExemptPaths))
	for _, path := range jmb.ExemptPaths {
		exempt[path] = true
	}

	keyLookup := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(jmb.Secret), nil
	}

	principalQuery := fmt.Sprintf("SELECT id, email, full_name, app_role FROM %s.users WHERE email=$1;", jmb.DB.Schema)

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt[r.URL.Path] {
				h.ServeHTTP(w, r)
				return
			}
			if p := PrincipalFromContext(r.Context()); p != nil { // already authenticated?
				h.ServeHTTP(w, r)
				return
			}

			rlog := logger.FromContext(r.Context())

			tokenString := ""
			bearer := r.Header.Get("Authorization")
			if len(bearer) > 0 && bearer != "null" {
				if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
					tokenString = bearer[7:]
				} else {
					tokenString = bearer
				}
			}
			if len(tokenString) == 0 {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims := Claims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, keyLookup)
			if err != nil || !token.Valid || len(claims.Subject) == 0 {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			principal := Principal{}
			var fullName, appRole sql.NullString
			err = jmb.DB.QueryRow(principalQuery, claims.Subject).
				Scan(&principal.ID, &principal.Email, &fullName, &appRole)
			if err == csql.ErrNoRows {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if err != nil {
				rlog.WithError(err).Errorf("Error 4723: cannot execute principal query `%s`", principalQuery)
				http.Error(w, "Error 4723", http.StatusInternalServerError)
				return
			}
			principal.Name = fullName.String
			principal.Role = appRole.String

			ctx := ContextWithPrincipal(r.Context(), &principal)
			ctx, _ = logger.ContextWithLoggerIdentity(ctx, principal.Email)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
