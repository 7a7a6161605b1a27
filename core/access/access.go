/*Package access provides the authentication gate: a JWT bearer token
middleware, the login and identity routes, and the users table.
*/
package access

import (
	"context"
)

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

const (
	contextKeyPrincipal contextKey = "_principal_"
)

// Principal is the authenticated caller of a request. It is resolved
// from the bearer token on every request and stored in the request
// context.
type Principal struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"full_name"`
	Role  string `json:"app_role"`
}

// the known roles
const (
	RoleAdmin           = "admin"
	RoleOfficeManager   = "office_manager"
	RoleAgent           = "agent"
	RolePropertyManager = "property_manager"
	RoleProjectManager  = "project_manager"
)

// HasRole returns true if the principal carries the requested role.
// The admin role implies all other roles.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	return p.Role == role || p.Role == RoleAdmin
}

// ContextWithPrincipal returns a new context with this principal added to it
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, p)
}

// PrincipalFromContext retrieves the principal from the context. It
// returns nil for unauthenticated requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, ok := ctx.Value(contextKeyPrincipal).(*Principal)
	if ok {
		return p
	}
	return nil
}
