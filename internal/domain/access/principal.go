package access

import "context"

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

// Principal is the authenticated actor a request runs as. For CUSTOMER
// principals CustomerID links to the customer record they may act on;
// for ADMIN it is nil. The principal travels explicitly through the
// request context, never through package-level state.
type Principal struct {
	Username   string
	Role       Role
	CustomerID *int64
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

type principalCtxKey struct{}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}
