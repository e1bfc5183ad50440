package httpx

import "context"

// AuthState distinguishes "no credentials supplied" from "credentials supplied
// and rejected, but the endpoint permits anonymous access". Required auth
// never reaches a handler in the rejected state, the pipeline terminates with
// 401 first.
type AuthState int

const (
	// AuthStateAnonymous means no bearer token was presented.
	AuthStateAnonymous AuthState = iota
	// AuthStateAuthenticated means verification succeeded.
	AuthStateAuthenticated
	// AuthStateRejected means a token was presented and failed verification
	// on an endpoint with optional auth.
	AuthStateRejected
)

// Identity is the authenticated session context the pipeline hands to
// handlers. UserID and the display fields are empty under lightweight
// verification, only the session record knows them.
type Identity struct {
	SessionID string
	UserID    string
	Name      string
	Email     string
}

// AuthResult is the tri-state outcome of the pipeline's auth step.
type AuthResult struct {
	State    AuthState
	Identity Identity
}

type ctxKey int

const authResultKey ctxKey = iota

// WithAuthResult stores the auth outcome on the context.
func WithAuthResult(ctx context.Context, res AuthResult) context.Context {
	return context.WithValue(ctx, authResultKey, res)
}

// AuthResultFrom returns the auth outcome, defaulting to anonymous when the
// auth step never ran.
func AuthResultFrom(ctx context.Context) AuthResult {
	if res, ok := ctx.Value(authResultKey).(AuthResult); ok {
		return res
	}
	return AuthResult{State: AuthStateAnonymous}
}

// IdentityFrom returns the authenticated identity, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	res := AuthResultFrom(ctx)
	return res.Identity, res.State == AuthStateAuthenticated
}
