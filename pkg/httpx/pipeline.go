package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sajera/apikit/pkg/slogx"
	"github.com/sajera/apikit/pkg/validate"
)

// AuthRequirement declares whether an endpoint needs authentication.
type AuthRequirement int

const (
	// AuthNone skips the auth step entirely.
	AuthNone AuthRequirement = iota
	// AuthOptional runs verification but lets the request continue
	// anonymously when it fails.
	AuthOptional
	// AuthRequired terminates the request with 401 when verification fails.
	AuthRequired
)

// AuthMode selects the verification consistency guarantee.
type AuthMode int

const (
	// AuthFull verifies the token and checks the session record still
	// exists, so server-side invalidation is observed immediately.
	AuthFull AuthMode = iota
	// AuthLightweight trusts signature and expiry alone, skipping the store
	// round trip. A signed-out session passes until its token expires; call
	// sites opt into that trade-off explicitly.
	AuthLightweight
)

// Authenticator verifies a bearer token and resolves it to an identity.
// Implementations must not reveal why verification failed.
type Authenticator interface {
	Authenticate(ctx context.Context, token string, mode AuthMode) (Identity, error)
}

// Endpoint is the declarative description of one route: which checks run
// before the handler and with which schemas. It replaces the decorator
// metadata of annotation-based frameworks with a plain value constructed at
// registration time.
type Endpoint struct {
	Method string
	Path   string

	Auth AuthRequirement
	Mode AuthMode

	Body   *validate.Schema
	Query  *validate.Schema
	Params *validate.Schema

	Handler http.Handler
}

// Pattern returns the mux registration pattern, e.g. "POST /sign-in".
func (e Endpoint) Pattern() string {
	return e.Method + " " + e.Path
}

// Step is one stage of an endpoint's pipeline. run may write a response to
// terminate the request and may derive a new request to thread context.
type Step struct {
	Name string

	run func(w *ResponseRecorder, r *http.Request) *http.Request
}

// Pipeline assembles ordered step lists from endpoint declarations and runs
// them with a single error-handling seam.
type Pipeline struct {
	Auth  Authenticator
	Debug bool
}

// Steps returns the ordered checks for e. The order is fixed: authentication
// first (validation failures must not leak to unauthenticated callers), then
// body, query and path-parameter validation. Exposed so tests and tooling can
// inspect what a route will do without sending requests.
func (p *Pipeline) Steps(e Endpoint) []Step {
	var steps []Step
	if e.Auth != AuthNone {
		steps = append(steps, p.authStep(e))
	}
	if e.Body != nil {
		steps = append(steps, p.bodyStep(e.Body))
	}
	if e.Query != nil {
		steps = append(steps, p.queryStep(e.Query))
	}
	if e.Params != nil {
		steps = append(steps, p.paramsStep(e.Params))
	}
	return steps
}

// Build compiles the endpoint into a handler. Each step is preceded by a
// "response already produced" check rather than relying on panics, because
// steps signal failure by writing a response. A panic anywhere is caught
// centrally and mapped to a 500 with the uniform error body.
func (p *Pipeline) Build(e Endpoint) http.Handler {
	steps := p.Steps(e)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &ResponseRecorder{ResponseWriter: w}

		defer func() {
			if v := recover(); v != nil {
				slogx.FromContext(r.Context()).Error("handler panic", "panic", v)
				if !rec.Written() {
					p.writeError(rec, http.StatusInternalServerError,
						CodeInternal, "internal error", fmt.Sprintf("%v", v))
				}
			}
		}()

		for _, s := range steps {
			if rec.Written() {
				return
			}
			r = s.run(rec, r)
		}

		if rec.Written() {
			return
		}
		e.Handler.ServeHTTP(rec, r)
	})
}

func (p *Pipeline) authStep(e Endpoint) Step {
	return Step{Name: "auth", run: func(rec *ResponseRecorder, r *http.Request) *http.Request {
		ctx := r.Context()

		raw := BearerToken(r)
		if raw == "" {
			if e.Auth == AuthRequired {
				p.unauthorized(rec)
				return r
			}
			return r.WithContext(WithAuthResult(ctx, AuthResult{State: AuthStateAnonymous}))
		}

		id, err := p.Auth.Authenticate(ctx, raw, e.Mode)
		if err != nil {
			// Root cause stays in the log; the wire only sees 401.
			slogx.FromContext(ctx).Warn("authentication failed", "err", err)
			if e.Auth == AuthRequired {
				p.unauthorized(rec)
				return r
			}
			return r.WithContext(WithAuthResult(ctx, AuthResult{State: AuthStateRejected}))
		}

		return r.WithContext(WithAuthResult(ctx, AuthResult{
			State:    AuthStateAuthenticated,
			Identity: id,
		}))
	}}
}

func (p *Pipeline) bodyStep(schema *validate.Schema) Step {
	return Step{Name: "body", run: func(rec *ResponseRecorder, r *http.Request) *http.Request {
		buf, err := io.ReadAll(r.Body)
		if err != nil {
			p.writeError(rec, http.StatusUnprocessableEntity, CodeValidationFailed,
				validate.Errors{{Field: "body", Message: "could not be read"}}, "")
			return r
		}
		// Put the body back so the handler can decode it again.
		r.Body = io.NopCloser(bytes.NewReader(buf))

		values := map[string]any{}
		if len(bytes.TrimSpace(buf)) > 0 {
			if err := json.Unmarshal(buf, &values); err != nil {
				p.writeError(rec, http.StatusUnprocessableEntity, CodeValidationFailed,
					validate.Errors{{Field: "body", Message: "must be valid JSON"}}, "")
				return r
			}
		}

		if errs := schema.Apply(values); len(errs) > 0 {
			p.writeError(rec, http.StatusUnprocessableEntity, CodeValidationFailed, errs, "")
		}
		return r
	}}
}

func (p *Pipeline) queryStep(schema *validate.Schema) Step {
	return Step{Name: "query", run: func(rec *ResponseRecorder, r *http.Request) *http.Request {
		values := map[string]any{}
		for key, vals := range r.URL.Query() {
			if len(vals) > 0 {
				values[key] = vals[0]
			}
		}

		if errs := schema.Apply(values); len(errs) > 0 {
			p.writeError(rec, http.StatusUnprocessableEntity, CodeValidationFailed, errs, "")
		}
		return r
	}}
}

// paramsStep validates path parameters. A failure here means the URL does not
// identify a resource, so it maps to 404 rather than 422.
func (p *Pipeline) paramsStep(schema *validate.Schema) Step {
	return Step{Name: "params", run: func(rec *ResponseRecorder, r *http.Request) *http.Request {
		values := map[string]any{}
		for _, name := range schema.FieldNames() {
			if v := r.PathValue(name); v != "" {
				values[name] = v
			}
		}

		if errs := schema.Apply(values); len(errs) > 0 {
			p.writeError(rec, http.StatusNotFound, CodeNotFound, errs, "")
		}
		return r
	}}
}

// unauthorized is the single generic auth rejection. Bad signature, expiry
// and invalidated sessions are indistinguishable on the wire.
func (p *Pipeline) unauthorized(w http.ResponseWriter) {
	p.writeError(w, http.StatusUnauthorized, CodeUnauthorized, "unauthorized", "")
}

func (p *Pipeline) writeError(w http.ResponseWriter, status int, code string, detail any, debug string) {
	body := ErrorBody{Code: code, Err: detail}
	if p.Debug {
		body.Debug = debug
	}
	WriteJSON(w, status, body)
}

// BearerToken extracts the token from the Authorization header, or "".
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
}

// ResponseRecorder wraps a ResponseWriter and records whether a response has
// been produced, which is what the pipeline's short-circuit rule checks.
type ResponseRecorder struct {
	http.ResponseWriter

	wrote bool
}

// Written reports whether any step has produced a response.
func (rec *ResponseRecorder) Written() bool { return rec.wrote }

func (rec *ResponseRecorder) WriteHeader(code int) {
	rec.wrote = true
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *ResponseRecorder) Write(b []byte) (int, error) {
	rec.wrote = true
	return rec.ResponseWriter.Write(b)
}
