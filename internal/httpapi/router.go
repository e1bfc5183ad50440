// Package httpapi wires the declarative endpoint pipeline onto a ServeMux
// and implements the HTTP handlers for the session API.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sajera/apikit/internal/service"
	"github.com/sajera/apikit/internal/store/session"
	"github.com/sajera/apikit/internal/store/user"
	"github.com/sajera/apikit/pkg/httpx"
	"github.com/sajera/apikit/pkg/slogx"
	"github.com/sajera/apikit/pkg/validate"

	_ "github.com/sajera/apikit/api" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	pipeline     *httpx.Pipeline
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	sessionStore session.Store
	userStore    user.Store

	Sessions *service.SessionService
	Users    *service.UserService
}

func NewRouter(
	sessions *service.SessionService,
	users *service.UserService,
	sessionStore session.Store,
	userStore user.Store,
	buildVersion string,
	debug bool,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		sessionStore: sessionStore,
		userStore:    userStore,
		Sessions:     sessions,
		Users:        users,
	}

	r.pipeline = &httpx.Pipeline{
		Auth:  &sessionAuthenticator{Sessions: sessions},
		Debug: debug,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			APIKit Session Service API
//	@version		0.1.0
//	@description	Session-based authentication with paired HS256 access/refresh tokens.
//	@description	Login is idempotent: repeat sign-ins converge on the same session record.
//
//	@contact.name	sajera
//	@contact.url	https://github.com/sajera/apikit
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle compiles the endpoint through the pipeline and registers it with
// its route middlewares (rate limits).
func (r *Router) handle(e httpx.Endpoint, middlewares ...httpx.Middleware) {
	r.Mux.Handle(e.Pattern(), httpx.Chain(r.pipeline.Build(e), middlewares...))
}

func (r *Router) registerAuth() {
	// Credential endpoints take the strictest IP limit, they are the brute
	// force surface.
	r.handle(httpx.Endpoint{
		Method: http.MethodPost,
		Path:   "/sign-up",
		Body: validate.New(
			validate.NewField("email", validate.Required(), validate.IsString(), validate.Email()),
			validate.NewField("password", validate.Required(), validate.IsString(), validate.MinLen(8), validate.MaxLen(72)),
			validate.NewField("name", validate.Required(), validate.IsString(), validate.MinLen(1), validate.MaxLen(100)),
		),
		Handler: &SignUpHandler{Users: r.Users, Sessions: r.Sessions},
	}, httpx.RateLimitByIP(httpx.StrictLimit))

	r.handle(httpx.Endpoint{
		Method: http.MethodPost,
		Path:   "/sign-in",
		Body: validate.New(
			validate.NewField("email", validate.Required(), validate.IsString(), validate.Email()),
			validate.NewField("password", validate.Required(), validate.IsString()),
		),
		Handler: &SignInHandler{Users: r.Users, Sessions: r.Sessions},
	}, httpx.RateLimitByIP(httpx.StrictLimit))

	r.handle(httpx.Endpoint{
		Method: http.MethodPost,
		Path:   "/refresh",
		Body: validate.New(
			validate.NewField("token", validate.Required(), validate.IsString()),
		),
		Handler: &RefreshHandler{Sessions: r.Sessions},
	}, httpx.RateLimitByIP(httpx.ModerateLimit))

	// Sign-out verifies lightweight: the point is to delete the record, a
	// store round trip to check it exists first buys nothing.
	r.handle(httpx.Endpoint{
		Method:  http.MethodDelete,
		Path:    "/sign-out",
		Auth:    httpx.AuthRequired,
		Mode:    httpx.AuthLightweight,
		Handler: &SignOutHandler{Sessions: r.Sessions},
	}, httpx.RateLimitBySession(httpx.ModerateLimit))

	// Self verifies full so a signed-out token is rejected immediately.
	r.handle(httpx.Endpoint{
		Method:  http.MethodGet,
		Path:    "/self",
		Auth:    httpx.AuthRequired,
		Mode:    httpx.AuthFull,
		Handler: &SelfHandler{Users: r.Users},
	}, httpx.RateLimitBySession(httpx.LenientLimit))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.sessionStore, r.userStore))
}
