package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sajera/apikit/internal/domain"
	"github.com/sajera/apikit/internal/service"
	sessionmem "github.com/sajera/apikit/internal/store/session/drivers/memory"
	usermem "github.com/sajera/apikit/internal/store/user/drivers/memory"
	"github.com/sajera/apikit/pkg/cryptox"
	"github.com/sajera/apikit/pkg/httpx"
	"github.com/sajera/apikit/pkg/jwtx"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	secret := []byte("e2e-token-secret")
	sessionStore := sessionmem.NewStore()
	userStore := usermem.NewStore()

	sessions := &service.SessionService{
		Store:         sessionStore,
		Access:        jwtx.NewCodec(secret, jwtx.DefaultAccessTokenTTL, "apikit"),
		Refresh:       jwtx.NewCodec(secret, jwtx.DefaultRefreshTokenTTL, "apikit"),
		SessionSecret: []byte("e2e-session-secret"),
	}
	users := &service.UserService{
		Store: userStore,
		// Cheapest sane argon2 cost, the e2e suite hashes a handful of times.
		HashParams: cryptox.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	}

	logger := slog.New(slog.DiscardHandler)
	router := NewRouter(sessions, users, sessionStore, userStore, "test", false, logger)
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, srv.URL+path, buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, raw
}

func decodeAuth(t *testing.T, raw []byte) domain.Auth {
	t.Helper()
	var auth domain.Auth
	require.NoError(t, json.Unmarshal(raw, &auth))
	require.Equal(t, "Bearer", auth.Schema)
	require.NotEmpty(t, auth.AccessToken)
	require.NotEmpty(t, auth.RefreshToken)
	return auth
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	creds := map[string]string{
		"email":    "alice@example.com",
		"password": "correct-horse-battery",
		"name":     "Alice",
	}

	resp, raw := do(t, srv, http.MethodPost, "/sign-up", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	signedUp := decodeAuth(t, raw)

	// Signing in while the session is live converges on the same pair.
	resp, raw = do(t, srv, http.MethodPost, "/sign-in", "", map[string]string{
		"email": creds["email"], "password": creds["password"],
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	signedIn := decodeAuth(t, raw)
	require.Equal(t, signedUp.AccessToken, signedIn.AccessToken)
	require.Equal(t, signedUp.RefreshToken, signedIn.RefreshToken)

	// Profile under full verification.
	resp, raw = do(t, srv, http.MethodGet, "/self", signedIn.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile domain.Profile
	require.NoError(t, json.Unmarshal(raw, &profile))
	require.Equal(t, "alice@example.com", profile.Email)
	require.Equal(t, "Alice", profile.Name)
	require.NotEmpty(t, profile.ID)

	// Refresh with a live access token returns the pair unchanged.
	resp, raw = do(t, srv, http.MethodPost, "/refresh", "", map[string]string{
		"token": signedIn.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	refreshed := decodeAuth(t, raw)
	require.Equal(t, signedIn.AccessToken, refreshed.AccessToken)

	// Sign out, then the structurally valid token fails full verification.
	resp, _ = do(t, srv, http.MethodDelete, "/sign-out", signedIn.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = do(t, srv, http.MethodGet, "/self", signedIn.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var errBody httpx.ErrorBody
	require.NoError(t, json.Unmarshal(raw, &errBody))
	require.Equal(t, httpx.CodeUnauthorized, errBody.Code)

	// The refresh token died with the session record.
	resp, _ = do(t, srv, http.MethodPost, "/refresh", "", map[string]string{
		"token": signedIn.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Sign-out stays idempotent under lightweight verification.
	resp, _ = do(t, srv, http.MethodDelete, "/sign-out", signedIn.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignUp_Validation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, raw := do(t, srv, http.MethodPost, "/sign-up", "", map[string]string{
		"email":    "not-an-email",
		"password": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
		Err  []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Equal(t, httpx.CodeValidationFailed, body.Code)

	fields := make([]string, 0, len(body.Err))
	for _, fe := range body.Err {
		fields = append(fields, fe.Field)
	}
	// All invalid fields reported in one response.
	require.ElementsMatch(t, []string{"email", "password", "name"}, fields)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	creds := map[string]string{
		"email":    "bob@example.com",
		"password": "correct-horse-battery",
		"name":     "Bob",
	}
	resp, _ := do(t, srv, http.MethodPost, "/sign-up", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := do(t, srv, http.MethodPost, "/sign-up", "", creds)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errBody httpx.ErrorBody
	require.NoError(t, json.Unmarshal(raw, &errBody))
	require.Equal(t, httpx.CodeBadRequest, errBody.Code)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, raw := do(t, srv, http.MethodPost, "/sign-in", "", map[string]string{
		"email": "ghost@example.com", "password": "whatever-password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var errBody httpx.ErrorBody
	require.NoError(t, json.Unmarshal(raw, &errBody))
	require.Equal(t, httpx.CodeInvalidCredentials, errBody.Code)
}

func TestSelf_RequiresAuth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, _ := do(t, srv, http.MethodGet, "/self", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/self", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthProbes(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, raw := do(t, srv, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(raw, &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "test", health.Version)

	resp, raw = do(t, srv, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &health))
	require.Equal(t, "ok", health.Checks.Sessions)
	require.Equal(t, "ok", health.Checks.Users)
}
