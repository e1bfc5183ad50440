package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sajera/apikit/pkg/validate"
)

// fakeAuthenticator accepts the token "good" and rejects everything else,
// recording how it was called.
type fakeAuthenticator struct {
	calls []AuthMode
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token string, mode AuthMode) (Identity, error) {
	f.calls = append(f.calls, mode)
	if token == "good" {
		return Identity{SessionID: "sid-1", UserID: "user-1"}, nil
	}
	return Identity{}, errors.New("unauthorized")
}

func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPipeline_Ordering(t *testing.T) {
	t.Parallel()

	auth := &fakeAuthenticator{}
	p := &Pipeline{Auth: auth}

	validatorCalls := 0
	countingRule := func(value any, present bool) string {
		validatorCalls++
		return ""
	}

	e := Endpoint{
		Method: http.MethodPost,
		Path:   "/things",
		Auth:   AuthRequired,
		Body:   validate.New(validate.NewField("name", countingRule)),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
		}),
	}
	h := p.Build(e)

	t.Run("step order is fixed", func(t *testing.T) {
		names := make([]string, 0)
		for _, s := range p.Steps(Endpoint{
			Auth:   AuthRequired,
			Body:   validate.New(),
			Query:  validate.New(),
			Params: validate.New(),
		}) {
			names = append(names, s.Name)
		}
		require.Equal(t, []string{"auth", "body", "query", "params"}, names)
	})

	t.Run("401 without reaching body validation", func(t *testing.T) {
		validatorCalls = 0
		req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader(`{"name":"x"}`))
		w := serve(t, h, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Equal(t, CodeUnauthorized, decodeError(t, w).Code)
		require.Zero(t, validatorCalls, "validator must not run for unauthenticated requests")
	})

	t.Run("invalid token also short-circuits", func(t *testing.T) {
		validatorCalls = 0
		req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader(`{"name":"x"}`))
		req.Header.Set("Authorization", "Bearer bad")
		w := serve(t, h, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Zero(t, validatorCalls)
	})

	t.Run("authenticated request runs validators then handler", func(t *testing.T) {
		validatorCalls = 0
		req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader(`{"name":"x"}`))
		req.Header.Set("Authorization", "Bearer good")
		w := serve(t, h, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 1, validatorCalls)
	})
}

func TestPipeline_ValidationAggregation(t *testing.T) {
	t.Parallel()

	p := &Pipeline{}
	e := Endpoint{
		Method: http.MethodPost,
		Path:   "/sign-up",
		Body: validate.New(
			validate.NewField("email", validate.Required(), validate.Email()),
			validate.NewField("password", validate.Required(), validate.MinLen(8)),
		),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run on validation failure")
		}),
	}
	h := p.Build(e)

	req := httptest.NewRequest(http.MethodPost, "/sign-up",
		strings.NewReader(`{"email":"nope","password":"short"}`))
	w := serve(t, h, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Code string               `json:"code"`
		Err  []validate.FieldError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, CodeValidationFailed, body.Code)
	require.Len(t, body.Err, 2, "both field failures reported together")
}

func TestPipeline_MalformedBody(t *testing.T) {
	t.Parallel()

	p := &Pipeline{}
	h := p.Build(Endpoint{
		Method:  http.MethodPost,
		Path:    "/sign-up",
		Body:    validate.New(validate.NewField("email", validate.Required())),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	})

	req := httptest.NewRequest(http.MethodPost, "/sign-up", strings.NewReader(`{not json`))
	w := serve(t, h, req)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPipeline_BodyRestoredForHandler(t *testing.T) {
	t.Parallel()

	p := &Pipeline{}
	h := p.Build(Endpoint{
		Method: http.MethodPost,
		Path:   "/sign-up",
		Body:   validate.New(validate.NewField("email", validate.Required())),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var in struct {
				Email string `json:"email"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			WriteJSON(w, http.StatusOK, in)
		}),
	})

	req := httptest.NewRequest(http.MethodPost, "/sign-up", strings.NewReader(`{"email":"a@b.com"}`))
	w := serve(t, h, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "a@b.com")
}

func TestPipeline_AuthCombinations(t *testing.T) {
	t.Parallel()

	// Optional vs required and lightweight vs full are independent axes.
	for _, tc := range []struct {
		name       string
		req        AuthRequirement
		mode       AuthMode
		token      string
		wantStatus int
		wantState  AuthState
	}{
		{"required full ok", AuthRequired, AuthFull, "good", http.StatusOK, AuthStateAuthenticated},
		{"required full bad", AuthRequired, AuthFull, "bad", http.StatusUnauthorized, 0},
		{"required lightweight ok", AuthRequired, AuthLightweight, "good", http.StatusOK, AuthStateAuthenticated},
		{"required lightweight bad", AuthRequired, AuthLightweight, "bad", http.StatusUnauthorized, 0},
		{"optional full ok", AuthOptional, AuthFull, "good", http.StatusOK, AuthStateAuthenticated},
		{"optional full bad", AuthOptional, AuthFull, "bad", http.StatusOK, AuthStateRejected},
		{"optional lightweight bad", AuthOptional, AuthLightweight, "bad", http.StatusOK, AuthStateRejected},
		{"optional absent", AuthOptional, AuthFull, "", http.StatusOK, AuthStateAnonymous},
	} {
		t.Run(tc.name, func(t *testing.T) {
			auth := &fakeAuthenticator{}
			p := &Pipeline{Auth: auth}

			var gotState AuthState
			h := p.Build(Endpoint{
				Method: http.MethodGet,
				Path:   "/self",
				Auth:   tc.req,
				Mode:   tc.mode,
				Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					gotState = AuthResultFrom(r.Context()).State
					w.WriteHeader(http.StatusOK)
				}),
			})

			req := httptest.NewRequest(http.MethodGet, "/self", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			w := serve(t, h, req)

			require.Equal(t, tc.wantStatus, w.Code)
			if tc.wantStatus == http.StatusOK {
				require.Equal(t, tc.wantState, gotState)
			}
			if tc.token != "" {
				require.Equal(t, []AuthMode{tc.mode}, auth.calls, "mode passed through")
			}
		})
	}
}

func TestPipeline_PanicRecovery(t *testing.T) {
	t.Parallel()

	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	t.Run("debug off hides detail", func(t *testing.T) {
		p := &Pipeline{Debug: false}
		w := serve(t, p.Build(Endpoint{Method: "GET", Path: "/x", Handler: boom}),
			httptest.NewRequest(http.MethodGet, "/x", nil))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeError(t, w)
		require.Equal(t, CodeInternal, body.Code)
		require.Empty(t, body.Debug)
	})

	t.Run("debug on includes detail", func(t *testing.T) {
		p := &Pipeline{Debug: true}
		w := serve(t, p.Build(Endpoint{Method: "GET", Path: "/x", Handler: boom}),
			httptest.NewRequest(http.MethodGet, "/x", nil))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.Equal(t, "boom", decodeError(t, w).Debug)
	})

	t.Run("panic after response does not double-write", func(t *testing.T) {
		p := &Pipeline{}
		h := p.Build(Endpoint{Method: "GET", Path: "/x", Handler: http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
				panic("late")
			})})
		w := serve(t, h, httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, BearerToken(r))

	r.Header.Set("Authorization", "Basic abc")
	require.Empty(t, BearerToken(r))

	r.Header.Set("Authorization", "Bearer the-token")
	require.Equal(t, "the-token", BearerToken(r))
}
