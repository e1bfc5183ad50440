package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sajera/apikit/internal/domain"
	"github.com/sajera/apikit/internal/service"
	"github.com/sajera/apikit/pkg/httpx"
	"github.com/sajera/apikit/pkg/slogx"
)

// SignUpHandler serves POST /sign-up.
type SignUpHandler struct {
	Users    *service.UserService
	Sessions *service.SessionService
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// ServeHTTP godoc
//
//	@Summary		Register a new account
//	@Description	Creates an account and immediately opens a session, returning the token pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		signUpRequest	true	"email, password, name"
//	@Success		200		{object}	domain.Auth		"schema, accessToken, refreshToken"
//	@Failure		400		{object}	httpx.ErrorBody	"email already registered"
//	@Failure		422		{object}	httpx.ErrorBody	"validation failure list"
//	@Router			/sign-up [post].
func (h *SignUpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "invalid body")
		return
	}

	u, err := h.Users.SignUp(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "email already registered")
			return
		}
		slogx.FromContext(ctx).Error("sign-up failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
		return
	}

	session, err := h.Sessions.Create(ctx, u.ID, sessionPayload(u))
	if err != nil {
		slogx.FromContext(ctx).Error("session create failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, session.Auth())
}

// sessionPayload is the opaque record payload attached at login. It carries
// the display fields the token claims surface.
func sessionPayload(u domain.User) json.RawMessage {
	raw, _ := json.Marshal(u.Profile())
	return raw
}
