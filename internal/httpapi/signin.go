package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sajera/apikit/internal/service"
	"github.com/sajera/apikit/pkg/httpx"
	"github.com/sajera/apikit/pkg/slogx"
)

// SignInHandler serves POST /sign-in.
type SignInHandler struct {
	Users    *service.UserService
	Sessions *service.SessionService
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ServeHTTP godoc
//
//	@Summary		Sign in with email and password
//	@Description	Verifies credentials and returns the session token pair. Signing in again
//	@Description	while a session is live returns the same pair instead of minting a new one.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		signInRequest	true	"email, password"
//	@Success		200		{object}	domain.Auth		"schema, accessToken, refreshToken"
//	@Failure		401		{object}	httpx.ErrorBody	"invalid credentials"
//	@Failure		422		{object}	httpx.ErrorBody	"validation failure list"
//	@Router			/sign-in [post].
func (h *SignInHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "invalid body")
		return
	}

	u, err := h.Users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeInvalidCredentials, "invalid credentials")
			return
		}
		slogx.FromContext(ctx).Error("sign-in failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
		return
	}

	session, err := h.Sessions.FindOrCreate(ctx, u.ID, sessionPayload(u))
	if err != nil {
		slogx.FromContext(ctx).Error("session find-or-create failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, session.Auth())
}
