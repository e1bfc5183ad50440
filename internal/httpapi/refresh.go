package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sajera/apikit/internal/service"
	"github.com/sajera/apikit/pkg/httpx"
	"github.com/sajera/apikit/pkg/slogx"
)

// RefreshHandler serves POST /refresh.
type RefreshHandler struct {
	Sessions *service.SessionService
}

type refreshRequest struct {
	Token string `json:"token"`
}

// ServeHTTP godoc
//
//	@Summary		Exchange a refresh token for a live token pair
//	@Description	Mints a new access token only when the stored one has expired; otherwise
//	@Description	the current pair is returned unchanged.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		refreshRequest	true	"refresh token"
//	@Success		200		{object}	domain.Auth		"schema, accessToken, refreshToken"
//	@Failure		401		{object}	httpx.ErrorBody	"invalid or expired refresh token"
//	@Failure		422		{object}	httpx.ErrorBody	"validation failure list"
//	@Router			/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "invalid body")
		return
	}

	session, err := h.Sessions.RefreshTokens(ctx, req.Token)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "unauthorized")
			return
		}
		slogx.FromContext(ctx).Error("refresh failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, session.Auth())
}
