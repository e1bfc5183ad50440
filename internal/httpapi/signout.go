package httpapi

import (
	"net/http"

	"github.com/sajera/apikit/internal/service"
	"github.com/sajera/apikit/pkg/httpx"
	"github.com/sajera/apikit/pkg/slogx"
)

// SignOutHandler serves DELETE /sign-out.
type SignOutHandler struct {
	Sessions *service.SessionService
}

// ServeHTTP godoc
//
//	@Summary		Sign out of the current session
//	@Description	Deletes the session record so full-mode verification rejects the tokens
//	@Description	immediately. Idempotent: signing out twice succeeds both times.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{string}	string			"OK"
//	@Failure		401	{object}	httpx.ErrorBody	"missing or invalid token"
//	@Router			/sign-out [delete].
func (h *SignOutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := httpx.IdentityFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "unauthorized")
		return
	}

	if err := h.Sessions.Invalidate(ctx, id.SessionID); err != nil {
		slogx.FromContext(ctx).Error("sign-out failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, "OK")
}
