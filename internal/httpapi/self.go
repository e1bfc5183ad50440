package httpapi

import (
	"errors"
	"net/http"

	"github.com/sajera/apikit/internal/service"
	"github.com/sajera/apikit/internal/store/user"
	"github.com/sajera/apikit/pkg/httpx"
	"github.com/sajera/apikit/pkg/slogx"
)

// SelfHandler serves GET /self.
type SelfHandler struct {
	Users *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Current user's profile
//	@Description	Verified in full mode: the session record must still exist, so a
//	@Description	signed-out token is rejected even before its expiry.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	domain.Profile	"id, email, name"
//	@Failure		401	{object}	httpx.ErrorBody	"missing, invalid or signed-out token"
//	@Router			/self [get].
func (h *SelfHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := httpx.IdentityFrom(ctx)
	if !ok || id.UserID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "unauthorized")
		return
	}

	u, err := h.Users.GetUserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// Session outlived the account.
			httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "unauthorized")
			return
		}
		slogx.FromContext(ctx).Error("self lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, u.Profile())
}
