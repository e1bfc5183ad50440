package httpapi

import (
	"context"
	"encoding/json"

	"github.com/sajera/apikit/internal/service"
	"github.com/sajera/apikit/pkg/httpx"
)

// sessionAuthenticator adapts SessionService to the pipeline's Authenticator
// seam, mapping the verification mode to the matching service call.
type sessionAuthenticator struct {
	Sessions *service.SessionService
}

func (a *sessionAuthenticator) Authenticate(ctx context.Context, token string, mode httpx.AuthMode) (httpx.Identity, error) {
	if mode == httpx.AuthLightweight {
		claims, err := a.Sessions.VerifyAccess(ctx, token)
		if err != nil {
			return httpx.Identity{}, err
		}
		// No user id under lightweight verification, the claims never
		// carried it.
		return httpx.Identity{
			SessionID: claims.SID,
			Name:      claims.Name,
			Email:     claims.Email,
		}, nil
	}

	record, err := a.Sessions.ResolveAccess(ctx, token)
	if err != nil {
		return httpx.Identity{}, err
	}

	id := httpx.Identity{
		SessionID: record.SID,
		UserID:    record.UserID,
	}
	if len(record.Payload) > 0 {
		var display struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := json.Unmarshal(record.Payload, &display); err == nil {
			id.Name = display.Name
			id.Email = display.Email
		}
	}
	return id, nil
}
