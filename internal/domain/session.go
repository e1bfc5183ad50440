package domain

import "encoding/json"

// AuthSchema is the token schema handed to clients and expected back in the
// Authorization header.
const AuthSchema = "Bearer"

// Session is the cache-resident record of one active login. Its existence is
// the source of truth for session validity: a structurally valid token whose
// record has been deleted is rejected by full verification. The record
// carries no expiry of its own, once the refresh token expires lookups stop
// succeeding anyway.
type Session struct {
	SID          string          `json:"sid"`
	UserID       string          `json:"userId"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	Schema       string          `json:"schema"`
	// Payload is opaque caller-defined data attached at login, e.g. display
	// fields for the UI.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Auth is the public token triple returned by sign-up, sign-in and refresh.
type Auth struct {
	Schema       string `json:"schema"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Auth returns the public view of the session.
func (s Session) Auth() Auth {
	return Auth{
		Schema:       s.Schema,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
}
