package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Fingerprint derives a deterministic, keyed one-way identifier for value.
// The same key and value always produce the same output, and recovering the
// value from the output requires the key. Session ids are derived this way
// from user ids so a token holder cannot learn the user id from the sid.
func Fingerprint(key []byte, value string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
