package app

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyFromRequest reads the key from the X-API-Key header, falling back to
// the key query parameter.
func APIKeyFromRequest(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("key")
}

// RequestHasInvalidAPIKey is false for every request when no keys are
// configured.
func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	if len(app.Config.ApiKeys) == 0 {
		return false
	}
	return app.IsInvalidAPIKey(APIKeyFromRequest(r))
}

func (app *Application) IsInvalidAPIKey(key string) bool {
	if key == "" {
		return true
	}

	validKeys := app.Config.ApiKeys
	for _, validKey := range validKeys {
		// Use constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			return false
		}
	}

	return true
}
