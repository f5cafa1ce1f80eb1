package httpapi

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/mdextract/horosafe"
	"github.com/hazyhaar/mdextract/kit"
	"github.com/hazyhaar/mdextract/shield"
)

// APIKey is a named bcrypt hash of a bearer key.
type APIKey struct {
	Name string `yaml:"name" validate:"required"`
	Hash string `yaml:"hash" validate:"required"`
}

// HashAPIKey returns the bcrypt hash to store for key. Keys shorter than
// horosafe.MinKeyLen are refused.
func HashAPIKey(key string) (string, error) {
	if err := horosafe.ValidateKey(key); err != nil {
		return "", err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// requireAPIKey enforces "Authorization: Bearer <key>" when keys is non-empty
// and records the matching key name as the caller.
func requireAPIKey(keys []APIKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="mdextract"`)
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token", Kind: "unauthorized"})
				return
			}
			for _, k := range keys {
				if bcrypt.CompareHashAndPassword([]byte(k.Hash), []byte(token)) == nil {
					ctx := kit.WithCaller(r.Context(), k.Name)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			shield.GetLogger(r.Context()).Warn("auth: rejected api key", "ip", shield.ClientIP(r))
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid api key", Kind: "unauthorized"})
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
