package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// RequireAPIKey authenticates admin requests. The presented key is hashed
// with HMAC-SHA256 under the server pepper, looked up by hash, and the stored
// hash is compared in constant time.
func (h *Handler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("api_key")
		if key == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		computed := h.hashAPIKey(key)

		info, err := h.apikeys.FindByHash(r.Context(), hex.EncodeToString(computed))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil {
			zctx.From(r.Context()).Warn("Malformed stored key hash", zap.String("key_id", info.ID))
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if subtle.ConstantTimeCompare(computed, stored) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) hashAPIKey(key string) []byte {
	mac := hmac.New(sha256.New, []byte(h.apiKeyPepper))
	mac.Write([]byte(key))
	return mac.Sum(nil)
}
