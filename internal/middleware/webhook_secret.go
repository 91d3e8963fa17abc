package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// SecretHeader es el header con el que Telegram firma cada webhook
// (el secret_token pasado a setWebhook).
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookSecret:
// - El header tiene que coincidir exacto; si no, 401 sin tocar el handler.
// - Sin secret configurado no pasa nada: todo 401.
func WebhookSecret(secret string) func(http.Handler) http.Handler {
	secret = strings.TrimSpace(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(SecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
