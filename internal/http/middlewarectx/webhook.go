package middlewarectx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/premium-access/internal/http/response"
)

// WebhookTokenHeader заголовок с общим секретом платёжного провайдера.
const WebhookTokenHeader = "X-Webhook-Token"

// WebhookToken пропускает запрос только с верным общим секретом в WebhookTokenHeader.
// Пустой secret отключает проверку.
func WebhookToken(log *slog.Logger, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			log.Warn("webhook secret is not configured, provider requests are not authenticated")
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(WebhookTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				log.Warn("webhook token mismatch",
					slog.String("request_id", middleware.GetReqID(r.Context())))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid webhook token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
