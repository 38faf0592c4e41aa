package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/premium-access/internal/http/response"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/models"
)

// Access ключ состояния доступа в контексте.
const Access Key = "access"

// AccessService вычисляет состояние доступа пользователя.
type AccessService interface {
	Access(ctx context.Context, userID string) (models.AccessState, error)
}

// PremiumAccess пропускает только пользователей с доступом к премиум-контенту.
// Доступ вычисляется на каждый запрос и кладётся в контекст.
func PremiumAccess(log *slog.Logger, svc AccessService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.PremiumAccess"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			userID, ok := UserIDFrom(r.Context())
			if !ok {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}
			state, err := svc.Access(r.Context(), userID)
			if err != nil {
				log.Error("failed to evaluate access", sl.UserID(userID), sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal error"))
				return
			}
			if !state.HasAccess {
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("premium access required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), Access, state)))
		})
	}
}

// AccessFrom возвращает состояние доступа, положенное PremiumAccess.
func AccessFrom(ctx context.Context) (models.AccessState, bool) {
	st, ok := ctx.Value(Access).(models.AccessState)
	return st, ok
}
