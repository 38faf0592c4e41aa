// Package middlewarectx содержит HTTP middleware: проверку JWT, права администратора,
// ограничение частоты запросов и проверку премиум-доступа.
//
// JWTMiddleware кладёт в контекст запроса идентификатор пользователя и признак
// администратора; остальные middleware и обработчики читают их через UserIDFrom и IsAdminFrom.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/premium-access/internal/http/response"
	"github.com/magabrotheeeer/premium-access/internal/lib/jwt"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID ключ идентификатора пользователя в контексте.
	UserID Key = "user_id"
	// IsAdmin ключ признака администратора в контексте.
	IsAdmin Key = "is_admin"
)

// TokenValidator проверяет JWT.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.CustomClaims, error)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
// При ошибке отвечает 401 Unauthorized.
func JWTMiddleware(auth TokenValidator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}

			claims, err := auth.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserID, claims.UserID)
			ctx = context.WithValue(ctx, IsAdmin, claims.IsAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFrom возвращает идентификатор пользователя из контекста.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserID).(string)
	return id, ok && id != ""
}

// IsAdminFrom сообщает, является ли пользователь запроса администратором.
func IsAdminFrom(ctx context.Context) bool {
	admin, _ := ctx.Value(IsAdmin).(bool)
	return admin
}

// CanActFor сообщает, может ли пользователь запроса действовать от имени userID.
func CanActFor(ctx context.Context, userID string) bool {
	if IsAdminFrom(ctx) {
		return true
	}
	id, ok := UserIDFrom(ctx)
	return ok && id == userID
}

// AdminOnly пропускает только администраторов, остальным отвечает 403.
func AdminOnly(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdminFrom(r.Context()) {
				log.Warn("admin route denied",
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())))
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SelfOrAdmin пропускает запрос, если параметр маршрута param совпадает
// с пользователем из токена, либо пользователь администратор.
func SelfOrAdmin(log *slog.Logger, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !CanActFor(r.Context(), chi.URLParam(r, param)) {
				log.Warn("access to another user's data denied",
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())))
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
