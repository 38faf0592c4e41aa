// Package premiumaccess собирает HTTP-приложение премиум-доступа.
package premiumaccess

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/premium-access/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/premium-access/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/premium-access/internal/http/handlers/health"
	"github.com/magabrotheeeer/premium-access/internal/http/handlers/payment/approve"
	"github.com/magabrotheeeer/premium-access/internal/http/handlers/payment/banktransfer"
	"github.com/magabrotheeeer/premium-access/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/premium-access/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/premium-access/internal/http/handlers/payment/paymentstatus"
	"github.com/magabrotheeeer/premium-access/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/premium-access/internal/http/handlers/payment/proof"
	"github.com/magabrotheeeer/premium-access/internal/http/handlers/payment/reject"
	premiumstatus "github.com/magabrotheeeer/premium-access/internal/http/handlers/premium/status"
	"github.com/magabrotheeeer/premium-access/internal/http/handlers/user/access"
	"github.com/magabrotheeeer/premium-access/internal/http/handlers/user/subscriptionupdate"
	"github.com/magabrotheeeer/premium-access/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/premium-access/internal/services/auth"
	paymentservice "github.com/magabrotheeeer/premium-access/internal/services/payment"
	subservice "github.com/magabrotheeeer/premium-access/internal/services/subscription"
)

// Services зависимости обработчиков.
type Services struct {
	Auth          *authservice.Service
	Subscriptions *subservice.Service
	Payments      *paymentservice.Workflow
	Storage       health.Checker
}

// RateLimit параметры ограничения частоты запросов.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Webhook настройки маршрута уведомлений провайдера.
type Webhook struct {
	Secret string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc Services, limit RateLimit, hook Webhook) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger, svc.Storage).ServeHTTP)

	// Открытые конечные точки
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, limit.RPS, limit.Burst))
		r.Post("/register", register.New(logger, svc.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, svc.Auth).ServeHTTP)
		r.With(middlewarectx.WebhookToken(logger, hook.Secret)).
			Post("/webhooks/payment", paymentwebhook.New(logger, svc.Payments).ServeHTTP)
	})

	// Группа с JWT аутентификацией
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.JWTMiddleware(svc.Auth, logger))
		r.Use(middlewarectx.RateLimitMiddleware(logger, limit.RPS, limit.Burst))

		r.Post("/payments/create", paymentcreate.New(logger, svc.Payments).ServeHTTP)
		r.Post("/payments/bank-transfer", banktransfer.New(logger, svc.Payments).ServeHTTP)
		r.Post("/payments/proof", proof.New(logger, svc.Payments).ServeHTTP)
		r.Get("/payments/status/{paymentId}", paymentstatus.New(logger, svc.Payments).ServeHTTP)

		r.With(middlewarectx.SelfOrAdmin(logger, "userId")).
			Get("/payments/user/{userId}", paymentlist.New(logger, svc.Payments).ServeHTTP)
		r.With(middlewarectx.SelfOrAdmin(logger, "userId")).
			Get("/users/{userId}/access", access.New(logger, svc.Subscriptions).ServeHTTP)

		r.With(middlewarectx.PremiumAccess(logger, svc.Subscriptions)).
			Get("/premium/status", premiumstatus.ServeHTTP)

		// Только для администраторов
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.AdminOnly(logger))
			r.Post("/payments/approve/{paymentId}", approve.New(logger, svc.Payments).ServeHTTP)
			r.Post("/payments/reject/{paymentId}", reject.New(logger, svc.Payments).ServeHTTP)
			r.Put("/users/{userId}/subscription", subscriptionupdate.New(logger, svc.Subscriptions).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
