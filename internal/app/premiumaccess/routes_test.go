package premiumaccess

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/premium-access/internal/access"
	"github.com/magabrotheeeer/premium-access/internal/lib/jwt"
	authservice "github.com/magabrotheeeer/premium-access/internal/services/auth"
	paymentservice "github.com/magabrotheeeer/premium-access/internal/services/payment"
	subservice "github.com/magabrotheeeer/premium-access/internal/services/subscription"
)

type readyChecker struct{}

func (readyChecker) Ready(context.Context) error { return nil }

func newTestRouter(t *testing.T) (http.Handler, *jwt.Maker) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	maker := jwt.NewJWTMaker("secret", time.Hour)

	r := chi.NewRouter()
	RegisterRoutes(r, log, Services{
		Auth:          authservice.New(nil, maker, log),
		Subscriptions: subservice.New(nil, nil, access.New(3), log),
		Payments:      paymentservice.New(nil, nil, nil, nil, nil, log),
		Storage:       readyChecker{},
	}, RateLimit{RPS: 1000, Burst: 1000}, Webhook{Secret: "hook-secret"})
	return r, maker
}

func TestRoutes_Guards(t *testing.T) {
	router, maker := newTestRouter(t)
	userToken, err := maker.GenerateToken("u1", false)
	require.NoError(t, err)

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     string
		hook     string
		wantCode int
	}{
		{name: "health is public", method: http.MethodGet, path: "/health", wantCode: http.StatusOK},
		{name: "metrics are public", method: http.MethodGet, path: "/metrics", wantCode: http.StatusOK},
		{name: "create needs token", method: http.MethodPost, path: "/payments/create", body: `{}`, wantCode: http.StatusUnauthorized},
		{name: "approve needs token", method: http.MethodPost, path: "/payments/approve/p1", wantCode: http.StatusUnauthorized},
		{name: "approve needs admin", method: http.MethodPost, path: "/payments/approve/p1", token: userToken, wantCode: http.StatusForbidden},
		{name: "reject needs admin", method: http.MethodPost, path: "/payments/reject/p1", token: userToken, wantCode: http.StatusForbidden},
		{name: "subscription replace needs admin", method: http.MethodPut, path: "/users/u1/subscription", token: userToken, body: `{}`, wantCode: http.StatusForbidden},
		{name: "other user's payments", method: http.MethodGet, path: "/payments/user/u2", token: userToken, wantCode: http.StatusForbidden},
		{name: "other user's access", method: http.MethodGet, path: "/users/u2/access", token: userToken, wantCode: http.StatusForbidden},
		{name: "premium status needs token", method: http.MethodGet, path: "/premium/status", wantCode: http.StatusUnauthorized},
		{name: "webhook needs provider token", method: http.MethodPost, path: "/webhooks/payment", body: `{}`, wantCode: http.StatusUnauthorized},
		{name: "webhook rejects wrong provider token", method: http.MethodPost, path: "/webhooks/payment", body: `{}`, hook: "nope", wantCode: http.StatusUnauthorized},
		{name: "webhook with provider token skips jwt", method: http.MethodPost, path: "/webhooks/payment", body: `{}`, hook: "hook-secret", wantCode: http.StatusBadRequest},
		{name: "create validates before service", method: http.MethodPost, path: "/payments/create", token: userToken, body: `{"userId":"u1"}`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			if tt.token != "" {
				r.Header.Set("Authorization", "Bearer "+tt.token)
			}
			if tt.hook != "" {
				r.Header.Set("X-Webhook-Token", tt.hook)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
