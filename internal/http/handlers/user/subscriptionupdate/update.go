// Package subscriptionupdate позволяет администратору заменить подписку пользователя целиком.
package subscriptionupdate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/premium-access/internal/http/response"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/models"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

// Response новая подписка.
type Response struct {
	Success      bool                `json:"success"`
	Subscription models.Subscription `json:"subscription"`
}

// Service заменяет подписку.
type Service interface {
	Replace(ctx context.Context, userID string, sub models.Subscription) (models.Subscription, error)
}

// Handler обрабатывает PUT /users/{userId}/subscription.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Заменить подписку
// @Description Подписка заменяется целиком и должна быть согласованной
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param userId path string true "ID пользователя"
// @Param request body models.Subscription true "Подписка"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{userId}/subscription [put]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.subscriptionupdate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := chi.URLParam(r, "userId")
	var sub models.Subscription
	if err := render.DecodeJSON(r.Body, &sub); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	saved, err := h.service.Replace(r.Context(), userID, sub)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		case errors.Is(err, models.ErrInvalidSubscription),
			errors.Is(err, models.ErrUnknownPlan),
			errors.Is(err, models.ErrUnknownStatus):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid subscription"))
		default:
			log.Error("failed to replace subscription", sl.UserID(userID), sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("subscription replaced", sl.UserID(userID))
	render.JSON(w, r, Response{Success: true, Subscription: saved})
}
