// Package reject обрабатывает отклонение платежа администратором.
package reject

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/premium-access/internal/http/response"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/models"
	"github.com/magabrotheeeer/premium-access/internal/services/payment"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

// Request тело запроса, может отсутствовать.
type Request struct {
	Reason string `json:"reason"`
}

// Service принимает решение по платежу.
type Service interface {
	ProcessRejection(ctx context.Context, paymentID string, reason *string) (*models.PaymentRecord, error)
}

// Handler обрабатывает POST /payments/reject/{paymentId}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отклонить платёж
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param paymentId path string true "ID платежа"
// @Param request body Request false "Причина"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /payments/reject/{paymentId} [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.reject"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "paymentId")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("paymentId is required"))
		return
	}

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	var reason *string
	if s := strings.TrimSpace(req.Reason); s != "" {
		reason = &s
	}

	_, err := h.service.ProcessRejection(r.Context(), id, reason)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrPaymentNotFound), errors.Is(err, storage.ErrUserNotFound):
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("payment not found"))
		return
	case errors.Is(err, payment.ErrAlreadyFinalized):
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("payment already finalized"))
		return
	default:
		log.Error("failed to reject payment", sl.PaymentID(id), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("payment rejected", sl.PaymentID(id))
	render.JSON(w, r, response.OK())
}
