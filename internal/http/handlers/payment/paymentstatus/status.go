// Package paymentstatus возвращает статус платежа.
package paymentstatus

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/premium-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/premium-access/internal/http/response"
	"github.com/magabrotheeeer/premium-access/internal/lib/sl"
	"github.com/magabrotheeeer/premium-access/internal/models"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

// Response статус платежа.
type Response struct {
	Status    models.RecordStatus `json:"status"`
	PaymentID string              `json:"paymentId"`
}

// Service читает платёж.
type Service interface {
	Status(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
}

// Handler обрабатывает GET /payments/status/{paymentId}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Статус платежа
// @Tags Payments
// @Produce  json
// @Param paymentId path string true "ID платежа"
// @Success 200 {object} Response
// @Failure 404 {object} response.ErrorResponse
// @Router /payments/status/{paymentId} [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "paymentId")
	rec, err := h.service.Status(r.Context(), id)
	if errors.Is(err, storage.ErrPaymentNotFound) {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("payment not found"))
		return
	}
	if err != nil {
		log.Error("failed to read payment", sl.PaymentID(id), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	if !middlewarectx.CanActFor(r.Context(), rec.UserID) {
		// чужой платёж не раскрываем
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("payment not found"))
		return
	}

	render.JSON(w, r, Response{Status: rec.Status, PaymentID: rec.ID})
}
