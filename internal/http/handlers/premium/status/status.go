// Package status отдаёт состояние доступа текущего пользователя.
// Маршрут закрыт middleware PremiumAccess, поэтому сюда попадают только пользователи с доступом.
package status

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/premium-access/internal/http/middlewarectx"
)

// Response состояние доступа.
type Response struct {
	Success   bool   `json:"success"`
	UserID    string `json:"userId"`
	IsTrial   bool   `json:"isTrial"`
	DaysLeft  int    `json:"daysLeft"`
	HasAccess bool   `json:"hasAccess"`
}

// ServeHTTP godoc
// @Summary Премиум-статус
// @Tags Users
// @Produce  json
// @Success 200 {object} Response
// @Failure 403 {object} response.ErrorResponse
// @Router /premium/status [get]
// @Security BearerAuth
func ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, _ := middlewarectx.UserIDFrom(r.Context())
	st, _ := middlewarectx.AccessFrom(r.Context())
	render.JSON(w, r, Response{
		Success:   true,
		UserID:    userID,
		IsTrial:   st.IsTrial,
		DaysLeft:  st.DaysLeft,
		HasAccess: st.HasAccess,
	})
}
