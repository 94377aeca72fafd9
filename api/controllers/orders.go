package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/attos/attos-backend/api/responses"
	"github.com/attos/attos-backend/api/validators"
	"github.com/attos/attos-backend/internal/checkout"
	"github.com/attos/attos-backend/internal/orders"
	pkgerrors "github.com/attos/attos-backend/pkg/errors"
	"github.com/attos/attos-backend/pkg/logger"
	"github.com/attos/attos-backend/pkg/pagination"
)

type orderReader interface {
	GetOrder(orderID string) (orders.Order, bool)
	ListOrdersPage(params pagination.Params) ([]orders.Order, string, error)
}

type placeOrderRequest struct {
	Address       string `json:"address" validate:"required,max=500"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=cod upi card"`
}

type orderListResponse struct {
	Orders     []orders.Order `json:"orders"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// PlaceOrder checks out the current cart.
func PlaceOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), checkout.Input{
			Address:       payload.Address,
			PaymentMethod: payload.PaymentMethod,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListOrders returns one page of orders, newest first. ?limit= caps the page
// and ?cursor= continues from a previous page's nextCursor.
func ListOrders(svc orderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, next, err := svc.ListOrdersPage(pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if list == nil {
			list = []orders.Order{}
		}
		responses.WriteSuccess(w, orderListResponse{Orders: list, NextCursor: next})
	}
}

func GetOrder(svc orderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
		order, ok := svc.GetOrder(orderID)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").WithDetails(map[string]any{"order_id": orderID}))
			return
		}
		responses.WriteSuccess(w, order)
	}
}
