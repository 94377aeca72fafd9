package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/attos/attos-backend/api/responses"
	"github.com/attos/attos-backend/api/validators"
	"github.com/attos/attos-backend/internal/cart"
	"github.com/attos/attos-backend/internal/catalog"
	"github.com/attos/attos-backend/internal/promo"
	pkgerrors "github.com/attos/attos-backend/pkg/errors"
	"github.com/attos/attos-backend/pkg/logger"
)

type cartService interface {
	AddItem(ctx context.Context, product catalog.Product, qty int) (cart.Line, bool)
	RemoveItem(ctx context.Context, productID string) bool
	SetQuantity(ctx context.Context, productID string, qty int) (cart.Line, bool)
	Clear(ctx context.Context)
	ApplyPromo(ctx context.Context, code string) (promo.Result, error)
	ClearPromo()
	Snapshot() cart.Snapshot
}

type productLookup interface {
	Get(id string) (catalog.Product, bool)
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"gt=0,max=99"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,max=99"`
}

type applyPromoRequest struct {
	Code string `json:"code" validate:"max=32"`
}

type applyPromoResponse struct {
	Promo promo.Result  `json:"promo"`
	Cart  cart.Snapshot `json:"cart"`
}

func GetCart(svc cartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Snapshot())
	}
}

// AddCartItem adds a catalog product to the cart. Unknown products are
// NOT_FOUND and out-of-stock products are CONFLICT.
func AddCartItem(svc cartService, products productLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID := strings.TrimSpace(payload.ProductID)
		product, ok := products.Get(productID)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{"product_id": productID}))
			return
		}
		if !product.InStock {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "product is out of stock").WithDetails(map[string]any{"product_id": productID}))
			return
		}

		if _, ok := svc.AddItem(r.Context(), product, payload.Quantity); !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, svc.Snapshot())
	}
}

// UpdateCartItem sets a line's quantity; zero removes the line.
func UpdateCartItem(svc cartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := strings.TrimSpace(chi.URLParam(r, "productID"))

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, ok := svc.SetQuantity(r.Context(), productID, payload.Quantity); !ok {
			responses.WriteError(r.Context(), logg, w, cartLineNotFound(productID))
			return
		}
		responses.WriteSuccess(w, svc.Snapshot())
	}
}

func RemoveCartItem(svc cartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := strings.TrimSpace(chi.URLParam(r, "productID"))
		if !svc.RemoveItem(r.Context(), productID) {
			responses.WriteError(r.Context(), logg, w, cartLineNotFound(productID))
			return
		}
		responses.WriteSuccess(w, svc.Snapshot())
	}
}

func ClearCart(svc cartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Clear(r.Context())
		responses.WriteSuccess(w, svc.Snapshot())
	}
}

func ApplyPromo(svc cartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload applyPromoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ApplyPromo(r.Context(), payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, applyPromoResponse{Promo: result, Cart: svc.Snapshot()})
	}
}

func RemovePromo(svc cartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.ClearPromo()
		responses.WriteSuccess(w, svc.Snapshot())
	}
}

func cartLineNotFound(productID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart").WithDetails(map[string]any{"product_id": productID})
}
