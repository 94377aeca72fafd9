package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/attos/attos-backend/api/responses"
	"github.com/attos/attos-backend/api/validators"
	"github.com/attos/attos-backend/internal/catalog"
	pkgerrors "github.com/attos/attos-backend/pkg/errors"
	"github.com/attos/attos-backend/pkg/logger"
)

type productCatalog interface {
	List(category string) []catalog.Product
	Get(id string) (catalog.Product, bool)
}

type productListResponse struct {
	Products   []catalog.Product `json:"products"`
	Categories []string          `json:"categories"`
}

// ListProducts returns the catalog, optionally narrowed by ?category=.
func ListProducts(products productCatalog, categories func() []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := validators.SanitizeString(r.URL.Query().Get("category"), 64)
		resp := productListResponse{Products: products.List(category)}
		if categories != nil {
			resp.Categories = categories()
		}
		responses.WriteSuccess(w, resp)
	}
}

func GetProduct(products productCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "productID"))
		product, ok := products.Get(id)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{"product_id": id}))
			return
		}
		responses.WriteSuccess(w, product)
	}
}
