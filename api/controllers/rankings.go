package controllers

import (
	"context"
	"net/http"

	"github.com/attos/attos-backend/api/responses"
	"github.com/attos/attos-backend/api/validators"
	"github.com/attos/attos-backend/internal/ranking"
	pkgerrors "github.com/attos/attos-backend/pkg/errors"
	"github.com/attos/attos-backend/pkg/logger"
)

type rankingReader interface {
	Rankings(ctx context.Context) ([]ranking.Item, error)
}

type rankingsResponse struct {
	Rankings []ranking.Item `json:"rankings"`
}

// ListRankings returns the most ordered products, limited by ?limit= (default 10).
func ListRankings(svc rankingReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 10, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.Rankings(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rankings"))
			return
		}
		if len(items) > limit {
			items = items[:limit]
		}
		if items == nil {
			items = []ranking.Item{}
		}
		responses.WriteSuccess(w, rankingsResponse{Rankings: items})
	}
}
