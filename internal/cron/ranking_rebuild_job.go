package cron

import (
	"context"
	"fmt"

	"github.com/attos/attos-backend/internal/orders"
)

// RankingRebuildJobName identifies the rebuild job in logs and metrics.
const RankingRebuildJobName = "ranking-rebuild"

type orderLister interface {
	ListOrders() []orders.Order
}

type rankingRebuilder interface {
	Rebuild(ctx context.Context, history []orders.Order) error
}

type rankingRebuildJob struct {
	orders   orderLister
	rankings rankingRebuilder
}

// NewRankingRebuildJob recomputes product rankings from the full order history.
func NewRankingRebuildJob(list orderLister, rankings rankingRebuilder) (Job, error) {
	if list == nil {
		return nil, fmt.Errorf("order lister required")
	}
	if rankings == nil {
		return nil, fmt.Errorf("ranking service required")
	}
	return &rankingRebuildJob{orders: list, rankings: rankings}, nil
}

func (j *rankingRebuildJob) Name() string { return RankingRebuildJobName }

func (j *rankingRebuildJob) Run(ctx context.Context) error {
	return j.rankings.Rebuild(ctx, j.orders.ListOrders())
}
