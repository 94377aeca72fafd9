package orders

import (
	"fmt"
	"time"

	"github.com/attos/attos-backend/pkg/config"
	"github.com/attos/attos-backend/pkg/enums"
)

// Timing holds how long an order dwells in each non-terminal stage and the
// promised delivery lead time.
type Timing struct {
	Dwell    map[enums.DeliveryStage]time.Duration
	LeadTime time.Duration
}

// DefaultTiming mirrors the configuration defaults.
func DefaultTiming() Timing {
	return Timing{
		Dwell: map[enums.DeliveryStage]time.Duration{
			enums.DeliveryStageOrderPlaced: 5 * time.Second,
			enums.DeliveryStagePreparing:   5 * time.Second,
			enums.DeliveryStagePickedUp:    5 * time.Second,
			enums.DeliveryStageOnTheWay:    15 * time.Second,
		},
		LeadTime: 10 * time.Minute,
	}
}

// TimingFromConfig maps lifecycle configuration onto a Timing.
func TimingFromConfig(cfg config.LifecycleConfig) Timing {
	return Timing{
		Dwell: map[enums.DeliveryStage]time.Duration{
			enums.DeliveryStageOrderPlaced: cfg.OrderPlacedDwell,
			enums.DeliveryStagePreparing:   cfg.PreparingDwell,
			enums.DeliveryStagePickedUp:    cfg.PickedUpDwell,
			enums.DeliveryStageOnTheWay:    cfg.OnTheWayDwell,
		},
		LeadTime: cfg.LeadTime,
	}
}

// Validate requires a non-negative dwell for every non-terminal stage.
func (t Timing) Validate() error {
	for _, stage := range enums.DeliveryStages() {
		if stage.IsTerminal() {
			continue
		}
		d, ok := t.Dwell[stage]
		if !ok {
			return fmt.Errorf("dwell for stage %s is required", stage)
		}
		if d < 0 {
			return fmt.Errorf("dwell for stage %s must be non-negative", stage)
		}
	}
	if t.LeadTime < 0 {
		return fmt.Errorf("lead time must be non-negative")
	}
	return nil
}

// DwellFor returns the dwell for stage; zero for the terminal stage.
func (t Timing) DwellFor(stage enums.DeliveryStage) time.Duration {
	return t.Dwell[stage]
}
