package delivery

import (
	"context"
	"fmt"

	"github.com/aatumaykin/dmbot/internal/action"
	"github.com/aatumaykin/dmbot/internal/workers"
)

// Deliverer performs one delivery attempt for an action.
type Deliverer interface {
	Deliver(ctx context.Context, a action.ScheduledAction) error
}

// Pooled runs deliveries on a bounded worker pool. Deliver blocks until the
// delivery finishes, so callers see the same result as calling next directly.
type Pooled struct {
	pool *workers.WorkerPool
	next Deliverer
}

// NewPooled wraps next.
func NewPooled(pool *workers.WorkerPool, next Deliverer) *Pooled {
	return &Pooled{pool: pool, next: next}
}

func (p *Pooled) Deliver(ctx context.Context, a action.ScheduledAction) error {
	res := p.pool.Run(ctx, workers.Task{
		ID:   fmt.Sprintf("action-%d", a.ID),
		Type: workers.TypeDelivery,
		Exec: func(ctx context.Context) (string, error) {
			if err := p.next.Deliver(ctx, a); err != nil {
				return "", err
			}
			return "delivered", nil
		},
	})
	return res.Error
}
