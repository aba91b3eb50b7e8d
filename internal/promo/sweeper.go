package promo

import (
	"context"
	"time"
)

// StartSweeper runs an expiry sweep immediately and then on a fixed
// interval until the context is cancelled.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	s.SweepExpired()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepExpired()
			}
		}
	}()
}
