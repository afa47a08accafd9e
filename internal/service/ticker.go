package service

import (
	"context"
	"time"
)

// TickerService periodically re-evaluates every detector so that confirm
// delays expire even when a power sensor stops reporting mid-transition.
type TickerService struct {
	reg *registry
}

func NewTickerService(reg *registry) *TickerService {
	return &TickerService{reg: reg}
}

// Run ticks at the given interval until ctx is canceled.
func (s *TickerService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			for _, d := range s.reg.all() {
				d.Tick(now)
			}
		}
	}
}
