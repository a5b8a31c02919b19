package server

import (
	"context"
	"time"
)

const housekeepingInterval = time.Minute

// Housekeeping drops idle visitor states and stale rate limiter buckets
// until ctx is done.
func (srv *Server) Housekeeping(ctx context.Context) {
	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.sweep()
		}
	}
}

func (srv *Server) sweep() {
	if n := srv.deps.Registry.Evict(srv.config.StateTTL); n > 0 {
		srv.deps.Logger.Infof("evicted %d idle visitor states", n)
	}
	if srv.limiter != nil {
		srv.limiter.Cleanup()
	}
}
