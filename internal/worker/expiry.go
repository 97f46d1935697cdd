package worker

import (
	"context"
	"log"
	"time"

	"github.com/prasetyo/car-rental-service/internal/service"
)

// RunExpirySweep cancels pending bookings whose checkout window has lapsed.
// Runs until ctx is cancelled. The sweep is the safety net behind the gateway's
// own expired events, which can be lost.
func RunExpirySweep(ctx context.Context, svc service.BookingService, interval, ttl time.Duration) {
	log.Printf("[ExpiryWorker] started, sweeping every %s (ttl %s)", interval, ttl)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ExpiryWorker] stopped")
			return
		case <-ticker.C:
			n, err := svc.ExpirePending(ctx, time.Now().Add(-ttl))
			if err != nil {
				log.Printf("[ExpiryWorker] sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[ExpiryWorker] expired %d pending bookings", n)
			}
		}
	}
}
