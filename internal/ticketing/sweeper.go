package ticketing

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/Guesen/sistem-antrian-puskesmas/internal/store"
)

var sweepRemoved = expvar.NewInt("sweep_removed_total")

// Sweeper deletes tickets whose issue day fell out of the retention window.
type Sweeper struct {
	store         store.TicketStore
	location      *time.Location
	retentionDays int
	running       int32
}

func NewSweeper(st store.TicketStore, loc *time.Location, retentionDays int) *Sweeper {
	if loc == nil {
		loc = DefaultLocation
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Sweeper{store: st, location: loc, retentionDays: retentionDays}
}

// Sweep never fails from the caller's point of view; errors are logged.
func (s *Sweeper) Sweep(ctx context.Context, reference time.Time) int64 {
	cutoff := CutoffDay(reference, s.location, s.retentionDays)
	removed, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("retention sweep error: %v", fmt.Errorf("%w: cutoff=%s: %w", ErrMaintenance, cutoff, err))
		return 0
	}
	if removed > 0 {
		sweepRemoved.Add(removed)
		log.Printf("retention sweep removed=%d cutoff=%s", removed, cutoff)
	}
	return removed
}

// Run sweeps every interval until ctx is done. A tick that finds the previous
// sweep still running is skipped.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration, now func() time.Time) {
	if interval <= 0 {
		return
	}
	if now == nil {
		now = time.Now
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
				continue
			}
			sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			s.Sweep(sweepCtx, now())
			cancel()
			atomic.StoreInt32(&s.running, 0)
		}
	}
}
