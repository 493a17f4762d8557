package jobs

import (
	"context"
	"log"
	"time"

	"invest-engine/internal/services"
)

// ROISweeper periodically runs the daily ROI accrual sweep. The sweep
// itself is idempotent per day, so a short interval only costs eligibility
// queries that select nothing.
type ROISweeper struct {
	roiService *services.ROIService
	interval   time.Duration
	stopChan   chan struct{}
}

// NewROISweeper creates a new ROI sweeper job
func NewROISweeper(roiService *services.ROIService, interval time.Duration) *ROISweeper {
	return &ROISweeper{
		roiService: roiService,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the sweep loop
func (rs *ROISweeper) Start() {
	log.Printf("[ROISweeper] Starting ROI sweep job (interval: %v)", rs.interval)

	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rs.runSweep()
		case <-rs.stopChan:
			log.Println("[ROISweeper] Stopping ROI sweep job")
			return
		}
	}
}

// Stop stops the sweep loop
func (rs *ROISweeper) Stop() {
	close(rs.stopChan)
}

func (rs *ROISweeper) runSweep() {
	ctx := context.Background()

	report, err := rs.roiService.SweepDaily(ctx)
	if err != nil {
		log.Printf("[ROISweeper] Sweep failed: %v", err)
		return
	}

	if report.Processed == 0 {
		return
	}

	log.Printf("[ROISweeper] Sweep done: processed=%d successful=%d skipped=%d failed=%d accrued=%s",
		report.Processed, report.Successful, report.Skipped, report.Failed, report.TotalAccrued)
}
