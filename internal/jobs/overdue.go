// Package jobs runs the library's scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sevakendra/mel/internal/ledger"
	"github.com/sevakendra/mel/internal/model"
)

// OverdueSource is the part of the ledger the overdue report reads.
type OverdueSource interface {
	Today() model.Date
	Overdue(ctx context.Context, asOf model.Date) ([]model.Rental, error)
}

var _ OverdueSource = (*ledger.Ledger)(nil)

// reportTimeout bounds a single report run.
const reportTimeout = time.Minute

// OverdueReport logs how many rentals are overdue today and one line per
// rental so the desk can call the patients. It returns the count.
func OverdueReport(ctx context.Context, src OverdueSource, log *slog.Logger) (int, error) {
	today := src.Today()
	rentals, err := src.Overdue(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("listing overdue rentals: %w", err)
	}

	log.Info("overdue report", "date", today.String(), "overdue", len(rentals))
	for i := range rentals {
		r := &rentals[i]
		log.Warn("rental overdue",
			"rental", r.ID,
			"patient", r.PatientName,
			"mobile", r.MobileNumber,
			"equipment", r.EquipmentName,
			"return_date", r.ReturnDate.String(),
			"days_late", r.DaysLate(today))
	}
	return len(rentals), nil
}

// Scheduler runs the overdue report on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	src  OverdueSource
	log  *slog.Logger
}

// NewScheduler creates a scheduler whose schedules are read in loc and carry a
// seconds field.
func NewScheduler(src OverdueSource, loc *time.Location, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		src:  src,
		log:  log,
	}
}

// ScheduleOverdueReport registers the report under a cron schedule.
func (s *Scheduler) ScheduleOverdueReport(schedule string) error {
	_, err := s.cron.AddFunc(schedule, s.runOverdueReport)
	if err != nil {
		return fmt.Errorf("scheduling overdue report %q: %w", schedule, err)
	}
	s.log.Info("overdue report scheduled", "schedule", schedule)
	return nil
}

func (s *Scheduler) runOverdueReport() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	if _, err := OverdueReport(ctx, s.src, s.log); err != nil {
		s.log.Error("overdue report failed", "error", err)
	}
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running report to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}
