package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/export"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/validation"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the nightly export of the previous day's signed contracts.
type Scheduler struct {
	cron    *cron.Cron
	exports *ExportService
	now     func() time.Time
}

// NewScheduler registers the nightly export on spec, a 5-field cron
// expression evaluated in the export time zone.
func NewScheduler(exports *ExportService, spec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(exports.Location())),
		exports: exports,
		now:     time.Now,
	}
	if _, err := s.cron.AddFunc(spec, func() {
		ctx := logger.WithJob(context.Background(), "nightly")
		if _, err := s.RunNightly(ctx); err != nil {
			logger.Warn(ctx, "nightly export not started", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid export schedule %q: %w", spec, err)
	}
	return s, nil
}

// NightlyRequest asks for every document of the contracts created the day
// before now, in the export time zone.
func NightlyRequest(now time.Time, loc *time.Location) validation.ExportRequest {
	day := now.In(loc).AddDate(0, 0, -1).Format(validation.DayLayout)
	return validation.ExportRequest{
		Scope:  validation.ScopeDay,
		Day:    day,
		Output: validation.OutputZIP,
	}
}

// RunNightly starts the export for yesterday. A day without signed contracts
// is not an error.
func (s *Scheduler) RunNightly(ctx context.Context) (*ExportJob, error) {
	req := NightlyRequest(s.now(), s.exports.Location())
	job, err := s.exports.Start(ctx, req)
	if errors.Is(err, export.ErrNoTargets) || errors.Is(err, export.ErrNothingToExport) {
		logger.Info(ctx, "nightly export skipped, nothing signed", "day", req.Day)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "nightly export started", "day", req.Day, "export_job", job.ID)
	return job, nil
}

// Run starts the cron loop and stops it when ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
