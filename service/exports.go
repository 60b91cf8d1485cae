package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/export"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/model"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/validation"
	"github.com/google/uuid"
)

var (
	ErrJobNotFound = errors.New("export job not found")
	ErrJobNotReady = errors.New("export job has not finished")
)

// ExportService runs batch exports in the background and tracks them.
type ExportService struct {
	source   export.Source
	exporter *export.Exporter
	jobs     *JobStore
	storage  ArchiveStorage // optional
	loc      *time.Location
}

// NewExportService creates a new export service. storage may be nil, in
// which case finished archives are kept in memory.
func NewExportService(src export.Source, exp *export.Exporter, jobs *JobStore, storage ArchiveStorage, loc *time.Location) *ExportService {
	if loc == nil {
		loc = time.Local
	}
	return &ExportService{source: src, exporter: exp, jobs: jobs, storage: storage, loc: loc}
}

func (s *ExportService) Jobs() *JobStore { return s.jobs }

func (s *ExportService) Location() *time.Location { return s.loc }

// Start validates req, resolves its employees and runs it in the background.
// Request problems are returned immediately; failures while rendering end
// up on the job.
func (s *ExportService) Start(ctx context.Context, req validation.ExportRequest) (*ExportJob, error) {
	if err := validation.ValidateExportRequest(&req, s.loc); err != nil {
		return nil, err
	}
	docs, err := s.exporter.Catalog().Select(req.Documents)
	if err != nil {
		return nil, err
	}
	targets, err := export.ResolveTargets(ctx, s.source, req, s.loc)
	if err != nil {
		return nil, err
	}
	if len(export.PlanUnits(docs, targets)) == 0 {
		return nil, export.ErrNothingToExport
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := &ExportJob{
		ID:        uuid.New().String(),
		Request:   req,
		State:     JobRunning,
		CreatedAt: time.Now(),
		cancel:    cancel,
	}
	runCtx = logger.WithJob(runCtx, job.ID)
	s.jobs.Save(job)

	go s.run(runCtx, cancel, job, func(ctx context.Context) (*export.Result, error) {
		return s.exporter.Batch(ctx, docs, targets, req.Output, job.Progress.Set)
	})
	return job, nil
}

func (s *ExportService) run(ctx context.Context, cancel context.CancelFunc, job *ExportJob, fn func(context.Context) (*export.Result, error)) {
	state, errMsg := JobFailed, ""
	var (
		res    *export.Result
		object string
	)
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "export job panicked", "panic", r)
			state, res, object, errMsg = JobFailed, nil, "", "error interno al generar los documentos"
		}
		s.jobs.Finish(job.ID, state, res, object, errMsg)
		cancel()
	}()

	res, err := fn(ctx)
	switch {
	case errors.Is(err, export.ErrCancelled):
		state, errMsg = JobCancelled, "exportación cancelada"
		logger.Info(ctx, "export job cancelled")
		return
	case err != nil:
		errMsg = userMessage(err)
		logger.Error(ctx, "export job failed", "error", err)
		return
	}

	if s.storage != nil {
		name, err := storeArchive(ctx, s.storage, job.ID, res.Name, res.ContentType, res.Data, job.CreatedAt.In(s.loc))
		if err != nil {
			logger.Warn(ctx, "failed to store export archive, keeping it in memory", "error", err)
		} else {
			object = name
		}
	}
	state = JobDone
	logger.Info(ctx, "export job finished", "units", res.Units, "bytes", len(res.Data), "object", object)
}

// userMessage hides internal detail from the job error.
func userMessage(err error) string {
	var ue *export.UnitError
	if errors.As(err, &ue) {
		return fmt.Sprintf("no se pudo generar %s para el DNI %s", ue.Document, ue.DNI)
	}
	return "no se pudo completar la exportación"
}

// Cancel stops a running job.
func (s *ExportService) Cancel(id string) error {
	if s.jobs.Get(id) == nil {
		return ErrJobNotFound
	}
	s.jobs.Cancel(id)
	return nil
}

// Download returns the finished job's bytes, or a presigned URL when the
// archive lives in object storage.
func (s *ExportService) Download(ctx context.Context, id string) (*export.Result, string, error) {
	job := s.jobs.Get(id)
	if job == nil {
		return nil, "", ErrJobNotFound
	}
	v, _ := s.jobs.View(id)
	if v.State != JobDone {
		return nil, "", fmt.Errorf("%w: %s", ErrJobNotReady, v.State)
	}
	s.jobs.mu.RLock()
	res, object := job.Result, job.Object
	s.jobs.mu.RUnlock()
	if object != "" && s.storage != nil {
		url, err := s.storage.GetPresignedURL(ctx, object, res.Name)
		if err == nil {
			return res, url, nil
		}
		logger.Warn(ctx, "failed to presign export archive", "error", err)
	}
	return res, "", nil
}

// Target collects what single-contract export needs for c.
func (s *ExportService) Target(ctx context.Context, c *model.Contract) (export.Target, error) {
	if c.Employee == nil {
		return export.Target{}, model.ErrNoEmployee
	}
	sig, err := s.source.SignatureData(ctx, c)
	if err != nil {
		return export.Target{}, err
	}
	return export.Target{Employee: c.Employee, Contract: c, Signature: sig}, nil
}

func (s *ExportService) Exporter() *export.Exporter { return s.exporter }
