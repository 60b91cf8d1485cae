package render

import (
	"context"
	"errors"
	"image"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
)

var ErrWorkerStopped = errors.New("render worker stopped")

// Capturer turns one page into an image.
type Capturer interface {
	Capture(ctx context.Context, p Page) (image.Image, error)
}

// Request asks for every page of one document to be captured.
type Request struct {
	Label string
	Pages []Page
}

type job struct {
	ctx   context.Context
	req   Request
	reply chan result
}

type result struct {
	images []image.Image
	err    error
}

// Worker owns the single capture slot: requests are served one at a time in
// arrival order.
type Worker struct {
	capturer Capturer
	queue    chan job
	stopped  chan struct{}
}

// NewWorker creates a worker capturing pages with c one at a time. Run must
// be started for queued captures to be served.
func NewWorker(c Capturer, queueSize int) *Worker {
	if queueSize < 0 {
		queueSize = 0
	}
	return &Worker{
		capturer: c,
		queue:    make(chan job, queueSize),
		stopped:  make(chan struct{}),
	}
}

// Run serves requests until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stopped)
	logger.Info(ctx, "render worker started")
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "render worker stopped")
			return nil
		case j := <-w.queue:
			images, err := w.serve(j)
			j.reply <- result{images: images, err: err}
		}
	}
}

func (w *Worker) serve(j job) ([]image.Image, error) {
	if err := j.ctx.Err(); err != nil {
		return nil, err
	}
	images := make([]image.Image, 0, len(j.req.Pages))
	for _, p := range j.req.Pages {
		img, err := w.capturer.Capture(j.ctx, p)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	logger.Debug(j.ctx, "document captured", "document", j.req.Label, "pages", len(images))
	return images, nil
}

// Render queues req and waits for its pages.
func (w *Worker) Render(ctx context.Context, req Request) ([]image.Image, error) {
	j := job{ctx: ctx, req: req, reply: make(chan result, 1)}
	select {
	case w.queue <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.stopped:
		return nil, ErrWorkerStopped
	}
	select {
	case res := <-j.reply:
		return res.images, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.stopped:
		return nil, ErrWorkerStopped
	}
}
