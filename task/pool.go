package task

import (
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/javajack/xlmap"
)

// ErrBusy is returned by TrySubmit when every worker is occupied.
var ErrBusy = errors.New("all workers are busy")

// Runner executes one job. *xlmap.Processor satisfies it.
type Runner interface {
	Run(job xlmap.Job) (*xlmap.Result, error)
}

// Pool runs jobs on a bounded number of goroutines, one job per goroutine.
// A failed job never affects the others.
type Pool struct {
	runner   Runner
	registry *Registry
	log      *zap.Logger
	g        errgroup.Group
}

// NewPool creates a pool of the given size. Each job gets a registry entry
// before it is queued.
func NewPool(workers int, runner Runner, registry *Registry, log *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pool{runner: runner, registry: registry, log: log}
	p.g.SetLimit(workers)
	return p
}

// Submit registers the job for owner and runs it, waiting for a free worker
// if needed. It returns the task id.
func (p *Pool) Submit(owner string, job xlmap.Job) string {
	job.TaskID = p.registry.Create(owner)
	p.g.Go(p.work(job))
	return job.TaskID
}

// TrySubmit is like Submit but returns ErrBusy instead of waiting.
func (p *Pool) TrySubmit(owner string, job xlmap.Job) (string, error) {
	job.TaskID = p.registry.Create(owner)
	if !p.g.TryGo(p.work(job)) {
		p.registry.Finish(job.TaskID, xlmap.Outcome{Status: "Ошибка: " + ErrBusy.Error()})
		return job.TaskID, ErrBusy
	}
	return job.TaskID, nil
}

// Wait blocks until every submitted job has finished.
func (p *Pool) Wait() {
	_ = p.g.Wait()
}

func (p *Pool) work(job xlmap.Job) func() error {
	return func() error {
		if _, err := p.runner.Run(job); err != nil {
			p.log.Warn("task failed", zap.String("task", job.TaskID), zap.Error(err))
		}
		return nil
	}
}
