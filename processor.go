package xlmap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Job is one source/template pair plus the rule bundle to apply.
type Job struct {
	TaskID           string
	Source           io.Reader
	Template         io.Reader
	TemplateFilename string // original template file name; ".xlsm" marks a macro workbook
	Bundle           *Bundle
}

// Result is the output of a successful run.
type Result struct {
	Data     []byte
	Filename string
	Status   string
	Warnings []string
}

// Processor applies rule bundles to workbooks. A Processor holds no
// per-task state and may run many jobs concurrently; each job owns its
// workbooks exclusively.
type Processor struct {
	opts *Options
}

// NewProcessor creates a Processor with the given options.
func NewProcessor(opts ...Option) *Processor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Processor{opts: o}
}

// ProcessBytes runs a job on in-memory workbooks under a throwaway task id.
func (p *Processor) ProcessBytes(source, template []byte, b *Bundle) (*Result, error) {
	return p.Run(Job{
		TaskID:   "local",
		Source:   bytes.NewReader(source),
		Template: bytes.NewReader(template),
		Bundle:   b,
	})
}

// Run executes the rule families in their fixed order, reporting progress
// along the way, and returns the serialized template workbook. Any failure
// is terminal for the task: it is recorded in the task log and the registry,
// reported as a complete event without result, and returned as *TaskError.
func (p *Processor) Run(job Job) (res *Result, err error) {
	r := p.newRun(job)
	defer p.opts.store.Prune(job.TaskID)
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = p.fail(r, newTaskError(job.TaskID, r.stage, fmt.Errorf("panic: %v", rec)))
		}
	}()

	data, err := r.execute(job)
	if err != nil {
		return nil, p.fail(r, err)
	}
	return p.succeed(r, data), nil
}

func (p *Processor) newRun(job Job) *run {
	filename := job.TemplateFilename
	if filename == "" && job.Bundle != nil {
		filename = job.Bundle.OriginalFilename
	}
	if filename == "" {
		filename = "template.xlsx"
	}
	b := job.Bundle
	if b == nil {
		b = &Bundle{}
	}
	visible := b.VisibleRowsOnly
	if p.opts.visibleOn != nil {
		visible = *p.opts.visibleOn
	}
	return &run{
		opts:        p.opts,
		taskID:      job.TaskID,
		owner:       p.opts.store.Owner(job.TaskID),
		filename:    filename,
		bundle:      b,
		tStart:      b.TemplateStartRow(),
		startRows:   b.SheetStartRows(),
		visibleOnly: visible,
		log:         p.opts.logger.With(zap.String("task", job.TaskID)),
	}
}

func (p *Processor) succeed(r *run, data []byte) *Result {
	r.log.Info("task finished", zap.Int("bytes", len(data)), zap.Int("warnings", len(r.warnings)))
	r.record(StatusDone)
	p.opts.store.Finish(r.taskID, Outcome{
		Status:   StatusDone,
		Result:   data,
		Filename: r.filename,
		Warnings: r.warnings,
	})
	r.report(Event{
		TaskID:      r.taskID,
		Status:      StatusDone,
		Progress:    100,
		Complete:    true,
		ResultReady: true,
		Warnings:    r.warningsOrEmpty(),
	})
	return &Result{Data: data, Filename: r.filename, Status: StatusDone, Warnings: r.warnings}
}

func (p *Processor) fail(r *run, err error) error {
	var te *TaskError
	if !errors.As(err, &te) {
		te = newTaskError(r.taskID, r.stage, err)
	}
	status := statusErrorPrefix + te.Error()
	r.log.Error("task failed", zap.String("stage", te.Stage), zap.Error(te.Err))
	r.record(status)
	p.opts.store.Finish(r.taskID, Outcome{Status: status, Filename: r.filename, Warnings: r.warnings})
	r.report(Event{
		TaskID:   r.taskID,
		Status:   status,
		Progress: 100,
		Complete: true,
		Warnings: r.warningsOrEmpty(),
	})
	return te
}

// run is the state of one job while it executes.
type run struct {
	opts        *Options
	taskID      string
	owner       string
	filename    string
	bundle      *Bundle
	tStart      int
	startRows   map[string]int
	visibleOnly bool
	log         *zap.Logger

	src *Workbook
	tpl *Workbook

	stage    string
	progress int
	warnings []string

	usedTemplateCols map[int]bool
	usedSourceCols   map[string]map[int]bool
}

func (r *run) execute(job Job) ([]byte, error) {
	r.stage = "prepare"
	r.emit("Подготовка...", 5)

	if job.Source == nil {
		return nil, newTaskError(r.taskID, "load source", ErrNoSource)
	}
	if job.Template == nil {
		return nil, newTaskError(r.taskID, "load template", ErrNoTemplate)
	}

	r.stage = "load source"
	src, err := OpenWorkbook(job.Source)
	if err != nil {
		return nil, newTaskError(r.taskID, r.stage, err)
	}
	defer src.Close()
	r.src = src

	r.stage = "load template"
	tpl, err := OpenWorkbook(job.Template)
	if err != nil {
		return nil, newTaskError(r.taskID, r.stage, err)
	}
	defer tpl.Close()
	r.tpl = tpl
	if strings.HasSuffix(strings.ToLower(r.filename), ".xlsm") {
		r.log.Debug("macro-enabled template, VBA project kept", zap.String("file", r.filename))
	}

	r.stage = "cell mappings"
	r.emit("Копирую отдельные ячейки...", 10)
	r.applyCellMappings()

	r.stage = "cell fills"
	r.emit("Заполняю столбцы из ячеек...", 15)
	r.applySourceCellFills()

	r.stage = "columns"
	r.applyColumnRules()

	r.stage = "static values"
	r.emit("Заполняю статичные значения...", 70)
	r.applyStaticValues()

	r.stage = "formulas"
	r.emit("Вычисляю формулы...", 80)
	r.applyFormulas()

	r.stage = "post-processing"
	r.emit("Пост-обработка...", 90)
	r.applyPostProcessing()

	r.stage = "save"
	r.emit("Сохраняю результат...", 95)
	var buf bytes.Buffer
	if err := tpl.Write(&buf); err != nil {
		return nil, newTaskError(r.taskID, r.stage, fmt.Errorf("write workbook: %w", err))
	}
	return buf.Bytes(), nil
}

// emit records a progress step. Progress never moves backwards.
func (r *run) emit(status string, progress int) {
	if progress < r.progress {
		progress = r.progress
	}
	r.progress = progress
	r.opts.store.SetStatus(r.taskID, status, progress)
	r.report(Event{TaskID: r.taskID, Status: status, Progress: progress})
}

// setStatus records a status message without a progress step.
func (r *run) setStatus(status string) {
	r.opts.store.SetStatus(r.taskID, status, r.progress)
	r.report(Event{TaskID: r.taskID, Status: status, Progress: r.progress})
}

// report delivers an event; delivery problems never reach the task.
func (r *run) report(ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("status delivery panicked", zap.Any("panic", rec))
		}
	}()
	if err := r.opts.reporter.Report(ev); err != nil {
		r.log.Warn("status delivery failed", zap.Error(err))
	}
}

func (r *run) record(status string) {
	if err := r.opts.taskLog.Record(r.taskID, r.owner, status, r.filename); err != nil {
		r.log.Warn("task log write failed", zap.Error(err))
	}
}

func (r *run) warn(msg string) {
	r.warnings = append(r.warnings, msg)
}

func (r *run) warningsOrEmpty() []string {
	if r.warnings == nil {
		return []string{}
	}
	return r.warnings
}

// sourceSheetOr returns name, or the first source sheet when name is empty.
func (r *run) sourceSheetOr(name string) string {
	if name != "" {
		return name
	}
	return r.src.FirstSheet()
}

// templateSheetOr returns name, or the first template sheet when name is empty.
func (r *run) templateSheetOr(name string) string {
	if name != "" {
		return name
	}
	return r.tpl.FirstSheet()
}
