package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/javajack/xlmap"
	"github.com/javajack/xlmap/columns"
	"github.com/javajack/xlmap/geocode"
	"github.com/javajack/xlmap/task"
	"github.com/javajack/xlmap/tasklog"
)

// app wires the processor to its collaborators for one command invocation.
type app struct {
	index    *geocode.Index
	watcher  *geocode.Watcher
	registry *task.Registry
	events   *task.Events
	taskLog  *tasklog.Store
	proc     *xlmap.Processor
}

func newApp(ctx context.Context, visibleOnly *bool) (*app, error) {
	a := &app{
		index:    geocode.NewIndex(cfg.AddressCSV, geocode.WithThreshold(cfg.FuzzyThreshold), geocode.WithLogger(logger.Named("geocode"))),
		registry: task.NewRegistry(),
		events:   task.NewEvents(cfg.EventBuffer),
	}

	store, err := tasklog.Open(cfg.TaskLogDB)
	if err != nil {
		return nil, err
	}
	a.taskLog = store

	if cfg.WatchAddresses {
		w, err := geocode.NewWatcher(a.index, geocode.DefaultDebounce, logger.Named("geocode"))
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("watch address database: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			logger.Warn("address database not watched", zap.Error(err))
		} else {
			a.watcher = w
		}
	}

	opts := []xlmap.Option{
		xlmap.WithReporter(a.events),
		xlmap.WithTaskStore(a.registry),
		xlmap.WithTaskLogger(a.taskLog),
		xlmap.WithGeocoder(a.index),
		xlmap.WithColumnResolver(columns.NewResolver(columns.LoadDictionary(cfg.ColumnDictionary, logger.Named("columns")))),
		xlmap.WithLogger(logger.Named("processor")),
		xlmap.WithRoundingPrecision(cfg.RoundingPrecision),
	}
	if visibleOnly != nil {
		opts = append(opts, xlmap.WithVisibleRowsOnly(*visibleOnly))
	}
	a.proc = xlmap.NewProcessor(opts...)
	return a, nil
}

// drainEvents logs events until the stream is closed. The returned channel
// is closed once draining stops.
func (a *app) drainEvents(print func(xlmap.Event)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range a.events.C() {
			logger.Debug("status", zap.String("task", ev.TaskID), zap.Int("progress", ev.Progress), zap.String("status", ev.Status))
			if print != nil {
				print(ev)
			}
		}
	}()
	return done
}

func (a *app) close() {
	a.events.Close()
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if err := a.taskLog.Close(); err != nil {
		logger.Warn("closing task log", zap.Error(err))
	}
	if n := a.events.Dropped(); n > 0 {
		logger.Debug("status events dropped", zap.Int64("count", n))
	}
}
