package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/javajack/xlmap"
	"github.com/javajack/xlmap/task"
)

var errTaskFailed = errors.New("task failed")

type jobSpec struct {
	Source   string `yaml:"source"`
	Template string `yaml:"template"`
	Bundle   string `yaml:"bundle"`
	Output   string `yaml:"output"`
	Owner    string `yaml:"owner"`
}

func newRunCmd() *cobra.Command {
	var (
		spec    jobSpec
		visible bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply a rule bundle to one source/template pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var visibleOnly *bool
			if cmd.Flags().Changed("visible-only") {
				visibleOnly = &visible
			}
			a, err := newApp(cmd.Context(), visibleOnly)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			done := a.drainEvents(func(ev xlmap.Event) {
				fmt.Fprintf(out, "[%3d%%] %s\n", ev.Progress, ev.Status)
			})
			id, err := runJob(a, spec)
			a.events.Close()
			<-done
			if err != nil {
				return err
			}
			return saveResult(a.registry, id, spec, cmd)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&spec.Source, "source", "s", "", "Source workbook")
	f.StringVarP(&spec.Template, "template", "t", "", "Template workbook (.xlsx or .xlsm)")
	f.StringVarP(&spec.Bundle, "bundle", "b", "", "Rule bundle JSON")
	f.StringVarP(&spec.Output, "output", "o", "", "Output file (default: processed_<template name>)")
	f.StringVar(&spec.Owner, "owner", "cli", "Owner recorded in the task log")
	f.BoolVar(&visible, "visible-only", false, "Copy visible source rows only (overrides the bundle)")
	for _, name := range []string{"source", "template", "bundle"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// runJob registers and runs one job synchronously and returns its task id.
func runJob(a *app, spec jobSpec) (string, error) {
	job, err := openJob(spec)
	if err != nil {
		return "", err
	}
	job.TaskID = a.registry.Create(spec.Owner)
	if _, err := a.proc.Run(job); err != nil {
		return job.TaskID, fmt.Errorf("%w: %v", errTaskFailed, err)
	}
	return job.TaskID, nil
}

// openJob reads the job's files into memory.
func openJob(spec jobSpec) (xlmap.Job, error) {
	bundle, err := xlmap.LoadBundle(spec.Bundle)
	if err != nil {
		return xlmap.Job{}, err
	}
	src, err := os.ReadFile(spec.Source)
	if err != nil {
		return xlmap.Job{}, fmt.Errorf("read source: %w", err)
	}
	tpl, err := os.ReadFile(spec.Template)
	if err != nil {
		return xlmap.Job{}, fmt.Errorf("read template: %w", err)
	}
	return xlmap.Job{
		Source:           bytes.NewReader(src),
		Template:         bytes.NewReader(tpl),
		TemplateFilename: filepath.Base(spec.Template),
		Bundle:           bundle,
	}, nil
}

func saveResult(reg *task.Registry, id string, spec jobSpec, cmd *cobra.Command) error {
	t, err := reg.Consume(id, spec.Owner)
	if err != nil {
		return err
	}
	path := spec.Output
	if path == "" {
		path = filepath.Join(filepath.Dir(spec.Template), "processed_"+t.Filename)
	}
	if err := os.WriteFile(path, t.Result, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	for _, w := range t.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}
	logger.Info("result written", zap.String("path", path), zap.Int("warnings", len(t.Warnings)))
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", strings.TrimSpace(t.Status), path)
	return nil
}
