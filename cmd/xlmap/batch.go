package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/javajack/xlmap"
	"github.com/javajack/xlmap/task"
)

// manifest lists the jobs of a batch run. Relative paths are resolved
// against the manifest's directory.
type manifest struct {
	Jobs []jobSpec `yaml:"jobs"`
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	base := filepath.Dir(path)
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i := range m.Jobs {
		j := &m.Jobs[i]
		j.Source, j.Template, j.Bundle, j.Output = abs(j.Source), abs(j.Template), abs(j.Bundle), abs(j.Output)
		if j.Owner == "" {
			j.Owner = "batch"
		}
	}
	return &m, nil
}

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch manifest.yaml",
		Short: "Run several jobs concurrently on the worker pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.close()

			done := a.drainEvents(func(ev xlmap.Event) {
				if ev.Complete {
					logger.Info("task complete", zap.String("task", ev.TaskID), zap.String("status", ev.Status))
				}
			})

			pool := task.NewPool(cfg.Workers, a.proc, a.registry, logger.Named("pool"))
			ids := make([]string, len(m.Jobs))
			var failed int
			for i, spec := range m.Jobs {
				job, err := openJob(spec)
				if err != nil {
					logger.Error("job skipped", zap.Int("job", i), zap.Error(err))
					failed++
					continue
				}
				ids[i] = pool.Submit(spec.Owner, job)
			}
			pool.Wait()
			a.events.Close()
			<-done

			for i, spec := range m.Jobs {
				if ids[i] == "" {
					continue
				}
				if err := saveResult(a.registry, ids[i], spec, cmd); err != nil {
					t, _ := a.registry.Get(ids[i])
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", spec.Template, t.Status)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d jobs", errTaskFailed, failed, len(m.Jobs))
			}
			return nil
		},
	}
}
