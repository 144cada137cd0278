package main

import (
	"fmt"
	"os"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/extract"
	"github.com/fwojciec/harvest/input"
)

// consolidatedFile is the default name of the merged metadata file.
const consolidatedFile = "consolidated.csv.gz"

// Run executes the metadata command.
func (c *MetadataCmd) Run(deps *Dependencies) error {
	e, err := openEngine(deps)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.run(deps, e)
}

func (c *MetadataCmd) run(deps *Dependencies, e *engine) error {
	f, err := os.Open(c.Themes)
	if err != nil {
		return err
	}
	themes, err := input.ReadThemes(f)
	_ = f.Close()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}
	if len(themes) == 0 {
		fmt.Fprintln(deps.Stdout, "No themes selected. Mark themes with Y in the Selected column.")
		return nil
	}

	opts := input.SearchOptions{
		BaseURL: e.cfg.BaseURL,
		Mission: e.flags.Mission,
		Start:   c.Start,
		End:     c.End,
	}
	jobs := make([]*extract.Job, 0, len(themes))
	for _, theme := range themes {
		descs, err := input.SearchDescriptors(theme, opts)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
			return err
		}
		jobs = append(jobs, newJob(theme.ID, descs))
	}

	orch, err := e.orchestrator(metadataDir, &extract.SearchProcessor{})
	if err != nil {
		return err
	}
	summaries, err := orch.RunAll(deps.Ctx, jobs)
	for _, s := range summaries {
		report(deps, s)
	}
	if err != nil {
		return err
	}

	if c.NoConsolidate {
		return nil
	}
	if e.flags.Sink != "csv" {
		deps.Logger.Info("consolidation skipped", "sink", e.flags.Sink)
		return nil
	}
	return consolidate(deps, e.flags.Out, "")
}
