package main

import (
	"fmt"
	"path/filepath"

	"github.com/fwojciec/harvest/fs"
)

// Run executes the consolidate command.
func (c *ConsolidateCmd) Run(deps *Dependencies) error {
	return consolidate(deps, deps.Engine.Out, c.Output)
}

func consolidate(deps *Dependencies, out, file string) error {
	dir := filepath.Join(out, metadataDir)
	if file == "" {
		file = filepath.Join(dir, consolidatedFile)
	}

	rows, err := fs.Consolidate(deps.Ctx, dir, file)
	if err != nil {
		return fmt.Errorf("failed to consolidate %s: %w", dir, err)
	}
	fmt.Fprintf(deps.Stdout, "Consolidated %d rows into %s\n", rows, file)
	return nil
}
