package main

// Run executes the all command: metadata searches first, then content
// pages, sharing one session.
func (c *AllCmd) Run(deps *Dependencies) error {
	e, err := openEngine(deps)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := c.Metadata.run(deps, e); err != nil {
		return err
	}
	return c.Content.run(deps, e)
}
