package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/extract"
	"github.com/fwojciec/harvest/fs"
	"github.com/fwojciec/harvest/gemini"
	"github.com/fwojciec/harvest/goquery"
	"github.com/fwojciec/harvest/htmltomarkdown"
	"github.com/fwojciec/harvest/input"
	"github.com/fwojciec/harvest/readability"
	"github.com/fwojciec/harvest/trafilatura"
)

// Run executes the content command.
func (c *ContentCmd) Run(deps *Dependencies) error {
	e, err := openEngine(deps)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.run(deps, e)
}

func (c *ContentCmd) run(deps *Dependencies, e *engine) error {
	f, err := os.Open(c.Input)
	if err != nil {
		return err
	}
	in, err := input.ReadContent(f, input.ContentOptions{
		BaseURL:            e.cfg.BaseURL,
		Mission:            e.flags.Mission,
		IncludeAttachments: c.IncludeAttachments,
	})
	_ = f.Close()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}
	deps.Logger.Info("content input",
		"file", c.Input,
		"descriptors", len(in.Descriptors),
		"attachments", in.Attachments,
		"superseded", in.Superseded,
		"unroutable", in.Unroutable,
	)

	processor, err := c.processor(e)
	if err != nil {
		return err
	}
	orch, err := e.orchestrator(contentDir, processor)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(c.Input), filepath.Ext(c.Input))
	summary, err := orch.Run(deps.Ctx, newJob(name, in.Descriptors))
	if summary != nil {
		report(deps, summary)
	}
	return err
}

func (c *ContentCmd) processor(e *engine) (*extract.ContentProcessor, error) {
	base, err := url.Parse(e.cfg.BaseURL)
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "invalid base URL: %v", err)
	}

	var extractor harvest.Extractor
	switch c.Extractor {
	case "trafilatura":
		extractor = trafilatura.NewExtractor(trafilatura.WithBaseURL(base), trafilatura.WithLinks())
	case "readability":
		extractor = readability.NewExtractor(base)
	default:
		extractor = goquery.NewExtractor()
	}

	p := &extract.ContentProcessor{
		Extractor: extractor,
		Converter: htmltomarkdown.NewConverter(htmltomarkdown.WithDomain(base.Scheme + "://" + base.Host)),
		Pages:     fs.NewPageStore(filepath.Join(e.flags.Out, pagesDir)),
	}
	if c.Tokens {
		tc, err := gemini.NewTokenCounter(c.TokenModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create token counter: %w", err)
		}
		p.Tokens = tc
	}
	return p, nil
}
