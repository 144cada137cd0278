package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/bloom"
	"github.com/fwojciec/harvest/etree"
	"github.com/fwojciec/harvest/extract"
	"github.com/fwojciec/harvest/fs"
	hhttp "github.com/fwojciec/harvest/http"
	"github.com/fwojciec/harvest/rod"
	hslog "github.com/fwojciec/harvest/slog"
	"github.com/fwojciec/harvest/sqlite"
)

// Output subdirectories of --out.
const (
	contentDir  = "content"
	metadataDir = "metadata"
	pagesDir    = "pages"
	dbFile      = "harvest.db"
)

// engine is the wired fetch pipeline shared by the commands of one run.
type engine struct {
	cfg     harvest.Config
	flags   *EngineFlags
	fetcher *extract.Fetcher
	events  harvest.EventSink
	deps    *Dependencies

	db      *sqlite.DB
	closers []func() error
}

// openEngine wires the session client, credential source, limiter and
// fetcher, and loads the first set of cookies.
func openEngine(deps *Dependencies) (*engine, error) {
	cfg, err := deps.Engine.Config()
	if err != nil {
		return nil, err
	}

	e := &engine{
		cfg:    cfg,
		flags:  deps.Engine,
		events: hslog.NewEventLogger(deps.Logger),
		deps:   deps,
	}

	var source harvest.CredentialSource
	if deps.Engine.Cookies != "" {
		source = fs.NewCookieFile(deps.Engine.Cookies)
	} else {
		opts := []rod.Option{rod.WithSettleDelay(deps.Engine.SettleDelay)}
		if deps.Engine.BrowserBin != "" {
			opts = append(opts, rod.WithBrowserBin(deps.Engine.BrowserBin))
		}
		browser := rod.NewCredentialSource(opts...)
		e.closers = append(e.closers, browser.Close)
		source = browser
	}
	source = hslog.NewLoggingCredentialSource(source, deps.Logger)

	client := hhttp.NewClient(hhttp.WithHeaders(cfg.Headers))
	refresher := extract.NewRefresher(source, client, cfg.BaseURL, extract.WithCooldown(cfg.RefreshCooldown))
	if err := refresher.Load(deps.Ctx); err != nil {
		_ = e.Close()
		if deps.Engine.Cookies == "" {
			fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium must be installed, or pass --cookies")
		}
		return nil, fmt.Errorf("failed to load session cookies: %w", err)
	}

	e.fetcher = extract.NewFetcher(client, extract.NewSlidingWindow(cfg.RateLimitMaxCalls, cfg.RateLimitPeriod), refresher,
		extract.WithMaxAttempts(cfg.MaxAttempts),
		extract.WithRefreshAfter(cfg.RefreshAfterAttempt),
		extract.WithTimeout(cfg.RequestTimeout),
		extract.WithEvents(e.events),
	)
	return e, nil
}

// Close releases the browser and database.
func (e *engine) Close() error {
	var first error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	e.closers = nil
	return first
}

// orchestrator returns an orchestrator writing batches for jobs under sub.
func (e *engine) orchestrator(sub string, processor harvest.Processor) (*extract.Orchestrator, error) {
	writer, recorder, err := e.sink(sub)
	if err != nil {
		return nil, err
	}
	return &extract.Orchestrator{
		Fetcher:      e.fetcher,
		Processor:    processor,
		Writer:       hslog.NewLoggingBatchWriter(writer, e.deps.Logger),
		Recorder:     hslog.NewLoggingSummaryRecorder(recorder, e.deps.Logger),
		Events:       e.events,
		Concurrency:  e.cfg.MaxConcurrentRequests,
		BatchSize:    e.cfg.BatchSize,
		WritePolicy:  e.cfg.WritePolicy,
		WriteRetries: e.cfg.WriteRetries,
	}, nil
}

func (e *engine) sink(sub string) (harvest.BatchWriter, harvest.SummaryRecorder, error) {
	dir := filepath.Join(e.flags.Out, sub)
	switch e.flags.Sink {
	case "xml":
		return etree.NewBatchWriter(dir), fs.NewSummaryRecorder(dir), nil
	case "sqlite":
		db, err := e.openDB()
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewBatchWriter(db), sqlite.NewSummaryService(db), nil
	default:
		return fs.NewBatchWriter(dir), fs.NewSummaryRecorder(dir), nil
	}
}

func (e *engine) openDB() (*sqlite.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	if err := os.MkdirAll(e.flags.Out, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(e.flags.Out, dbFile)
	db := sqlite.NewDB(path)
	if err := db.Open(); err != nil {
		return nil, fmt.Errorf("failed to open database at %q: %w", path, err)
	}
	e.db = db
	e.closers = append(e.closers, db.Close)
	return db, nil
}

// newJob builds a job, dropping descriptors that repeat a correlation key.
func newJob(name string, descs []harvest.Descriptor) *extract.Job {
	n := uint(max(len(descs), 1))
	return extract.NewJob(name, descs, extract.WithKeySet(bloom.NewKeySet(n, 0.001)))
}

// report prints a one-line summary of a finished job.
func report(deps *Dependencies, s *harvest.Summary) {
	fmt.Fprintf(deps.Stdout, "%s: %d succeeded, %d failed, %d skipped, %d duplicates, %d batches written, %d results lost\n",
		s.Job, s.Succeeded, s.Failed, s.Skipped, s.Duplicates, s.Batches, s.Lost)
}
