package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/harvest"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	Engine *EngineFlags
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config kong.ConfigFlag `help:"Load flag values from a JSON file."`

	Engine EngineFlags `embed:""`
	Log    LogFlags    `embed:"" prefix:"log-"`

	Content     ContentCmd     `cmd:"" help:"Fetch message pages listed in a content CSV"`
	Metadata    MetadataCmd    `cmd:"" help:"Run keyword searches for the selected themes"`
	All         AllCmd         `cmd:"" help:"Run metadata then content extraction"`
	Consolidate ConsolidateCmd `cmd:"" help:"Merge metadata batch files into one file"`
}

// EngineFlags configures the extraction engine shared by every command.
type EngineFlags struct {
	BaseURL string            `name:"base-url" help:"API root, ending with a slash."`
	Mission string            `help:"Mission ID used in API paths."`
	Header  map[string]string `help:"Extra request header as name=value (repeatable)."`

	Concurrency     int           `default:"10" help:"Maximum concurrent requests."`
	RateLimitCalls  int           `default:"360" help:"Requests allowed per rate limit period."`
	RateLimitPeriod time.Duration `default:"60s" help:"Rate limit window."`
	MaxAttempts     int           `default:"5" help:"Attempts per request before giving up."`
	Timeout         time.Duration `default:"25s" help:"Per-request timeout."`
	RefreshAfter    int           `default:"1" help:"0-indexed attempt after which session cookies are refreshed. Negative disables."`
	RefreshCooldown time.Duration `default:"0s" help:"Skip a cookie refresh if another completed within this window."`

	BatchSize    int    `default:"500" help:"Results per output batch."`
	WritePolicy  string `default:"discard" enum:"discard,retry,fail" help:"What to do when a batch write fails (discard, retry, fail)."`
	WriteRetries int    `default:"3" help:"Batch write retries under the retry policy."`

	Out  string `default:"output" type:"path" help:"Output directory."`
	Sink string `default:"csv" enum:"csv,xml,sqlite" help:"Batch output format (csv, xml, sqlite)."`

	Cookies     string        `type:"path" help:"Read session cookies from this JSON file instead of a browser."`
	BrowserBin  string        `type:"path" help:"Chrome or Chromium binary used to obtain cookies."`
	SettleDelay time.Duration `default:"15s" help:"Wait after the browser loads the site before reading cookies."`
}

// Config returns the engine settings.
func (f *EngineFlags) Config() (harvest.Config, error) {
	if f.BaseURL == "" || f.Mission == "" {
		return harvest.Config{}, harvest.Errorf(harvest.EINVALID, "--base-url and --mission are required")
	}
	cfg := harvest.Config{
		BaseURL:               f.BaseURL,
		Headers:               f.Header,
		MaxConcurrentRequests: f.Concurrency,
		RateLimitMaxCalls:     f.RateLimitCalls,
		RateLimitPeriod:       f.RateLimitPeriod,
		MaxAttempts:           f.MaxAttempts,
		BatchSize:             f.BatchSize,
		RequestTimeout:        f.Timeout,
		RefreshAfterAttempt:   f.RefreshAfter,
		RefreshCooldown:       f.RefreshCooldown,
		WritePolicy:           harvest.WritePolicy(f.WritePolicy),
		WriteRetries:          f.WriteRetries,
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	return cfg, cfg.Validate()
}

// LogFlags configures logging.
type LogFlags struct {
	Level  string `default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)."`
	Format string `default:"text" enum:"text,json" help:"Log format (text, json)."`
	File   string `type:"path" help:"Also append logs to this file."`
}

// Logger returns a logger writing to w and, when set, the log file.
// The returned func closes the log file.
func (f *LogFlags) Logger(w io.Writer) (*slog.Logger, func() error, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.Level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", f.Level, err)
	}

	closeFn := func() error { return nil }
	if f.File != "" {
		file, err := os.OpenFile(f.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(w, file)
		closeFn = file.Close
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if f.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h), closeFn, nil
}

// ContentCmd is the "content" subcommand.
type ContentCmd struct {
	Input              string `arg:"" type:"existingfile" help:"Content CSV exported from a search."`
	Extractor          string `default:"goquery" enum:"goquery,trafilatura,readability" help:"Page extractor (goquery keeps the whole page)."`
	IncludeAttachments bool   `help:"Also fetch attachment rows."`
	Tokens             bool   `help:"Count Gemini tokens for each page's content."`
	TokenModel         string `help:"Tokenizer model."`
}

// MetadataCmd is the "metadata" subcommand.
type MetadataCmd struct {
	Themes        string    `arg:"" type:"existingfile" help:"Theme CSV with Process_ID, keyword and Selected columns."`
	Start         time.Time `required:"" format:"2006-01-02" help:"First day searched (YYYY-MM-DD)."`
	End           time.Time `required:"" format:"2006-01-02" help:"Day the search stops, exclusive (YYYY-MM-DD)."`
	NoConsolidate bool      `help:"Skip merging batch files after the run."`
}

// AllCmd is the "all" subcommand.
type AllCmd struct {
	Metadata MetadataCmd `embed:""`
	Content  ContentCmd  `embed:""`
}

// ConsolidateCmd is the "consolidate" subcommand.
type ConsolidateCmd struct {
	Output string `type:"path" help:"Consolidated file. Defaults to <out>/metadata/consolidated.csv.gz."`
}
