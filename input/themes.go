package input

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/harvest"
)

// Theme CSV columns.
const (
	ColumnProcessID = "Process_ID"
	ColumnKeywords  = "OSMOSE key words full"
	ColumnSelected  = "Selected"
)

// Search descriptor metadata keys.
const (
	MetaTheme       = "Theme"
	MetaKeyword     = "Keyword"
	MetaDirection   = "Direction"
	MetaAttachment  = "Is Attachment"
	MetaAutomated   = "Is Automated Mail"
	MetaWindowStart = "Window Start"
	MetaWindowEnd   = "Window End"
)

// Directions searched for every keyword: inbound, outbound and internal.
var Directions = []string{"i", "o", "n"}

// WindowDays is the length of one search window.
const WindowDays = 7

// Theme is a named keyword list. Each theme runs as its own job.
type Theme struct {
	ID       string
	Keywords []string
}

// ReadThemes reads the theme sheet and returns the themes marked "Y" in the
// Selected column. Themes without keywords are dropped.
func ReadThemes(r io.Reader) ([]Theme, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if err := t.require(ColumnProcessID, ColumnKeywords, ColumnSelected); err != nil {
		return nil, err
	}

	var themes []Theme
	for _, row := range t.rows {
		if !strings.EqualFold(t.get(row, ColumnSelected), "Y") {
			continue
		}
		keywords := SplitKeywords(t.get(row, ColumnKeywords))
		id := t.get(row, ColumnProcessID)
		if id == "" || len(keywords) == 0 {
			continue
		}
		themes = append(themes, Theme{ID: id, Keywords: keywords})
	}
	return themes, nil
}

// SplitKeywords splits a space-separated keyword cell. Curly quotes are
// dropped.
func SplitKeywords(cell string) []string {
	cell = strings.NewReplacer("“", "", "”", "").Replace(cell)
	return strings.Fields(cell)
}

// SearchOptions configures SearchDescriptors.
type SearchOptions struct {
	BaseURL string
	Mission string
	Start   time.Time
	End     time.Time
}

// SearchDescriptors expands a theme into one search request per keyword,
// direction, attachment flag, automated-mail flag and weekly window.
// Windows start every WindowDays days from Start, up to but excluding End.
func SearchDescriptors(theme Theme, opts SearchOptions) ([]harvest.Descriptor, error) {
	if !opts.End.After(opts.Start) {
		return nil, harvest.Errorf(harvest.EINVALID, "search end %s must be after start %s",
			opts.End.Format(time.DateOnly), opts.Start.Format(time.DateOnly))
	}

	first, last := epochDay(opts.Start), epochDay(opts.End)
	var descs []harvest.Descriptor
	for _, kw := range theme.Keywords {
		for _, dir := range Directions {
			for _, attachment := range []bool{true, false} {
				for _, automated := range []bool{true, false} {
					for day := first; day < last; day += WindowDays {
						descs = append(descs, searchDescriptor(theme.ID, kw, dir, attachment, automated, day, opts))
					}
				}
			}
		}
	}
	return descs, nil
}

func searchDescriptor(theme, keyword, dir string, attachment, automated bool, day int64, opts SearchOptions) harvest.Descriptor {
	end := day + WindowDays - 1
	u := opts.BaseURL + "api/" + opts.Mission + "/search?n=10000&sort=rel-desc" +
		"&ext=" + dir +
		"&entitype=Voice" +
		"&q=" + escapeKeyword(keyword) +
		"&isAttachment=" + strconv.FormatBool(attachment) +
		"&isAutomatedMail=" + strconv.FormatBool(automated) +
		"&daysSince1970=" + strconv.FormatInt(day, 10) + "," + strconv.FormatInt(end, 10)

	return harvest.Descriptor{
		URL: u,
		Key: fmt.Sprintf("%s|%s|%t|%t|%d", keyword, dir, attachment, automated, day),
		Meta: map[string]string{
			MetaTheme:       theme,
			MetaKeyword:     keyword,
			MetaDirection:   dir,
			MetaAttachment:  strconv.FormatBool(attachment),
			MetaAutomated:   strconv.FormatBool(automated),
			MetaWindowStart: dayDate(day),
			MetaWindowEnd:   dayDate(end),
		},
	}
}

// escapeKeyword query-escapes a keyword, keeping "+" as the search
// engine's phrase separator.
func escapeKeyword(kw string) string {
	parts := strings.Split(kw, "+")
	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	return strings.Join(parts, "+")
}

func epochDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

func dayDate(day int64) string {
	return time.Unix(day*86400, 0).UTC().Format(time.DateOnly)
}
