package harvest

import "context"

// Page is a fetched HTML document kept on disk next to the extraction output.
type Page struct {
	// Group is the directory the page is filed under, e.g. "<DATE>_<Keyword>".
	Group string

	// Name is the file name without extension. Empty names are generated.
	Name string

	HTML string
}

// PageStore persists fetched pages.
type PageStore interface {
	// SavePage writes the page and returns the path it was written to.
	SavePage(ctx context.Context, page *Page) (string, error)
}
