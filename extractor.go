package harvest

// ExtractResult holds the content extracted from an HTML page.
type ExtractResult struct {
	// Title is the page title extracted from metadata.
	Title string

	// ContentHTML is the content as HTML, ready for conversion.
	ContentHTML string
}

// Extractor extracts content from fetched HTML pages.
type Extractor interface {
	// Extract processes raw HTML and returns its title and content.
	Extract(html string) (*ExtractResult, error)
}
