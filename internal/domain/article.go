package domain

// Article is one scraped news page, immutable once created. URL is the
// unique key and the only identifier carried into output.
type Article struct {
	URL     string
	RawText string
}
