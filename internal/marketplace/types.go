package marketplace

import "fmt"

// Listing is one search result. Only the fields used for price analysis are
// decoded.
type Listing struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Permalink string  `json:"permalink"`
}

// SearchResult is the decoded search response.
type SearchResult struct {
	Query   string    `json:"query"`
	Results []Listing `json:"results"`
}

// UpstreamError carries a non-200 search answer so it can be relayed verbatim.
type UpstreamError struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("marketplace search failed: status %d", e.StatusCode)
}
