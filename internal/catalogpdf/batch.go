// Package catalogpdf slices catalog PDFs into contiguous page batches small
// enough for the extraction model to answer without truncating its output.
package catalogpdf

import "fmt"

// DefaultBatchSize is the number of pages sent to the model per request.
const DefaultBatchSize = 3

// Batch is a contiguous, 1-based, inclusive page range of the source document.
type Batch struct {
	Index     int // 1-based position in processing order
	FirstPage int
	LastPage  int
}

// Pages returns how many pages the batch covers.
func (b Batch) Pages() int {
	return b.LastPage - b.FirstPage + 1
}

// Selection renders the range in the page-selection syntax used by the PDF tooling.
func (b Batch) Selection() string {
	if b.FirstPage == b.LastPage {
		return fmt.Sprintf("%d", b.FirstPage)
	}
	return fmt.Sprintf("%d-%d", b.FirstPage, b.LastPage)
}

// TempFileName is the name of the standalone PDF materialised for a batch.
func (b Batch) TempFileName() string {
	return fmt.Sprintf("temp_lote_%d.pdf", b.Index)
}

// PlanBatches partitions pageCount pages into ceil(pageCount/size) batches of
// min(size, remaining) pages each, in source order.
func PlanBatches(pageCount, size int) ([]Batch, error) {
	if size < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	if pageCount < 0 {
		return nil, fmt.Errorf("page count must not be negative, got %d", pageCount)
	}

	batches := make([]Batch, 0, (pageCount+size-1)/size)
	for first := 1; first <= pageCount; first += size {
		last := first + size - 1
		if last > pageCount {
			last = pageCount
		}
		batches = append(batches, Batch{
			Index:     len(batches) + 1,
			FirstPage: first,
			LastPage:  last,
		})
	}
	return batches, nil
}
