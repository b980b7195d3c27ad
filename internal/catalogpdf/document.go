package catalogpdf

import (
	"fmt"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var disableConfigDir sync.Once

// Document is a PDF on local disk whose pages can be copied into batch files.
type Document struct {
	path  string
	pages int
}

// Open reads the page count of the PDF at path.
func Open(path string) (*Document, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("count pages of %s: %w", path, err)
	}

	return &Document{path: path, pages: pages}, nil
}

// Path returns the location of the source PDF.
func (d *Document) Path() string {
	return d.path
}

// PageCount returns the number of pages in the source PDF.
func (d *Document) PageCount() int {
	return d.pages
}

// WriteBatch writes a standalone PDF containing exactly the batch's pages, in
// source order, to outPath.
func (d *Document) WriteBatch(b Batch, outPath string) error {
	if b.FirstPage < 1 || b.LastPage > d.pages || b.FirstPage > b.LastPage {
		return fmt.Errorf("batch %d: pages %d-%d outside document of %d pages", b.Index, b.FirstPage, b.LastPage, d.pages)
	}

	if err := api.TrimFile(d.path, outPath, []string{b.Selection()}, nil); err != nil {
		return fmt.Errorf("batch %d: write pages %s: %w", b.Index, b.Selection(), err)
	}
	return nil
}
