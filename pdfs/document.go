package pdfs

import (
	"bytes"
	"errors"
	"fmt"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrEncrypted  = errors.New("pdfs: document is password protected")
	ErrUnreadable = errors.New("pdfs: document cannot be read")
)

// Document is a decoded PDF. Pages reference it; it must not be shared
// across concurrent assemblies.
type Document struct {
	Name string // label for logs and errors, e.g. "template_pdf", "boq"
	ctx  *model.Context
}

// Page is a reference to one page of a Document. Nr is 1-based.
type Page struct {
	doc *Document
	Nr  int
}

func (p Page) Document() *Document {
	return p.doc
}

// NewConfiguration returns the pdfcpu configuration used for all reads and
// writes: relaxed validation, since uploaded documents come from many
// producers.
func NewConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Decode parses data into a Document
func Decode(name string, data []byte) (*Document, error) {
	ctx, err := pdfapi.ReadValidateAndOptimize(bytes.NewReader(data), NewConfiguration())
	if err != nil {
		if errors.Is(err, pdfcpu.ErrWrongPassword) {
			return nil, fmt.Errorf("%s: %w", name, ErrEncrypted)
		}
		return nil, fmt.Errorf("%s: %w: %v", name, ErrUnreadable, err)
	}
	if err = ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrUnreadable, err)
	}
	return &Document{Name: name, ctx: ctx}, nil
}

func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// Pages returns references to all pages in document order
func (d *Document) Pages() []Page {
	pages := make([]Page, d.ctx.PageCount)
	for i := range pages {
		pages[i] = Page{doc: d, Nr: i + 1}
	}
	return pages
}

// PageWidth returns the width of page nr in points. The page's own box wins
// over inherited ones, crop box before media box.
func (d *Document) PageWidth(nr int) (float64, error) {
	_, _, inh, err := d.ctx.PageDict(nr, false)
	if err != nil {
		return 0, err
	}
	box := inh.CropBox
	if box == nil {
		box = inh.MediaBox
	}
	if box == nil {
		return 0, fmt.Errorf("%s: page %d has no size", d.Name, nr)
	}
	return box.Width(), nil
}
