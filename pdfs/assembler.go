package pdfs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"github.com/zeptools/pdf-joiner/rw"
)

var ErrNoPages = errors.New("pdfs: nothing to write")

// Assembler writes pages from any number of Documents into one PDF, in the
// order they were added.
type Assembler struct {
	pages []Page
}

// Ensure Assembler implements Writer
var _ Writer = (*Assembler)(nil)

func NewAssembler(capacity int) *Assembler {
	return &Assembler{pages: make([]Page, 0, capacity)}
}

func (a *Assembler) AddPage(p Page) {
	a.pages = append(a.pages, p)
}

func (a *Assembler) AddPages(pages ...Page) {
	a.pages = append(a.pages, pages...)
}

func (a *Assembler) PageCount() int {
	return len(a.pages)
}

// run is a stretch of consecutive pages of one document
type run struct {
	doc     *Document
	pageNrs []int
}

func (a *Assembler) runs() []run {
	var runs []run
	for _, p := range a.pages {
		if n := len(runs); n > 0 {
			last := &runs[n-1]
			if last.doc == p.doc && last.pageNrs[len(last.pageNrs)-1]+1 == p.Nr {
				last.pageNrs = append(last.pageNrs, p.Nr)
				continue
			}
		}
		runs = append(runs, run{doc: p.doc, pageNrs: []int{p.Nr}})
	}
	return runs
}

// segment extracts the run's pages into a standalone PDF
func (r run) segment() ([]byte, error) {
	ctx, err := pdfcpu.ExtractPages(r.doc.ctx, r.pageNrs, false)
	if err != nil {
		return nil, fmt.Errorf("extract pages %v of %s: %w", r.pageNrs, r.doc.Name, err)
	}
	var buf bytes.Buffer
	if err = pdfapi.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("write pages of %s: %w", r.doc.Name, err)
	}
	return buf.Bytes(), nil
}

// WriteTo implements io.WriterTo
func (a *Assembler) WriteTo(w io.Writer) (int64, error) {
	runs := a.runs()
	if len(runs) == 0 {
		return 0, ErrNoPages
	}
	cw := rw.NewCountWriter(w)

	if len(runs) == 1 {
		// a whole document in original order needs no merge step
		seg, err := runs[0].segment()
		if err != nil {
			return 0, err
		}
		_, err = cw.Write(seg)
		return cw.BytesWritten(), err
	}

	readers := make([]io.ReadSeeker, len(runs))
	for i, r := range runs {
		seg, err := r.segment()
		if err != nil {
			return 0, err
		}
		readers[i] = bytes.NewReader(seg)
	}
	if err := pdfapi.MergeRaw(readers, cw, false, NewConfiguration()); err != nil {
		return cw.BytesWritten(), fmt.Errorf("merge %d segments: %w", len(readers), err)
	}
	return cw.BytesWritten(), nil
}

func (a *Assembler) WriteToFile(filepath string) error {
	f, err := os.Create(filepath)
	if err != nil {
		return err
	}
	if _, err = a.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (a *Assembler) ProduceBytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Assemble encodes pages into a single PDF
func Assemble(pages []Page) ([]byte, error) {
	a := NewAssembler(len(pages))
	a.AddPages(pages...)
	return a.ProduceBytes()
}
