package pdfs

import "io"

// Writer is an append-only PDF writer with no page navigation.
// Pages are copied from already decoded Documents as they are
type Writer interface {
	AddPage(p Page)
	AddPages(pages ...Page)
	PageCount() int

	WriteTo(w io.Writer) (int64, error)
	WriteToFile(filepath string) error
	ProduceBytes() ([]byte, error)
}
