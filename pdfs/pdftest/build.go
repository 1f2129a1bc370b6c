// Package pdftest builds small PDFs for tests. Every page gets its own
// width so tests can tell pages apart after they have been moved around.
package pdftest

import (
	"bytes"
	"fmt"
)

const PageHeight = 842

// Build returns a PDF with one page per width, in order
func Build(widths ...int) []byte {
	var buf bytes.Buffer
	n := 2 + 2*len(widths) // catalog, page tree, (page, content) per page
	offsets := make([]int, n+1)

	buf.WriteString("%PDF-1.4\n")
	obj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")

	var kids bytes.Buffer
	for i := range widths {
		fmt.Fprintf(&kids, "%d 0 R ", 3+2*i)
	}
	obj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(widths)))

	for i, w := range widths {
		pageNum, contentNum := 3+2*i, 4+2*i
		obj(pageNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << >> /Contents %d 0 R >>",
			w, PageHeight, contentNum,
		))
		content := fmt.Sprintf("0 0 m %d %d l S", w, PageHeight)
		obj(contentNum, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", n+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= n; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", n+1, xref)
	return buf.Bytes()
}

// Widths returns count consecutive widths starting at first
func Widths(first, count int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = first + i
	}
	return out
}
