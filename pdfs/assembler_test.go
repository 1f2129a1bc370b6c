package pdfs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeptools/pdf-joiner/pdfs/pdftest"
)

func TestMain(m *testing.M) {
	pdfapi.DisableConfigDir()
	os.Exit(m.Run())
}

func decode(t *testing.T, name string, widths ...int) *Document {
	t.Helper()
	doc, err := Decode(name, pdftest.Build(widths...))
	require.NoError(t, err)
	return doc
}

func widthsOf(t *testing.T, data []byte) []int {
	t.Helper()
	doc, err := Decode("out", data)
	require.NoError(t, err)
	out := make([]int, doc.PageCount())
	for i := range out {
		w, err := doc.PageWidth(i + 1)
		require.NoError(t, err)
		out[i] = int(w + 0.5)
	}
	return out
}

func TestDecode(t *testing.T) {
	doc := decode(t, "template_pdf", 100, 101, 102)
	assert.Equal(t, 3, doc.PageCount())

	pages := doc.Pages()
	require.Len(t, pages, 3)
	assert.Equal(t, 1, pages[0].Nr)
	assert.Equal(t, 3, pages[2].Nr)
	assert.Same(t, doc, pages[1].Document())

	w, err := doc.PageWidth(2)
	require.NoError(t, err)
	assert.InDelta(t, 101, w, 0.01)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode("boq", []byte("definitely not a pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.Contains(t, err.Error(), "boq")
}

func TestAssembleInterleaved(t *testing.T) {
	tpl := decode(t, "template_pdf", pdftest.Widths(100, 4)...)
	att := decode(t, "boq", 300, 301)

	tp, ap := tpl.Pages(), att.Pages()
	var pages []Page
	pages = append(pages, tp[:2]...)
	pages = append(pages, ap...)
	pages = append(pages, tp[2:]...)

	data, err := Assemble(pages)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 101, 300, 301, 102, 103}, widthsOf(t, data))
}

func TestAssembleSingleRun(t *testing.T) {
	tpl := decode(t, "template_pdf", 100, 101, 102)

	data, err := Assemble(tpl.Pages())
	require.NoError(t, err)
	assert.Equal(t, []int{100, 101, 102}, widthsOf(t, data))
}

func TestAssembleReordersWithinDocument(t *testing.T) {
	tpl := decode(t, "template_pdf", 100, 101, 102)
	tp := tpl.Pages()

	a := NewAssembler(3)
	a.AddPage(tp[2])
	a.AddPage(tp[0])
	a.AddPage(tp[1])
	assert.Equal(t, 3, a.PageCount())

	data, err := a.ProduceBytes()
	require.NoError(t, err)
	assert.Equal(t, []int{102, 100, 101}, widthsOf(t, data))
}

func TestAssemblerRuns(t *testing.T) {
	tpl := &Document{Name: "t"}
	att := &Document{Name: "a"}
	a := NewAssembler(0)
	a.AddPages(
		Page{doc: tpl, Nr: 1}, Page{doc: tpl, Nr: 2},
		Page{doc: att, Nr: 1},
		Page{doc: tpl, Nr: 3}, Page{doc: tpl, Nr: 5},
	)

	runs := a.runs()
	require.Len(t, runs, 4)
	assert.Equal(t, []int{1, 2}, runs[0].pageNrs)
	assert.Same(t, att, runs[1].doc)
	assert.Equal(t, []int{3}, runs[2].pageNrs)
	assert.Equal(t, []int{5}, runs[3].pageNrs)
}

func TestAssemblerEmpty(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewAssembler(0).WriteTo(&buf)
	assert.ErrorIs(t, err, ErrNoPages)
	assert.Zero(t, n)
}

func TestWriteToCountsBytes(t *testing.T) {
	tpl := decode(t, "template_pdf", 100, 101)
	att := decode(t, "boq", 300)

	a := NewAssembler(3)
	a.AddPages(tpl.Pages()...)
	a.AddPages(att.Pages()...)

	var buf bytes.Buffer
	n, err := a.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	path := filepath.Join(t.TempDir(), "merged.pdf")
	require.NoError(t, a.WriteToFile(path))
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 101, 300}, widthsOf(t, onDisk))
}
