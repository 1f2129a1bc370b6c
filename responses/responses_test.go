package responses

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSimpleErrorJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSimpleErrorJSON(rec, http.StatusBadRequest, "Invalid page number for BOQ")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var msg Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, Message{Type: "error", Message: "Invalid page number for BOQ"}, msg)
}

func TestStreamPDFAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	n := StreamPDFAttachment(rec, "merged_document.pdf", []byte("%PDF-1.7"))

	assert.Equal(t, int64(8), n)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="merged_document.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "8", rec.Header().Get("Content-Length"))
}

func TestWritePDFBytesWithFilenameInline(t *testing.T) {
	rec := httptest.NewRecorder()
	WritePDFBytesWithFilename(rec, "preview.pdf", []byte("%PDF"))
	assert.Equal(t, `inline; filename="preview.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", rec.Body.String())
}

func TestWriteHTML(t *testing.T) {
	tpl := template.Must(template.New("error").Parse(`<p>{{.}}</p>`))
	rec := httptest.NewRecorder()
	WriteHTML(rec, http.StatusRequestEntityTooLarge, tpl, "<too large>")

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "<p>&lt;too large&gt;</p>", rec.Body.String())
}

func TestWriteHTMLTemplateError(t *testing.T) {
	tpl := template.Must(template.New("broken").Parse(`{{.Missing.Field}}`))
	rec := httptest.NewRecorder()
	WriteHTML(rec, http.StatusOK, tpl, struct{}{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
