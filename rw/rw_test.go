package rw

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := NewCountWriter(&buf)
	_, _ = cw.Write([]byte("%PDF-"))
	_, _ = cw.Write([]byte("1.7"))
	assert.Equal(t, int64(8), cw.BytesWritten())
	assert.Equal(t, "%PDF-1.7", buf.String())
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := NewStatusWriter(rec)
	assert.Equal(t, http.StatusOK, sw.Status())

	sw.WriteHeader(http.StatusRequestEntityTooLarge)
	_, _ = sw.Write([]byte("too large"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, sw.Status())
	assert.Equal(t, int64(9), sw.BytesWritten())
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestStatusWriterImplicitOK(t *testing.T) {
	sw := NewStatusWriter(httptest.NewRecorder())
	_, _ = sw.Write([]byte("ok"))
	sw.WriteHeader(http.StatusTeapot) // too late, ignored for the record
	assert.Equal(t, http.StatusOK, sw.Status())
}
