package responses

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/zeptools/pdf-joiner/rw"
)

func WritePDFBytesWithFilename(w http.ResponseWriter, filename string, PDFBytes []byte) {
	WritePDFResponseHeaders(w, filename, "inline", len(PDFBytes))
	_, err := w.Write(PDFBytes)
	if err != nil {
		log.Printf("[ERROR] writing PDF to response: %v", err)
	}
}

// StreamPDFAttachment sends the PDF as a download. Returns the bytes written.
func StreamPDFAttachment(w http.ResponseWriter, filename string, PDFBytes []byte) int64 {
	WritePDFResponseHeaders(w, filename, "attachment", len(PDFBytes))
	cw := rw.NewCountWriter(w)
	if _, err := cw.Write(PDFBytes); err != nil {
		log.Printf("[ERROR] streaming PDF to response: %v", err)
	}
	return cw.BytesWritten()
}

// CopyPDFAttachment streams src as a download of unknown length
func CopyPDFAttachment(w http.ResponseWriter, filename string, src io.WriterTo) (int64, error) {
	WritePDFResponseHeaders(w, filename, "attachment", -1)
	return src.WriteTo(w)
}

// WritePDFResponseHeaders write HTTP response headers for PDF response. i.e. headers are frozen
// disposition: "inline" or "attachment". size < 0 omits Content-Length
func WritePDFResponseHeaders(w http.ResponseWriter, filename string, disposition string, size int) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	if size >= 0 {
		w.Header().Set("Content-Length", strconv.Itoa(size))
	}
	w.WriteHeader(http.StatusOK) // Response Header Sent & Frozen
}
