package responses

import (
	"bytes"
	"html/template"
	"log"
	"net/http"
)

// WriteHTML renders tpl into a buffer first so a template error still
// yields a clean 500 instead of a half-written page
func WriteHTML(w http.ResponseWriter, HTTPStatusCode int, tpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		log.Printf("[ERROR] rendering template %q: %v", tpl.Name(), err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(HTTPStatusCode) // Response Header Sent & Frozen
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[ERROR] writing HTML to response: %v", err)
	}
}

// WriteText writes a plain text body
func WriteText(w http.ResponseWriter, HTTPStatusCode int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(HTTPStatusCode)
	if _, err := w.Write([]byte(msg)); err != nil {
		log.Printf("[ERROR] writing text to response: %v", err)
	}
}
