package merge

import (
	"errors"
	"html/template"
	"log"
	"net/http"

	"github.com/zeptools/pdf-joiner/doctypes"
	"github.com/zeptools/pdf-joiner/pdfs"
	"github.com/zeptools/pdf-joiner/requests"
	"github.com/zeptools/pdf-joiner/responses"
	"github.com/zeptools/pdf-joiner/routing"
	"github.com/zeptools/pdf-joiner/splice"
	"github.com/zeptools/pdf-joiner/tpl"
)

const (
	OutputFilename = "merged_document.pdf"

	IndexTemplate = "index"
	ErrorTemplate = "error"
)

type Handlers struct {
	Service        *Service
	Templates      *tpl.HTMLTemplateStore
	AppName        string
	MaxUploadBytes int64
	Proxies        *requests.TrustedProxies // nil records the direct peer
}

// CombineTemplates builds the page templates the handlers render from the
// base templates loaded into s
func CombineTemplates(s *tpl.HTMLTemplateStore) error {
	if err := s.Combine(IndexTemplate, "layout", "pages/index"); err != nil {
		return err
	}
	return s.Combine(ErrorTemplate, "layout", "pages/error")
}

type indexPage struct {
	AppName     string
	DocTypes    []doctypes.DocType
	MaxUploadMB int64
}

type errorPage struct {
	AppName  string
	Status   int
	Title    string
	Message  string
	Guidance []string
}

var tooLargeGuidance = []string{
	"Reduce the file size of the PDFs, e.g. by compressing images",
	"Split large documents into several smaller files",
	"Upload fewer attachments per merge",
}

// Register adds the merge routes to r. wrappers apply to every route,
// mergeWrappers additionally to POST /merge.
func (h *Handlers) Register(r routing.Router, wrappers []routing.HandlerWrapper, mergeWrappers ...routing.HandlerWrapper) {
	g := &routing.RouteGroup{Router: r, HandlerWrappers: wrappers}
	g.HandleFunc("GET /{$}", h.Index)
	g.HandleFunc("GET /healthz", h.Healthz)
	g.Group("/api", func(api *routing.RouteGroup) {
		api.HandleFunc("GET /doc-types", h.DocTypes)
	})
	g.HandleFunc("POST /merge", h.Merge, mergeWrappers...)
}

func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	t, ok := h.Templates.Get(IndexTemplate)
	if !ok {
		log.Printf("[ERROR][MERGE] template %q not loaded", IndexTemplate)
		responses.WriteText(w, http.StatusInternalServerError, "internal server error")
		return
	}
	responses.WriteHTML(w, http.StatusOK, t, indexPage{
		AppName:     h.AppName,
		DocTypes:    h.Service.Catalog.All(),
		MaxUploadMB: h.MaxUploadBytes >> 20,
	})
}

func (h *Handlers) DocTypes(w http.ResponseWriter, r *http.Request) {
	responses.EncodeWriteJSON(w, http.StatusOK, h.Service.Catalog.All())
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	responses.WriteText(w, http.StatusOK, "OK")
}

func (h *Handlers) Merge(w http.ResponseWriter, r *http.Request) {
	sub, err := ParseSubmission(w, r, h.Service.Catalog, h.MaxUploadBytes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sub.ClientIP = h.Proxies.ClientIP(r)
	res, err := h.Service.Merge(r.Context(), sub)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	responses.StreamPDFAttachment(w, OutputFilename, res.PDF)
}

// statusOf maps a merge failure to its HTTP status
func statusOf(err error) int {
	var (
		invalidIndex *splice.InvalidIndexError
		unknown      *splice.UnknownDocTypeError
		duplicate    *splice.DuplicateRequestError
		tooLarge     *PayloadTooLargeError
	)
	switch {
	case errors.Is(err, ErrMissingTemplate),
		errors.Is(err, ErrMalformedForm),
		errors.As(err, &invalidIndex),
		errors.As(err, &unknown),
		errors.As(err, &duplicate):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pdfs.ErrEncrypted),
		errors.Is(err, pdfs.ErrUnreadable),
		errors.Is(err, pdfs.ErrNoPages):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	switch status {
	case http.StatusInternalServerError:
		log.Printf("[ERROR][MERGE] %s %s: %v", r.Method, r.URL.Path, err)
		responses.WriteText(w, status, "internal server error")
	case http.StatusRequestEntityTooLarge:
		log.Printf("[WARN][MERGE] %v", err)
		t, ok := h.Templates.Get(ErrorTemplate)
		if !ok {
			responses.WriteText(w, status, err.Error())
			return
		}
		h.writeErrorPage(w, t, errorPage{
			AppName:  h.AppName,
			Status:   status,
			Title:    "Upload too large",
			Message:  err.Error(),
			Guidance: tooLargeGuidance,
		})
	default:
		log.Printf("[INFO][MERGE] rejected: %v", err)
		responses.WriteText(w, status, err.Error())
	}
}

func (h *Handlers) writeErrorPage(w http.ResponseWriter, t *template.Template, page errorPage) {
	// the body may not have been drained
	w.Header().Set("Connection", "close")
	responses.WriteHTML(w, page.Status, t, page)
}
