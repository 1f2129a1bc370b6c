package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeptools/pdf-joiner/audit"
	"github.com/zeptools/pdf-joiner/doctypes"
	"github.com/zeptools/pdf-joiner/pdfs"
	"github.com/zeptools/pdf-joiner/pdfs/pdftest"
	"github.com/zeptools/pdf-joiner/requests"
	"github.com/zeptools/pdf-joiner/routing"
	"github.com/zeptools/pdf-joiner/tpl"
)

func TestMain(m *testing.M) {
	pdfapi.DisableConfigDir()
	os.Exit(m.Run())
}

type memRecorder struct {
	records []audit.Record
	err     error
}

func (m *memRecorder) Record(_ context.Context, rec audit.Record) error {
	m.records = append(m.records, rec)
	return m.err
}

// form builds a multipart body. Files map field -> content, a nil content
// posts an empty file input.
type form struct {
	values map[string]string
	files  map[string][]byte
}

func (f form) encode(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range f.values {
		require.NoError(t, mw.WriteField(k, v))
	}
	for k, data := range f.files {
		name := k + ".pdf"
		if data == nil {
			name = ""
		}
		fw, err := mw.CreateFormFile(k, name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newHandlers(t *testing.T, rec audit.Recorder) *Handlers {
	t.Helper()
	store := tpl.NewHTMLTemplateStore()
	require.NoError(t, store.LoadBaseTemplates("../templates/html"))
	require.NoError(t, CombineTemplates(store))
	return &Handlers{
		Service:        NewService(doctypes.Default(), rec),
		Templates:      store,
		AppName:        "BMS PDF Joiner",
		MaxUploadBytes: 8 << 20,
	}
}

func serve(t *testing.T, h *Handlers, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	router := routing.NewBaseRouter()
	h.Register(router, []routing.HandlerWrapper{routing.RecoverWrapper})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postForm(t *testing.T, h *Handlers, f form) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := f.encode(t)
	req := httptest.NewRequest(http.MethodPost, "/merge", body)
	req.Header.Set("Content-Type", ctype)
	return serve(t, h, req)
}

func widthsOf(t *testing.T, data []byte) []int {
	t.Helper()
	doc, err := pdfs.Decode("out", data)
	require.NoError(t, err)
	out := make([]int, doc.PageCount())
	for i := range out {
		w, err := doc.PageWidth(i + 1)
		require.NoError(t, err)
		out[i] = int(w + 0.5)
	}
	return out
}

func TestMergeEndToEnd(t *testing.T) {
	rec := &memRecorder{}
	h := newHandlers(t, rec)

	w := postForm(t, h, form{
		values: map[string]string{
			"include_boq": "on", "page_boq": "2",
			"include_datasheets": "on", "page_datasheets": "3",
			"include_catalog": "on", "page_catalog": "1",
		},
		files: map[string][]byte{
			"template_pdf": pdftest.Build(pdftest.Widths(100, 5)...),
			"boq":          pdftest.Build(300, 301),
			"datasheets":   pdftest.Build(400),
			"catalog":      pdftest.Build(500),
		},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="merged_document.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, []int{100, 101, 300, 301, 102, 400, 500, 103, 104}, widthsOf(t, w.Body.Bytes()))

	require.Len(t, rec.records, 1)
	got := rec.records[0]
	assert.Equal(t, 5, got.TemplatePages)
	assert.Equal(t, 9, got.OutputPages)
	assert.Equal(t, w.Body.Len(), got.OutputBytes)
	assert.Equal(t, audit.Fingerprint(w.Body.Bytes()), got.Digest)
	assert.Equal(t, []audit.Inserted{
		{DocTypeID: "boq", Requested: 2, Pages: 2},
		{DocTypeID: "datasheets", Requested: 3, Pages: 1},
		{DocTypeID: "catalog", Requested: 1, Pages: 1},
	}, got.Inserted)
}

func TestMergeRecordsClientIP(t *testing.T) {
	post := func(h *Handlers, remote, forwarded string) {
		body, ctype := form{files: map[string][]byte{"template_pdf": pdftest.Build(100)}}.encode(t)
		req := httptest.NewRequest(http.MethodPost, "/merge", body)
		req.Header.Set("Content-Type", ctype)
		req.Header.Set("X-Forwarded-For", forwarded)
		req.RemoteAddr = remote
		w := serve(t, h, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	rec := &memRecorder{}
	h := newHandlers(t, rec)
	post(h, "198.51.100.9:4000", "203.0.113.7")

	proxies, err := requests.ParseTrustedProxies([]string{"127.0.0.1"})
	require.NoError(t, err)
	h.Proxies = proxies
	post(h, "127.0.0.1:4000", "203.0.113.7")

	require.Len(t, rec.records, 2)
	assert.Equal(t, "198.51.100.9", rec.records[0].ClientIP)
	assert.Equal(t, "203.0.113.7", rec.records[1].ClientIP)
}

func TestMergeDefaultsAndSkips(t *testing.T) {
	h := newHandlers(t, nil)

	w := postForm(t, h, form{
		values: map[string]string{
			"include_boq":        "on", // no page_boq: default 3
			"include_io_points":  "on", // no file: skipped
			"page_riser_diagram": "1",  // file without include: skipped
		},
		files: map[string][]byte{
			"template_pdf":  pdftest.Build(pdftest.Widths(100, 4)...),
			"boq":           pdftest.Build(300),
			"riser_diagram": pdftest.Build(600),
		},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []int{100, 101, 102, 300, 103}, widthsOf(t, w.Body.Bytes()))
}

func TestMergeTemplateOnly(t *testing.T) {
	h := newHandlers(t, nil)
	w := postForm(t, h, form{files: map[string][]byte{"template_pdf": pdftest.Build(100, 101)}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{100, 101}, widthsOf(t, w.Body.Bytes()))
}

func TestMergeRejections(t *testing.T) {
	tplPDF := pdftest.Build(100, 101, 102)
	cases := []struct {
		name   string
		form   form
		status int
		body   string
	}{
		{
			name:   "no template",
			form:   form{values: map[string]string{"include_boq": "on"}, files: map[string][]byte{"boq": pdftest.Build(300)}},
			status: http.StatusBadRequest,
			body:   "No template PDF provided",
		},
		{
			name:   "template not selected",
			form:   form{files: map[string][]byte{"template_pdf": nil}},
			status: http.StatusBadRequest,
			body:   "No selected template PDF",
		},
		{
			name: "invalid index checked before decoding",
			form: form{
				values: map[string]string{"include_boq": "on", "page_boq": "three"},
				files:  map[string][]byte{"template_pdf": tplPDF, "boq": []byte("not a pdf")},
			},
			status: http.StatusBadRequest,
			body:   "Invalid page number for BOQ",
		},
		{
			name: "empty index",
			form: form{
				values: map[string]string{"include_datasheets": "on", "page_datasheets": ""},
				files:  map[string][]byte{"template_pdf": tplPDF, "datasheets": pdftest.Build(400)},
			},
			status: http.StatusBadRequest,
			body:   "Invalid page number for Datasheets",
		},
		{
			name: "unreadable attachment",
			form: form{
				values: map[string]string{"include_boq": "on"},
				files:  map[string][]byte{"template_pdf": tplPDF, "boq": []byte("not a pdf")},
			},
			status: http.StatusUnprocessableEntity,
			body:   "boq",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &memRecorder{}
			w := postForm(t, newHandlers(t, rec), tc.form)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
			assert.Empty(t, rec.records)
		})
	}
}

func TestMergeNotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/merge", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := serve(t, newHandlers(t, nil), req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No template PDF provided", w.Body.String())
}

func TestMergeTooLargeDeclared(t *testing.T) {
	h := newHandlers(t, nil)
	h.MaxUploadBytes = 1 << 10

	w := postForm(t, h, form{files: map[string][]byte{"template_pdf": bytes.Repeat([]byte("x"), 4<<10)}})

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	assert.Contains(t, body, "Upload too large")
	assert.Contains(t, body, "Split large documents")
	assert.Contains(t, body, "fewer attachments")
}

func TestMergeTooLargeStreamed(t *testing.T) {
	h := newHandlers(t, nil)
	h.MaxUploadBytes = 1 << 10

	body, ctype := form{files: map[string][]byte{"template_pdf": bytes.Repeat([]byte("x"), 4<<10)}}.encode(t)
	req := httptest.NewRequest(http.MethodPost, "/merge", io.NopCloser(body))
	req.ContentLength = -1
	req.Header.Set("Content-Type", ctype)

	w := serve(t, h, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestIndexPage(t *testing.T) {
	w := serve(t, newHandlers(t, nil), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `name="template_pdf"`)
	for _, dt := range doctypes.Default().All() {
		assert.Contains(t, body, `name="include_`+dt.ID+`"`)
		assert.Contains(t, body, `name="page_`+dt.ID+`"`)
	}
	assert.Contains(t, body, "I/O Points")
	assert.Contains(t, body, "8 MB")
}

func TestDocTypesAndHealthz(t *testing.T) {
	h := newHandlers(t, nil)

	w := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/doc-types", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"catalog"`)
	assert.Contains(t, w.Body.String(), `"after":"datasheets"`)

	w = serve(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = serve(t, h, httptest.NewRequest(http.MethodGet, "/merge", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServiceMergeRecorderFailure(t *testing.T) {
	rec := &memRecorder{err: errors.New("redis down")}
	s := NewService(doctypes.Default(), rec)

	res, err := s.Merge(context.Background(), &Submission{
		Template: Upload{Filename: "t.pdf", Data: pdftest.Build(100, 101)},
		Attachments: []Attachment{
			{DocTypeID: "catalog", Upload: Upload{Data: pdftest.Build(500)}, Index: "0"},
			{DocTypeID: "datasheets", Upload: Upload{Data: pdftest.Build(400)}, Index: "1"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"datasheets", "catalog"}, res.Order)
	assert.Equal(t, 4, res.OutputPages)
	assert.Equal(t, []int{100, 400, 500, 101}, widthsOf(t, res.PDF))
	assert.Len(t, rec.records, 1)
}

func TestServiceMergeUnknownDocType(t *testing.T) {
	s := NewService(doctypes.Default(), nil)
	_, err := s.Merge(context.Background(), &Submission{
		Template:    Upload{Data: pdftest.Build(100)},
		Attachments: []Attachment{{DocTypeID: "invoice", Index: "1"}},
	})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(ErrEmptyTemplate))
	assert.True(t, errors.Is(ErrEmptyTemplate, ErrMissingTemplate))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusOf(&PayloadTooLargeError{Limit: 1 << 20, Size: 3 << 20}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(pdfs.ErrEncrypted))
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(fmt.Errorf("assemble: %w", pdfs.ErrNoPages)))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("boom")))
	assert.Equal(t, "upload of 3.0 MB exceeds the 1.0 MB limit", (&PayloadTooLargeError{Limit: 1 << 20, Size: 3 << 20}).Error())
}
