package merge

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/zeptools/pdf-joiner/doctypes"
	"github.com/zeptools/pdf-joiner/requests"
)

const (
	TemplateField = "template_pdf"
	IncludePrefix = "include_"
	PagePrefix    = "page_"

	// parts beyond this are spooled to temp files by mime/multipart
	formMemory = 32 << 20
)

// Upload is one posted file, fully read
type Upload struct {
	Filename string
	Data     []byte
}

// Attachment is an enabled doc type with its file and raw index
type Attachment struct {
	DocTypeID string
	Upload
	Index string
}

// Submission is a parsed merge form
type Submission struct {
	Template    Upload
	Attachments []Attachment // catalog order
	ClientIP    string
}

// ParseSubmission reads the merge form from r. Bodies over maxBytes fail
// with *PayloadTooLargeError; maxBytes <= 0 disables the ceiling.
//
// Form fields:
//
//	template_pdf    template file, required
//	include_<id>    presence enables doc type <id>
//	<id>            file for doc type <id>, skipped when absent or unnamed
//	page_<id>       insertion index, defaults to the doc type's DefaultPage
func ParseSubmission(w http.ResponseWriter, r *http.Request, cat *doctypes.Catalog, maxBytes int64) (*Submission, error) {
	if maxBytes > 0 {
		if r.ContentLength > maxBytes {
			return nil, &PayloadTooLargeError{Limit: maxBytes, Size: r.ContentLength}
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if !requests.IsMultipart(r) {
		return nil, ErrMissingTemplate
	}
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &PayloadTooLargeError{Limit: tooLarge.Limit, Size: -1}
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedForm, err)
	}

	sub := &Submission{ClientIP: requests.GetClientIP(r)}

	tplFile, ok := formFile(r, TemplateField)
	if !ok {
		// an empty file input arrives as a plain value
		if requests.HasFormKey(r, TemplateField) {
			return nil, ErrEmptyTemplate
		}
		return nil, ErrMissingTemplate
	}
	if tplFile.Filename == "" {
		return nil, ErrEmptyTemplate
	}
	up, err := readUpload(tplFile)
	if err != nil {
		return nil, err
	}
	sub.Template = up

	for _, dt := range cat.All() {
		if !requests.HasFormKey(r, IncludePrefix+dt.ID) {
			continue
		}
		fh, ok := formFile(r, dt.ID)
		if !ok || fh.Filename == "" {
			continue
		}
		up, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		sub.Attachments = append(sub.Attachments, Attachment{
			DocTypeID: dt.ID,
			Upload:    up,
			Index:     requests.FormValueOr(r, PagePrefix+dt.ID, strconv.Itoa(dt.DefaultPage)),
		})
	}
	return sub, nil
}

func formFile(r *http.Request, key string) (*multipart.FileHeader, bool) {
	if r.MultipartForm == nil {
		return nil, false
	}
	fhs := r.MultipartForm.File[key]
	if len(fhs) == 0 {
		return nil, false
	}
	return fhs[0], true
}

func readUpload(fh *multipart.FileHeader) (Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return Upload{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return Upload{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return Upload{Filename: fh.Filename, Data: data}, nil
}
