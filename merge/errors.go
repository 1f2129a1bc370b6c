package merge

import (
	"errors"
	"fmt"
)

// ErrMissingTemplate is returned when the form has no template_pdf file
var ErrMissingTemplate = errors.New("No template PDF provided")

// ErrEmptyTemplate is a template_pdf field posted without a file selected.
// It matches ErrMissingTemplate under errors.Is.
var ErrEmptyTemplate error = &templateError{msg: "No selected template PDF"}

type templateError struct {
	msg string
}

func (e *templateError) Error() string {
	return e.msg
}

func (e *templateError) Is(target error) bool {
	return target == ErrMissingTemplate
}

// ErrMalformedForm wraps multipart parse failures other than size
var ErrMalformedForm = errors.New("malformed upload form")

// PayloadTooLargeError reports a request body over the upload ceiling.
// Size is the declared Content-Length, or -1 when the body was cut off while
// reading.
type PayloadTooLargeError struct {
	Limit int64
	Size  int64
}

func (e *PayloadTooLargeError) Error() string {
	if e.Size < 0 {
		return fmt.Sprintf("upload exceeds the %s limit", humanBytes(e.Limit))
	}
	return fmt.Sprintf("upload of %s exceeds the %s limit", humanBytes(e.Size), humanBytes(e.Limit))
}

func humanBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
