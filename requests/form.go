package requests

import (
	"mime"
	"net/http"
)

// IsMultipart reports whether the request body is multipart/form-data
func IsMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// FormValueOr returns the posted form value for key, or def when the key is
// absent. A present but empty value is returned as is.
// Call after ParseMultipartForm/ParseForm.
func FormValueOr(r *http.Request, key string, def string) string {
	if vals, ok := r.PostForm[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	if r.MultipartForm != nil {
		if vals, ok := r.MultipartForm.Value[key]; ok && len(vals) > 0 {
			return vals[0]
		}
	}
	return def
}

// HasFormKey reports whether key was posted at all, regardless of value
func HasFormKey(r *http.Request, key string) bool {
	if _, ok := r.PostForm[key]; ok {
		return true
	}
	if r.MultipartForm != nil {
		_, ok := r.MultipartForm.Value[key]
		return ok
	}
	return false
}
