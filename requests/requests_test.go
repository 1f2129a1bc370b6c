package requests

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded ignored", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:5000", "10.0.0.1"},
		{"real ip ignored", map[string]string{"X-Real-IP": " 198.51.100.4 "}, "10.0.0.1:5000", "10.0.0.1"},
		{"remote addr", nil, "192.0.2.1:41000", "192.0.2.1"},
		{"remote addr without port", nil, "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}

func TestTrustedProxiesClientIP(t *testing.T) {
	tp, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.5 "})
	require.NoError(t, err)

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"untrusted peer spoofing forwarded", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "198.51.100.9:5000", "198.51.100.9"},
		{"untrusted peer spoofing real ip", map[string]string{"X-Real-IP": "203.0.113.7"}, "198.51.100.9:5000", "198.51.100.9"},
		{"trusted peer forwarded", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "10.0.0.1:5000", "203.0.113.7"},
		{"prepended entry skipped", map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.7, 10.0.0.2"}, "10.0.0.1:5000", "203.0.113.7"},
		{"plain ip entry", map[string]string{"X-Forwarded-For": "203.0.113.8"}, "192.168.1.5:443", "203.0.113.8"},
		{"all hops trusted", map[string]string{"X-Forwarded-For": "10.1.1.1, 10.0.0.2"}, "10.0.0.1:5000", "10.1.1.1"},
		{"trusted peer real ip", map[string]string{"X-Real-IP": " 198.51.100.4 "}, "10.0.0.1:5000", "198.51.100.4"},
		{"trusted peer no headers", nil, "10.0.0.1:5000", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, tp.ClientIP(r))
		})
	}

	var none *TrustedProxies
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5000"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "10.0.0.1", none.ClientIP(r))
	assert.False(t, none.Trusts("10.0.0.1"))
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)

	tp, err := ParseTrustedProxies(nil)
	require.NoError(t, err)
	assert.False(t, tp.Trusts("127.0.0.1"))
}

func TestMultipartHelpers(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("include_boq", "on"))
	require.NoError(t, mw.WriteField("page_boq", ""))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/merge", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	assert.True(t, IsMultipart(r))
	require.NoError(t, r.ParseMultipartForm(1<<20))

	assert.True(t, HasFormKey(r, "include_boq"))
	assert.False(t, HasFormKey(r, "include_catalog"))
	assert.Equal(t, "", FormValueOr(r, "page_boq", "3"))
	assert.Equal(t, "9", FormValueOr(r, "page_datasheets", "9"))
}

func TestIsMultipartRejectsOthers(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/merge", nil)
	r.Header.Set("Content-Type", "application/json")
	assert.False(t, IsMultipart(r))
}
