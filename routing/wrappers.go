package routing

import (
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/zeptools/pdf-joiner/requests"
	"github.com/zeptools/pdf-joiner/responses"
	"github.com/zeptools/pdf-joiner/rw"
	"github.com/zeptools/pdf-joiner/throttle"
)

// RecoverWrapper turns a handler panic into a 500
var RecoverWrapper = HandlerWrapperFunc(func(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[PANIC] recovered: %v\n%s", rec, debug.Stack())
				responses.WriteSimpleErrorJSON(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		inner.ServeHTTP(w, r)
	})
})

// AccessLogWrapper logs one line per request after it is served
type AccessLogWrapper struct {
	Proxies *requests.TrustedProxies // nil logs the direct peer
}

func (aw AccessLogWrapper) Wrap(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := rw.NewStatusWriter(w)
		inner.ServeHTTP(sw, r)
		log.Printf("[ACCESS] %s %q %s %d %dB %v",
			aw.Proxies.ClientIP(r), r.Method+" "+r.URL.RequestURI(), r.Proto,
			sw.Status(), sw.BytesWritten(), time.Since(start).Round(time.Millisecond))
	})
}

// ThrottleWrapper rejects clients that ran out of tokens in the bucket group.
// Clients are keyed by Proxies.ClientIP, so forwarding headers only count
// when they come from a trusted proxy.
type ThrottleWrapper struct {
	Store   *throttle.BucketStore[string]
	GroupID string
	Proxies *requests.TrustedProxies
}

func (tw ThrottleWrapper) Wrap(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := tw.Proxies.ClientIP(r)
		if !tw.Store.Allow(tw.GroupID, clientIP, time.Now()) {
			log.Printf("[WARN][Throttle] %q blocked in group %q", clientIP, tw.GroupID)
			w.Header().Set("Retry-After", "60")
			responses.WriteSimpleErrorJSON(w, http.StatusTooManyRequests, "too many requests, try again later")
			return
		}
		inner.ServeHTTP(w, r)
	})
}
