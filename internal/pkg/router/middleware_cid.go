package router

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/uid"
)

const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderRequestID     = "X-Request-ID"
)

const maxCIDLen = 128

// inboundCID returns the first usable id a caller or proxy sent. Values with
// control characters are refused so they cannot forge log lines.
func inboundCID(h http.Header) string {
	for _, name := range [...]string{HeaderCorrelationID, HeaderRequestID} {
		v := strings.TrimSpace(h.Get(name))
		if v == "" || strings.IndexFunc(v, unicode.IsControl) >= 0 {
			continue
		}
		if len(v) > maxCIDLen {
			v = v[:maxCIDLen]
		}
		return v
	}
	return ""
}

// middlewareCorrelationID echoes the id in the response and stores it in the
// request context for logs and published events. A fresh id is generated
// when the request carries none.
func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := inboundCID(r.Header)
			if cid == "" && gen != nil {
				cid = gen.Generate()
			}
			if cid == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set(HeaderCorrelationID, cid)
			next.ServeHTTP(w, r.WithContext(instrument.SetCorrelationID(r.Context(), cid)))
		})
	}
}
