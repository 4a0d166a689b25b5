package health

import (
	"encoding/json"
	"net/http"
	"strings"
)

var plainBodies = map[string]string{
	StatusHealthy:   "OK",
	StatusDegraded:  "Degraded",
	StatusUnhealthy: "Service Unavailable",
}

// LivenessHandler answers 200 while the process serves requests. It probes
// nothing.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, http.StatusOK, &Response{Status: StatusHealthy})
	}
}

// ReadinessHandler runs the probes on every request. Only a failing required
// probe answers 503; a failing optional probe answers 200 with status
// "degraded".
func ReadinessHandler(required Checks, opts ...Option) http.HandlerFunc {
	cfg := newConfig(opts...)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := runChecks(r.Context(), required, cfg)

		code := http.StatusOK
		if resp.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		respond(w, r, code, resp)
	}
}

// respond writes JSON when the client asks for it (?format=json or an
// Accept header naming application/json), plain text otherwise.
func respond(w http.ResponseWriter, r *http.Request, code int, resp *Response) {
	h := w.Header()
	h.Set("Cache-Control", "no-store")

	if r.URL.Query().Get("format") == "json" || strings.Contains(r.Header.Get("Accept"), "application/json") {
		h.Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	h.Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(plainBodies[resp.Status]))
}
