// Package health serves the liveness and readiness probes.
package health

import "net/http"

// Check reports whether a dependency is ready, with a short reason when not.
type Check func() (ok bool, reason string)

// Healthz returns 200 "ok\n" while the process is serving.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readyz returns a handler that answers 200 "ready\n" when every check
// passes and 503 with the first failing reason otherwise.
func Readyz(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		for _, check := range checks {
			if ok, reason := check(); !ok {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("not ready: " + reason + "\n"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready\n"))
	}
}
