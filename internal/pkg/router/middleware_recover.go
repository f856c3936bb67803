package router

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/dhakamart/verifyd/internal/pkg/stacktrace"
)

//nolint:errcheck,gosec // best-effort response write after a panic
func middlewareRecoverer(internalReason string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					//nolint:err113,errorlint // this must compare directly
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}

					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)

					if paths := stacktrace.InternalPaths(debug.Stack()); len(paths) > 0 {
						slog.ErrorContext(r.Context(), "panic on the server", "because", rvr, "stack", paths)
					} else {
						slog.ErrorContext(r.Context(), "panic on the server", "because", rvr, "stack", string(debug.Stack()))
					}

					json.NewEncoder(w).Encode(map[string]any{
						"ok":               false,
						"error":            internalReason,
						"clearResendTimer": true,
						"resendAllowedNow": true,
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
