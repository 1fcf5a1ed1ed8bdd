package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	pkghttp "github.com/BradenHooton/muscuscope/pkg/http"
	"github.com/getsentry/sentry-go"
)

// Recover turns handler panics into a generic 500 and reports them to Sentry
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := string(debug.Stack())
				sentry.WithScope(func(scope *sentry.Scope) {
					scope.SetTag("method", r.Method)
					scope.SetTag("path", r.URL.Path)
					scope.SetExtra("stack", stack)
					sentry.CaptureException(fmt.Errorf("panic: %v", rec))
				})

				logger.ErrorContext(r.Context(), "panic_recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
				)
				pkghttp.WriteInternalError(w, "Internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
