package httpx

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// WithRecover converts any panic escaping the handler into a 500 response.
// With exposeDetail set, the body carries the panic value and stack trace;
// otherwise only the fixed message.
func WithRecover(logger *slog.Logger, exposeDetail bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				stack := debug.Stack()
				logger.Error("panic recovered",
					"request_id", RequestIDFromContext(r.Context()),
					"panic", fmt.Sprint(rec),
					"stack", string(stack),
				)

				body := map[string]any{
					"message": "Internal server error",
					"time":    time.Now().UTC().Format(time.RFC3339),
				}
				if exposeDetail {
					body["error"] = fmt.Sprint(rec)
					body["stack"] = string(stack)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(body)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
