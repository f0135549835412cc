// Package recovery converts panics into logged, reported 500 responses.
package recovery

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"

	"github.com/AayushJain09/Polyplace/shared/logging"
)

// PanicHandler recovers panics in HTTP handlers and goroutines.
type PanicHandler struct {
	logger *logging.Logger
}

func NewPanicHandler(logger *logging.Logger) *PanicHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &PanicHandler{logger: logger}
}

// HTTPMiddleware wraps next with panic recovery. The client always gets
// an opaque 500; details go to the log and Sentry only.
func (ph *PanicHandler) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				ph.report(rec, r)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"error":"internal server error"}`)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Go runs fn in a goroutine that cannot crash the process.
func (ph *PanicHandler) Go(fn func()) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ph.report(rec, nil)
			}
		}()
		fn()
	}()
}

func (ph *PanicHandler) report(recovered interface{}, r *http.Request) {
	stack := debug.Stack()

	log := ph.logger.WithField("recovered", fmt.Sprintf("%v", recovered))
	if r != nil {
		log = log.WithFields(map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
	}
	log.WithField("stack", string(stack)).Error("recovered from panic")

	if sentry.CurrentHub() != nil {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetLevel(sentry.LevelFatal)
			if r != nil {
				scope.SetRequest(r)
			}
			scope.SetContext("panic", map[string]interface{}{
				"recovered": recovered,
				"stack":     string(stack),
			})
			sentry.CaptureException(fmt.Errorf("panic: %v", recovered))
		})
	}
}
