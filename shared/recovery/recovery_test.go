package recovery

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AayushJain09/Polyplace/shared/logging"
)

func TestHTTPMiddlewareRecoversPanics(t *testing.T) {
	ph := NewPanicHandler(logging.Nop())
	h := ph.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestHTTPMiddlewarePassesThrough(t *testing.T) {
	ph := NewPanicHandler(logging.Nop())
	h := ph.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGoSurvivesPanic(t *testing.T) {
	ph := NewPanicHandler(logging.Nop())

	var wg sync.WaitGroup
	wg.Add(1)
	ph.Go(func() {
		defer wg.Done()
		panic("goroutine boom")
	})
	wg.Wait()
}
