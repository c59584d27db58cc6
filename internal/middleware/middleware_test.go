package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpr-service/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestRequestIDMiddleware verifies IDs are generated or propagated.
func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, utils.GetRequestID(c))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	if _, err := uuid.Parse(w.Body.String()); err != nil {
		t.Fatalf("generated request id %q: %v", w.Body.String(), err)
	}
	if w.Header().Get(RequestIDHeader) != w.Body.String() {
		t.Errorf("header = %q, body = %q", w.Header().Get(RequestIDHeader), w.Body.String())
	}

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, given)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Body.String() != given {
		t.Errorf("request id = %q, want %q", w.Body.String(), given)
	}
}

// TestRecoveryMiddleware verifies panics become 500 envelopes.
func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware(), RecoveryMiddleware(zap.NewNop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
