package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Property: every request is logged with method, path, status, duration and request id
func TestProperty_RequestLogging(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all requests are logged with required fields", prop.ForAll(
		func(method string, path string) bool {
			core, logs := observer.New(zapcore.InfoLevel)
			logger := zap.New(core)

			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.Use(RequestIDMiddleware())
			router.Use(RequestLoggingMiddleware(logger))
			router.Handle(method, path, func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(method, path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			var requestLog *observer.LoggedEntry
			for i, entry := range logs.All() {
				if entry.Message == "Request completed" {
					requestLog = &logs.All()[i]
					break
				}
			}
			if requestLog == nil {
				t.Logf("Request log entry not found")
				return false
			}

			fields := requestLog.ContextMap()
			if fields["method"] != method || fields["path"] != path {
				t.Logf("method/path mismatch: %v %v", fields["method"], fields["path"])
				return false
			}
			for _, key := range []string{"status", "duration", "timestamp", "request_id"} {
				if _, ok := fields[key]; !ok {
					t.Logf("%s field missing", key)
					return false
				}
			}
			return fields["request_id"] == w.Header().Get(RequestIDHeader)
		},
		gen.OneConstOf("GET", "POST", "PUT", "DELETE"),
		gen.OneConstOf("/api/v1/records", "/api/v1/navigation", "/health"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: errors are logged with stack traces and request context
func TestProperty_ErrorLoggingDetail(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("errors are logged with stack traces and context", prop.ForAll(
		func(errorMessage string, path string) bool {
			core, logs := observer.New(zapcore.ErrorLevel)
			logger := zap.New(core)

			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.Use(ErrorLoggingMiddleware(logger))
			router.GET(path, func(c *gin.Context) {
				_ = c.Error(&testError{msg: errorMessage})
				c.Status(http.StatusInternalServerError)
			})

			req := httptest.NewRequest("GET", path, nil)
			router.ServeHTTP(httptest.NewRecorder(), req)

			entries := logs.FilterMessage("Request error occurred").All()
			if len(entries) != 1 {
				t.Logf("expected one error log entry, got %d", len(entries))
				return false
			}

			fields := entries[0].ContextMap()
			if _, ok := fields["error"]; !ok {
				return false
			}
			if fields["method"] != "GET" || fields["path"] != path {
				return false
			}
			_, ok := fields["stack_trace"]
			return ok
		},
		gen.AlphaString(),
		gen.OneConstOf("/api/v1/pharmacy", "/api/v1/triage", "/api/v1/transcribe"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	// a valid incoming id is kept
	incoming := uuid.NewString()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))
	assert.Equal(t, incoming, w.Body.String())

	// anything else is replaced
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryMiddleware(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	require.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestSlowRequestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SlowRequestLoggingMiddleware(zap.New(core), 20*time.Millisecond))
	router.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/slow", func(c *gin.Context) {
		time.Sleep(40 * time.Millisecond)
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/fast", nil))
	assert.Equal(t, 0, logs.Len())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/slow", nil))
	entries := logs.FilterMessage("Slow request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/slow", entries[0].ContextMap()["path"])
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
