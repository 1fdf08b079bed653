// Package middleware provides the HTTP middleware chain and the error writer
// shared by every handler.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"menuforge/internal/pkg/errors"
	"menuforge/internal/pkg/logger"
)

// RequestIDHeader is the header name for request IDs.
const RequestIDHeader = "X-Request-ID"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	size        int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// RequestID adds a unique request ID to each request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to response header
		w.Header().Set(RequestIDHeader, requestID)

		// Add to context
		ctx := logger.ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging logs HTTP requests with structured logging.
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			// Get request ID from context
			reqLog := log.FromContext(r.Context())

			// Log request start at debug level
			reqLog.Debug("request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)

			// Process request
			next.ServeHTTP(wrapped, r)

			// Calculate duration
			duration := time.Since(start)

			// Determine log level based on status
			logFn := reqLog.Info
			if wrapped.status >= 500 {
				logFn = reqLog.Error
			} else if wrapped.status >= 400 {
				logFn = reqLog.Warn
			}

			// Log request completion
			logFn("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"size", wrapped.size,
				"duration_ms", duration.Milliseconds(),
			)
		})
	}
}

// Recovery recovers from panics and logs them.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					// Get stack trace
					stack := debug.Stack()

					// Log the panic
					reqLog := log.FromContext(r.Context())
					reqLog.Error("panic recovered",
						"panic", rec,
						"stack", string(stack),
						"method", r.Method,
						"path", r.URL.Path,
					)

					WriteError(w, http.StatusInternalServerError, ErrorBody{
						Message: "internal server error",
						Code:    errors.CodeInternal,
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds the request context. Handlers are expected to honor the
// context; when the deadline passes before anything was written the client
// gets a 504.
func Timeout(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			wrapped := wrapResponseWriter(w)
			defer func() {
				cancel()
				if ctx.Err() == context.DeadlineExceeded && !wrapped.wroteHeader {
					te := errors.Timeout(r.Method + " " + r.URL.Path)
					WriteError(wrapped, te.HTTPStatus(), ErrorBody{
						Message: te.Message,
						Code:    te.Code,
					})
				}
			}()

			next.ServeHTTP(wrapped, r.WithContext(ctx))
		})
	}
}

// ErrorHandlerFunc is a handler that reports failures by returning them.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request) error

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Message     string            `json:"message"`
	Code        errors.Code       `json:"code,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Errors      []string          `json:"errors,omitempty"`
	Stack       string            `json:"stack,omitempty"`
}

// ErrorWriter logs handler errors and turns them into JSON responses.
type ErrorWriter struct {
	Log *logger.Logger
	// ExposeStack adds the captured stack trace to response bodies. It must
	// be off in production.
	ExposeStack bool
}

// Wrap adapts fn into an http.HandlerFunc.
func (ew ErrorWriter) Wrap(fn ErrorHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			ew.Handle(w, r, err)
		}
	}
}

// Handle logs err and writes the matching error response.
func (ew ErrorWriter) Handle(w http.ResponseWriter, r *http.Request, err error) {
	reqLog := ew.Log.FromContext(r.Context())

	code := errors.GetCode(err)
	status := errors.GetHTTPStatus(err)
	fields := errors.GetFields(err)

	logFields := []any{
		"error", err.Error(),
		"code", string(code),
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
	}
	for k, v := range fields {
		logFields = append(logFields, k, v)
	}

	var coded *errors.Error
	hasStack := errors.As(err, &coded) && len(coded.Stack) > 0
	if status >= 500 {
		if hasStack {
			logFields = append(logFields, "stack", coded.StackTrace())
		}
		reqLog.Error("request failed", logFields...)
	} else {
		reqLog.Warn("request error", logFields...)
	}

	body := newErrorBody(code, errors.PublicMessage(err), fields)
	if ew.ExposeStack && hasStack {
		body.Stack = coded.StackTrace()
	}
	WriteError(w, status, body)
}

// WriteError writes body with the given status.
func WriteError(w http.ResponseWriter, status int, body ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newErrorBody(code errors.Code, message string, details map[string]any) ErrorBody {
	body := ErrorBody{Message: message, Code: code}
	if fe, ok := details[errors.FieldErrors].(map[string]string); ok {
		body.FieldErrors = fe
	}
	if list, ok := details[errors.FieldList].([]string); ok {
		body.Errors = list
	}
	return body
}

// generateRequestID generates a unique request ID.
func generateRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
