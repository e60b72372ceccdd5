/*
Package middleware provides HTTP middleware for logging, error handling, and request/response tracking.
*/
package middleware

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/utils"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// Logger is the global structured logger
var Logger = logrus.New()

// ResponseWriter captures response data for logging
type ResponseWriter struct {
	http.ResponseWriter
	status int
	body   *bytes.Buffer
}

func (rw *ResponseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	// only error bodies are logged, and only small ones
	if rw.status >= 400 && rw.body.Len() < 1024 {
		rw.body.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}

// Status returns the response status code
func (rw *ResponseWriter) Status() int {
	return rw.status
}

// InitLogger initializes the structured logger at the given level.
// Unknown levels fall back to info.
func InitLogger(level string) *logrus.Logger {
	Logger = logrus.New()
	Logger.SetOutput(os.Stdout)
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		Logger.WithField("level", level).Warn("Unknown log level, using info")
	}
	Logger.SetLevel(lvl)
	return Logger
}

// RequestID returns the request ID set by LoggingMiddleware, generating one
// when the request did not pass through it.
func RequestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return utils.GenerateRequestID()
}

// LoggingMiddleware logs HTTP requests and responses
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = utils.GenerateRequestID()
			r.Header.Set(RequestIDHeader, requestID)
		}
		w.Header().Set(RequestIDHeader, requestID)

		// Read request body for logging
		var bodyBytes []byte
		if r.Body != nil {
			bodyBytes, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		rw := &ResponseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
			body:           bytes.NewBuffer(nil),
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		fields := logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"query":       r.URL.RawQuery,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
			"status":      rw.status,
			"duration_ms": duration.Milliseconds(),
			"request_id":  requestID,
		}

		if len(bodyBytes) > 0 && len(bodyBytes) < 1024 {
			fields["request_body"] = string(bodyBytes)
		}

		if rw.status >= 400 && rw.body.Len() > 0 {
			fields["response_body"] = rw.body.String()
		}

		switch {
		case rw.status >= 500:
			Logger.WithFields(fields).Error("Request completed with server error")
		case rw.status >= 400:
			Logger.WithFields(fields).Warn("Request completed with client error")
		default:
			Logger.WithFields(fields).Info("Request completed successfully")
		}
	})
}
