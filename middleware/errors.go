/*
Package middleware provides error handling utilities and structured error responses.
*/
package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/monitor"
	"github.com/sirupsen/logrus"
)

// ErrorCode represents different types of application errors
type ErrorCode string

const (
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeExternalAPI        ErrorCode = "EXTERNAL_API_ERROR"
	ErrCodeSubmission         ErrorCode = "SUBMISSION_ERROR"
	ErrCodeTimedOut           ErrorCode = "TIMED_OUT"
	ErrCodeJobFailed          ErrorCode = "JOB_FAILED"
	ErrCodeProtocol           ErrorCode = "PROTOCOL_ERROR"
)

// APIError represents a structured error response
type APIError struct {
	Error     ErrorCode `json:"error"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// ErrorHandler provides structured error responses
func ErrorHandler(w http.ResponseWriter, err error, code ErrorCode, statusCode int, requestID string) {
	apiErr := APIError{
		Error:     code,
		Message:   getErrorMessage(code),
		Details:   err.Error(),
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	entry := Logger.WithFields(logrus.Fields{
		"error_code":  code,
		"status_code": statusCode,
		"request_id":  requestID,
		"error":       err.Error(),
	})
	if statusCode >= 500 {
		entry.Error("API error occurred")
	} else {
		entry.Warn("API error occurred")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErr)
}

// getErrorMessage returns a user-friendly message for each error code
func getErrorMessage(code ErrorCode) string {
	switch code {
	case ErrCodeBadRequest:
		return "The request is invalid or malformed"
	case ErrCodeNotFound:
		return "The requested resource was not found"
	case ErrCodeRateLimited:
		return "Rate limit exceeded. Please try again later"
	case ErrCodeInternalError:
		return "An internal server error occurred"
	case ErrCodeServiceUnavailable:
		return "The service is temporarily unavailable"
	case ErrCodeValidation:
		return "Request validation failed"
	case ErrCodeExternalAPI:
		return "Failed to communicate with external service"
	case ErrCodeSubmission:
		return "The filter service did not accept the job"
	case ErrCodeTimedOut:
		return "The filter job did not finish in time"
	case ErrCodeJobFailed:
		return "The filter job failed"
	case ErrCodeProtocol:
		return "The filter service returned an inconsistent response"
	default:
		return "An unknown error occurred"
	}
}

// Common error response helpers
func RespondBadRequest(w http.ResponseWriter, err error, requestID string) {
	ErrorHandler(w, err, ErrCodeBadRequest, http.StatusBadRequest, requestID)
}

func RespondNotFound(w http.ResponseWriter, err error, requestID string) {
	ErrorHandler(w, err, ErrCodeNotFound, http.StatusNotFound, requestID)
}

func RespondRateLimited(w http.ResponseWriter, err error, requestID string) {
	ErrorHandler(w, err, ErrCodeRateLimited, http.StatusTooManyRequests, requestID)
}

func RespondInternalError(w http.ResponseWriter, err error, requestID string) {
	ErrorHandler(w, err, ErrCodeInternalError, http.StatusInternalServerError, requestID)
}

func RespondServiceUnavailable(w http.ResponseWriter, err error, requestID string) {
	ErrorHandler(w, err, ErrCodeServiceUnavailable, http.StatusServiceUnavailable, requestID)
}

func RespondValidationError(w http.ResponseWriter, err error, requestID string) {
	ErrorHandler(w, err, ErrCodeValidation, http.StatusBadRequest, requestID)
}

func RespondExternalAPIError(w http.ResponseWriter, err error, requestID string) {
	ErrorHandler(w, err, ErrCodeExternalAPI, http.StatusBadGateway, requestID)
}

// RespondMonitorError maps a filter operation error to its HTTP response
func RespondMonitorError(w http.ResponseWriter, err error, requestID string) {
	switch monitor.Kind(err) {
	case monitor.KindValidation:
		RespondValidationError(w, err, requestID)
	case monitor.KindSubmission:
		ErrorHandler(w, err, ErrCodeSubmission, http.StatusBadGateway, requestID)
	case monitor.KindNetwork, monitor.KindConnectionLost:
		RespondExternalAPIError(w, err, requestID)
	case monitor.KindTimeout:
		ErrorHandler(w, err, ErrCodeTimedOut, http.StatusGatewayTimeout, requestID)
	case monitor.KindJob:
		ErrorHandler(w, err, ErrCodeJobFailed, http.StatusBadGateway, requestID)
	case monitor.KindProtocol:
		ErrorHandler(w, err, ErrCodeProtocol, http.StatusBadGateway, requestID)
	default:
		RespondInternalError(w, err, requestID)
	}
}
