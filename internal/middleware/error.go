package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mattress-store/internal/domain"
	"mattress-store/internal/repository"
	"mattress-store/internal/storage"

	"go.uber.org/zap"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails sends a structured error response with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: ErrorDetail{
			Code:      http.StatusText(statusCode),
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	json.NewEncoder(w).Encode(response)
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, validationErrors []ValidationError) {
	details := make(map[string]interface{})
	details["validation_errors"] = validationErrors

	RespondWithErrorDetails(w, http.StatusBadRequest, "validation failed", details)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// RespondWithServiceError maps an error returned by the catalog or admin
// services to its HTTP status
func RespondWithServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var (
		validationErr *domain.ValidationError
		fetchErr      *domain.FetchError
		operationErr  *domain.OperationError
	)

	switch {
	case errors.As(err, &validationErr):
		RespondWithValidationErrors(w, []ValidationError{*validationErr})
	case errors.Is(err, repository.ErrProductNotFound):
		RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrCategoryNotFound):
		RespondWithError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, storage.ErrObjectNotFound):
		RespondWithError(w, http.StatusNotFound, "object not found")
	case errors.Is(err, repository.ErrCategoryAlreadyExists):
		RespondWithError(w, http.StatusConflict, err.Error())
	case errors.As(err, &fetchErr):
		logger.Error("Catalog fetch failed", zap.String("op", fetchErr.Op), zap.Error(fetchErr.Err))
		RespondWithError(w, http.StatusServiceUnavailable, fetchErrorMessage(fetchErr))
	case errors.As(err, &operationErr):
		logger.Error("Admin operation failed", zap.String("op", operationErr.Op), zap.Error(operationErr.Err))
		RespondWithError(w, http.StatusBadGateway, operationErr.Message)
	default:
		logger.Error("Unhandled service error", zap.Error(err))
		RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func fetchErrorMessage(err *domain.FetchError) string {
	switch err.Op {
	case "load categories":
		return "could not load categories"
	case "load settings":
		return "could not load settings"
	default:
		return "could not load products"
	}
}
