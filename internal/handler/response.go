package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Paypay0in/my-trippie/internal/model"
	"github.com/Paypay0in/my-trippie/internal/service"
)

// HTTP status codes as constants for consistency
const (
	StatusOK                  = http.StatusOK
	StatusCreated             = http.StatusCreated
	StatusNoContent           = http.StatusNoContent
	StatusBadRequest          = http.StatusBadRequest
	StatusNotFound            = http.StatusNotFound
	StatusConflict            = http.StatusConflict
	StatusUnprocessableEntity = http.StatusUnprocessableEntity
	StatusInternalServerError = http.StatusInternalServerError
)

// Common error messages
const (
	ErrInvalidInput     = "Invalid input format"
	ErrResourceNotFound = "Resource not found"
	ErrInternalServer   = "Internal server error"
	ErrFileUpload       = "Failed to upload file"
	ErrDataExtraction   = "Unable to extract expense data"
	ErrTaxRuleLookup    = "Unable to look up tax refund rules"
	ErrConfirmRequired  = "Draft has unarchived expenses; confirmation required"
)

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, message string, details ...model.ErrorDetail) {
	response := model.ErrorResponse{
		Status:  http.StatusText(statusCode),
		Message: message,
		Details: details,
	}
	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...model.ErrorDetail) {
	respondWithError(c, StatusBadRequest, message, details...)
}

// respondNotFound sends a 404 Not Found response
func respondNotFound(c *gin.Context, message string) {
	respondWithError(c, StatusNotFound, message)
}

// respondConflict sends a 409 Conflict response
func respondConflict(c *gin.Context, message string, details ...model.ErrorDetail) {
	respondWithError(c, StatusConflict, message, details...)
}

// respondUnprocessableEntity sends a 422 Unprocessable Entity response
func respondUnprocessableEntity(c *gin.Context, message string) {
	respondWithError(c, StatusUnprocessableEntity, message)
}

// respondInternalServerError sends a 500 Internal Server Error response
func respondInternalServerError(c *gin.Context, message string) {
	respondWithError(c, StatusInternalServerError, message)
}

// respondSuccess sends a standardized success response with data
func respondSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// respondCreated sends a 201 Created response with data
func respondCreated(c *gin.Context, data interface{}) {
	respondSuccess(c, StatusCreated, data)
}

// respondOK sends a 200 OK response with data
func respondOK(c *gin.Context, data interface{}) {
	respondSuccess(c, StatusOK, data)
}

// respondNoContent sends a 204 No Content response
func respondNoContent(c *gin.Context) {
	c.Status(StatusNoContent)
}

// respondServiceError maps engine errors onto the HTTP taxonomy: guard
// rejections are a confirm/cancel decision (409), lookups that found
// nothing are 404, extraction misses are 422, the rest is 500.
func respondServiceError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrUnsavedDraft):
		respondConflict(c, ErrConfirmRequired, newErrorDetail("confirmed", "set confirmed=true to discard the draft"))
	case errors.Is(err, service.ErrTripNotFound), errors.Is(err, service.ErrExpenseNotFound):
		respondNotFound(c, ErrResourceNotFound)
	case errors.Is(err, service.ErrExtractionFailed):
		respondUnprocessableEntity(c, ErrDataExtraction)
	case errors.Is(err, service.ErrTaxRuleLookup):
		respondUnprocessableEntity(c, ErrTaxRuleLookup)
	default:
		logError(c, op, err, nil)
		respondInternalServerError(c, ErrInternalServer)
	}
}

// newErrorDetail creates a new error detail
func newErrorDetail(field, message string) model.ErrorDetail {
	return model.ErrorDetail{
		Field:   field,
		Message: message,
	}
}

// logError emits a structured handler-level error log entry.
func logError(c *gin.Context, op string, err error, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
		"level":     "error",
		"op":        op,
		"method":    c.Request.Method,
		"path":      c.Request.URL.Path,
		"error":     err.Error(),
	}
	for k, v := range fields {
		entry[k] = v
	}
	raw, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		fmt.Printf(`{"level":"error","op":%q,"error":%q}%s`, op, err.Error(), "\n")
		return
	}
	fmt.Println(string(raw))
}
