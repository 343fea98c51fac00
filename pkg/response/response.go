package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/dispatch-backend-go/internal/apperr"
)

// Response represents a standard API response
type Response struct {
	Status    string            `json:"status"`
	Code      apperr.Code       `json:"code,omitempty"`
	Message   string            `json:"message"`
	Data      interface{}       `json:"data,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func write(c *gin.Context, httpStatus int, resp Response) {
	resp.Timestamp = time.Now().UTC()
	c.JSON(httpStatus, resp)
}

// Success sends a 200 response
func Success(c *gin.Context, message string, data interface{}) {
	write(c, http.StatusOK, Response{Status: StatusSuccess, Message: message, Data: data})
}

// Created sends a 201 response
func Created(c *gin.Context, message string, data interface{}) {
	write(c, http.StatusCreated, Response{Status: StatusSuccess, Message: message, Data: data})
}

// Error sends an error response
func Error(c *gin.Context, httpStatus int, code apperr.Code, message string) {
	write(c, httpStatus, Response{Status: StatusError, Code: code, Message: message})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *gin.Context, err *apperr.Error) {
	write(c, http.StatusBadRequest, Response{
		Status:  StatusError,
		Code:    err.Code,
		Message: err.Message,
		Errors:  err.Fields,
	})
}

// InternalError sends a 500 internal server error response without details
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// TooManyRequests sends a 429 response
func TooManyRequests(c *gin.Context) {
	Error(c, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded. Please try again later.")
}

// FromError renders err: client errors as 400, everything else as 500. It
// reports whether err was a client error.
func FromError(c *gin.Context, err error) bool {
	if appErr, ok := apperr.As(err); ok {
		BadRequest(c, appErr)
		return true
	}
	InternalError(c)
	return false
}
