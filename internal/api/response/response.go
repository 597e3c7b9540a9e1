package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
)

// ExposeInternalErrors includes the raw error text in 500 responses.
// Set once at startup, in development only.
var ExposeInternalErrors bool

// APIResponse is the standard API response wrapper
type APIResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success  bool     `json:"success"`
	Error    string   `json:"error"`
	Message  string   `json:"message"`
	Errors   []string `json:"errors,omitempty"`
	Redirect string   `json:"redirect,omitempty"`
}

// Pagination contains pagination information
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Log error but don't try to write again
			return
		}
	}
}

// Success writes a success response with data
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// SuccessMessage writes a success response with a message and optional data
func SuccessMessage(w http.ResponseWriter, message string, data interface{}) {
	JSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// SuccessWithPagination writes a success response with pagination
func SuccessWithPagination(w http.ResponseWriter, data interface{}, pagination *Pagination) {
	JSON(w, http.StatusOK, APIResponse{
		Success:    true,
		Data:       data,
		Pagination: pagination,
	})
}

// Created writes a 201 created response
func Created(w http.ResponseWriter, message string, data interface{}) {
	JSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error classifies err and writes the matching error response.
// Unclassified errors are logged and reported as 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	e := Classify(err)

	if e.Status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}

	write(w, e)
}

// Classify maps any error onto the client facing taxonomy
func Classify(err error) *apperr.Error {
	if e, ok := apperr.As(err); ok {
		return e
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperr.Validation("Validation failed", validationMessages(verrs)...)
	}

	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict("Duplicate field value entered")
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict("Resource was modified by another request")
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("Resource")
	case errors.Is(err, repository.ErrInsufficientCredits):
		return apperr.InsufficientCredits()
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.TokenExpired()
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperr.InvalidToken()
	}

	internal := apperr.Internal(err)
	if ExposeInternalErrors && err != nil {
		internal.Message = err.Error()
	}
	return internal
}

func write(w http.ResponseWriter, e *apperr.Error) {
	JSON(w, e.Status, ErrorResponse{
		Success:  false,
		Error:    e.Code,
		Message:  e.Message,
		Errors:   e.Details,
		Redirect: e.Redirect,
	})
}

// BadRequest writes a 400 bad request response
func BadRequest(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Bad request"
	}
	write(w, apperr.Validation(message))
}

// TooManyRequests writes a 429 rate limit exceeded response
func TooManyRequests(w http.ResponseWriter, message string) {
	write(w, apperr.RateLimited(message))
}

// NewPagination creates a new pagination struct
func NewPagination(total, limit, offset int) *Pagination {
	return &Pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}
