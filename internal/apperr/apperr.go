// Package apperr defines the typed errors that cross the service/HTTP
// boundary. Each carries the status and machine code sent to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidPlan         = "INVALID_PLAN"
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeAccountDeactivated  = "ACCOUNT_DEACTIVATED"
	CodeAccountBlocked      = "ACCOUNT_BLOCKED"
	CodeAccountUnverified   = "ACCOUNT_UNVERIFIED"
	CodeForbidden           = "FORBIDDEN"
	CodePlanRequired        = "PLAN_REQUIRED"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeRateLimited         = "RATE_LIMITED"
	CodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUpstream            = "UPSTREAM_ERROR"
	CodeUnavailable         = "SERVICE_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

// Error is an error with an HTTP status and client facing message
type Error struct {
	Status   int
	Code     string
	Message  string
	Details  []string
	Redirect string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches an underlying cause
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// As extracts an *Error from err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code
func HasCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

func newError(status int, code, msg string) *Error {
	return &Error{Status: status, Code: code, Message: msg}
}

// Validation returns a 400 with optional field messages
func Validation(msg string, details ...string) *Error {
	e := newError(http.StatusBadRequest, CodeValidation, msg)
	e.Details = details
	return e
}

func InvalidPlan(name string) *Error {
	return newError(http.StatusBadRequest, CodeInvalidPlan, fmt.Sprintf("Invalid plan: %q", name))
}

func Unauthenticated(msg string) *Error {
	if msg == "" {
		msg = "Not authorized, no token"
	}
	return newError(http.StatusUnauthorized, CodeUnauthenticated, msg)
}

func InvalidToken() *Error {
	return newError(http.StatusUnauthorized, CodeInvalidToken, "Not authorized, token failed")
}

func TokenExpired() *Error {
	return newError(http.StatusUnauthorized, CodeTokenExpired, "Token has expired")
}

func UserNotFound() *Error {
	return newError(http.StatusUnauthorized, CodeUserNotFound, "User not found")
}

func AccountDeactivated() *Error {
	return newError(http.StatusUnauthorized, CodeAccountDeactivated, "Account has been deactivated")
}

func AccountBlocked() *Error {
	return newError(http.StatusForbidden, CodeAccountBlocked, "Account has been blocked")
}

func AccountUnverified() *Error {
	return newError(http.StatusForbidden, CodeAccountUnverified, "Please verify your email before logging in")
}

func Forbidden(msg string) *Error {
	if msg == "" {
		msg = "You do not have permission to perform this action"
	}
	return newError(http.StatusForbidden, CodeForbidden, msg)
}

func PlanRequired() *Error {
	e := newError(http.StatusForbidden, CodePlanRequired, "Please select a plan first")
	e.Redirect = "/pricing"
	return e
}

func InsufficientCredits() *Error {
	e := newError(http.StatusForbidden, CodeInsufficientCredits, "Insufficient credits. Please upgrade your plan.")
	e.Redirect = "/pricing"
	return e
}

func NotFound(what string) *Error {
	return newError(http.StatusNotFound, CodeNotFound, what+" not found")
}

func Conflict(msg string) *Error {
	return newError(http.StatusConflict, CodeConflict, msg)
}

func RateLimited(msg string) *Error {
	if msg == "" {
		msg = "Too many requests. Please try again later."
	}
	return newError(http.StatusTooManyRequests, CodeRateLimited, msg)
}

func UpstreamTimeout() *Error {
	return newError(http.StatusGatewayTimeout, CodeUpstreamTimeout, "Processing took too long. Please try again.")
}

func UpstreamUnavailable() *Error {
	return newError(http.StatusBadGateway, CodeUpstreamUnavailable, "Generation service is unavailable. Please try again later.")
}

// Upstream passes through an upstream status; non-error statuses become 500
func Upstream(status int, msg string) *Error {
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	if msg == "" {
		msg = "Generation failed"
	}
	return newError(status, CodeUpstream, msg)
}

func Unavailable(msg string) *Error {
	return newError(http.StatusServiceUnavailable, CodeUnavailable, msg)
}

func Internal(err error) *Error {
	return newError(http.StatusInternalServerError, CodeInternal, "Something went wrong").Wrap(err)
}
