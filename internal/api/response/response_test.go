package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"typed error passes through", apperr.PlanRequired(), http.StatusForbidden, apperr.CodePlanRequired},
		{"wrapped typed error", fmt.Errorf("select: %w", apperr.InvalidPlan("gold")), http.StatusBadRequest, apperr.CodeInvalidPlan},
		{"duplicate", fmt.Errorf("create: %w", repository.ErrDuplicate), http.StatusConflict, apperr.CodeConflict},
		{"conflict", repository.ErrConflict, http.StatusConflict, apperr.CodeConflict},
		{"not found", repository.ErrNotFound, http.StatusNotFound, apperr.CodeNotFound},
		{"insufficient credits", repository.ErrInsufficientCredits, http.StatusForbidden, apperr.CodeInsufficientCredits},
		{"jwt expired", jwt.ErrTokenExpired, http.StatusUnauthorized, apperr.CodeTokenExpired},
		{"jwt malformed", jwt.ErrTokenMalformed, http.StatusUnauthorized, apperr.CodeInvalidToken},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Classify(tt.err)
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestClassify_ValidatorErrors(t *testing.T) {
	type body struct {
		Email string `validate:"required,email"`
		Name  string `validate:"required"`
	}
	err := validator.New().Struct(body{Email: "nope"})
	require.Error(t, err)

	e := Classify(err)
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.ElementsMatch(t, []string{
		"Email must be a valid email address",
		"Name is required",
	}, e.Details)
}

func TestClassify_InternalMessage(t *testing.T) {
	ExposeInternalErrors = false
	assert.Equal(t, "Something went wrong", Classify(errors.New("db exploded")).Message)

	ExposeInternalErrors = true
	defer func() { ExposeInternalErrors = false }()
	assert.Equal(t, "db exploded", Classify(errors.New("db exploded")).Message)
}

func TestError_WritesBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/image-edit", nil)

	Error(rec, req, apperr.InsufficientCredits())

	require.Equal(t, http.StatusForbidden, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, apperr.CodeInsufficientCredits, body.Error)
	assert.Equal(t, "/pricing", body.Redirect)
}

func TestSuccessWithPagination(t *testing.T) {
	rec := httptest.NewRecorder()
	SuccessWithPagination(rec, []int{1, 2}, NewPagination(5, 2, 0))

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.NotNil(t, body.Pagination)
	assert.True(t, body.Pagination.HasMore)
}
