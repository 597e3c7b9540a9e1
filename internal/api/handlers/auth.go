package handlers

import (
	"net/http"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/request"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/response"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/auth"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	accounts *service.AccountService
	cookies  auth.CookieConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts *service.AccountService, cookies auth.CookieConfig) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		cookies:  cookies,
	}
}

// Signup handles user registration
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if err := request.Decode(r, &in); err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.accounts.Signup(r.Context(), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.Created(w, "Account created. Please verify your email with the OTP sent to you.", map[string]interface{}{
		"user": user,
	})
}

// VerifyOTP handles email verification
// POST /api/auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in service.VerifyOTPInput
	if err := request.Decode(r, &in); err != nil {
		response.Error(w, r, err)
		return
	}

	res, err := h.accounts.VerifyOTP(r.Context(), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	h.cookies.SetTokenCookie(w, res.Token)
	response.SuccessMessage(w, "Email verified", res)
}

// ResendOTP sends a fresh verification code
// POST /api/auth/resend-otp
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var in service.EmailInput
	if err := request.Decode(r, &in); err != nil {
		response.Error(w, r, err)
		return
	}

	if err := h.accounts.ResendOTP(r.Context(), in); err != nil {
		response.Error(w, r, err)
		return
	}

	response.SuccessMessage(w, "A new OTP has been sent to your email", nil)
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := request.Decode(r, &in); err != nil {
		response.Error(w, r, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	h.cookies.SetTokenCookie(w, res.Token)
	response.SuccessMessage(w, "Login successful", res)
}

// Logout clears the token cookie
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearTokenCookie(w)
	response.SuccessMessage(w, "Logged out", nil)
}
