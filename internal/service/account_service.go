package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/auth"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/cache"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/events"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/ledger"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/metrics"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
)

// SignupInput is the body of POST /api/auth/signup
type SignupInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyOTPInput is the body of POST /api/auth/verify-otp
type VerifyOTPInput struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// EmailInput carries a single email address
type EmailInput struct {
	Email string `json:"email" validate:"required,email"`
}

// LoginInput is the body of POST /api/auth/login
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TermsInput is the body of POST /api/users/me/terms
type TermsInput struct {
	Version string `json:"version" validate:"required,max=32"`
}

// AuthResult is returned by every flow that signs a user in
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expiresIn"`
	User      *models.User `json:"user"`
}

// AccountService handles signup, verification, login and self-service
type AccountService struct {
	users    repository.UserStore
	payments repository.PaymentStore
	otps     cache.OTPStore
	jwt      *auth.JWTService
	events   events.Publisher
	metrics  *metrics.Metrics
	otpTTL   time.Duration
	now      Clock
}

// NewAccountService creates a new account service
func NewAccountService(
	store repository.Store,
	otps cache.OTPStore,
	jwtService *auth.JWTService,
	publisher events.Publisher,
	m *metrics.Metrics,
	otpTTL time.Duration,
) *AccountService {
	return &AccountService{
		users:    store.Users(),
		payments: store.Payments(),
		otps:     otps,
		jwt:      jwtService,
		events:   publisher,
		metrics:  m,
		otpTTL:   otpTTL,
		now:      systemClock,
	}
}

// Signup creates an unverified account on the free plan and sends an OTP
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if err := auth.ValidatePasswordStrength(in.Password); err != nil {
		return nil, apperr.Validation("Validation failed", err.Error())
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		Email:           models.NormalizeEmail(in.Email),
		Name:            strings.TrimSpace(in.Name),
		PasswordHash:    hash,
		Role:            models.RoleUser,
		Plan:            models.PlanFree,
		PlanActivatedAt: &now,
		Credits:         ledger.NewAccountCredits(),
		GeneratedImages: []models.GenerationRecord{},
		GeneratedVideos: []models.GenerationRecord{},
		IsActive:        true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists with this email")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.metrics.RecordSignup()

	if err := s.sendOTP(ctx, user); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("user_id", user.ID).Msg("account created")
	return PublicUser(user), nil
}

// VerifyOTP marks the account verified and signs the user in
func (s *AccountService) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*AuthResult, error) {
	user, err := s.userByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, apperr.Validation("Account is already verified")
	}

	if err := s.otps.Verify(ctx, user.Email, in.OTP); err != nil {
		switch {
		case errors.Is(err, cache.ErrOTPNotFound):
			return nil, apperr.Validation("OTP has expired. Please request a new one")
		case errors.Is(err, cache.ErrOTPMismatch):
			return nil, apperr.Validation("Invalid OTP")
		default:
			return nil, fmt.Errorf("failed to verify otp: %w", err)
		}
	}

	now := s.now()
	user, err = modifyUser(ctx, s.users, user.ID, func(u *models.User) error {
		u.IsVerified = true
		u.LastLoginAt = &now
		ledger.GrantFreeOnFirstLogin(u, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// ResendOTP replaces the pending code of an unverified account
func (s *AccountService) ResendOTP(ctx context.Context, in EmailInput) error {
	user, err := s.userByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return apperr.Validation("Account is already verified")
	}
	return s.sendOTP(ctx, user)
}

// Login checks credentials, initializes legacy accounts and issues a token
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	invalid := apperr.Unauthenticated("Invalid email or password")

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !auth.CheckPassword(in.Password, user.PasswordHash) {
		return nil, invalid
	}
	if err := auth.CheckAccountUsable(user); err != nil {
		return nil, err
	}
	if !user.IsVerified {
		return nil, apperr.AccountUnverified()
	}

	now := s.now()
	granted := false
	user, err = modifyUser(ctx, s.users, user.ID, func(u *models.User) error {
		granted = ledger.GrantFreeOnFirstLogin(u, now)
		u.LastLoginAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if granted {
		zerolog.Ctx(ctx).Info().Str("user_id", user.ID).Msg("initialized plan and credits on login")
	}
	return s.issue(user)
}

// GoogleLogin signs in a Google account, creating it on first use
func (s *AccountService) GoogleLogin(ctx context.Context, profile *auth.GoogleProfile) (*AuthResult, error) {
	if profile == nil || profile.Email == "" {
		return nil, apperr.Unauthenticated("Google account has no email")
	}

	now := s.now()
	user, err := s.users.GetByEmail(ctx, profile.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user = &models.User{
			Email:           models.NormalizeEmail(profile.Email),
			Name:            profile.Name,
			GoogleID:        profile.Subject,
			Role:            models.RoleUser,
			Plan:            models.PlanFree,
			PlanActivatedAt: &now,
			Credits:         ledger.NewAccountCredits(),
			GeneratedImages: []models.GenerationRecord{},
			GeneratedVideos: []models.GenerationRecord{},
			IsVerified:      true,
			IsActive:        true,
			LastLoginAt:     &now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.metrics.RecordSignup()
		zerolog.Ctx(ctx).Info().Str("user_id", user.ID).Msg("account created via google")
		return s.issue(user)

	case err != nil:
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	user, err = modifyUser(ctx, s.users, user.ID, func(u *models.User) error {
		if err := auth.CheckAccountUsable(u); err != nil {
			return err
		}
		if u.GoogleID == "" {
			u.GoogleID = profile.Subject
		}
		if u.Name == "" {
			u.Name = profile.Name
		}
		u.IsVerified = true
		u.LastLoginAt = &now
		ledger.GrantFreeOnFirstLogin(u, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Profile returns the caller's account
func (s *AccountService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	return PublicUser(user), nil
}

// History returns one generation history, newest first
func (s *AccountService) History(ctx context.Context, userID string, kind models.MediaKind) ([]models.GenerationRecord, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	list := append([]models.GenerationRecord{}, user.History(kind)...)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// AcceptTerms records acceptance of a terms version
func (s *AccountService) AcceptTerms(ctx context.Context, userID string, in TermsInput) (*models.User, error) {
	now := s.now()
	user, err := modifyUser(ctx, s.users, userID, func(u *models.User) error {
		u.TermsAccepted = models.TermsAcceptance{
			Status:     true,
			AcceptedAt: &now,
			Version:    strings.TrimSpace(in.Version),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return PublicUser(user), nil
}

// Deactivate soft deletes the caller's account
func (s *AccountService) Deactivate(ctx context.Context, userID string) error {
	user, err := modifyUser(ctx, s.users, userID, func(u *models.User) error {
		u.IsActive = false
		return nil
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("user_id", user.ID).Msg("account deactivated")
	return nil
}

// Payments lists the caller's payments
func (s *AccountService) Payments(ctx context.Context, userID string) ([]*models.Payment, error) {
	list, err := s.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return list, nil
}

// TokenTTL is how long issued tokens live
func (s *AccountService) TokenTTL() time.Duration {
	return s.jwt.GetExpiration()
}

func (s *AccountService) userByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *AccountService) sendOTP(ctx context.Context, user *models.User) error {
	code, err := cache.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.otps.Save(ctx, user.Email, code, s.otpTTL); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}

	publish(ctx, s.events, events.TypeOTPRequested, user.ID, events.OTPRequested{
		Email: user.Email,
		Name:  user.Name,
		OTP:   code,
	})
	return nil
}

func (s *AccountService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.jwt.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{
		Token:     token,
		ExpiresIn: int64(s.jwt.GetExpiration().Seconds()),
		User:      PublicUser(user),
	}, nil
}
