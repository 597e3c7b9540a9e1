package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/auth"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

func signup(t *testing.T, env *testEnv, email string) *models.User {
	t.Helper()
	user, err := env.accounts.Signup(context.Background(), SignupInput{
		Name:     "Asha",
		Email:    email,
		Password: "s3cure-pass",
	})
	require.NoError(t, err)
	return user
}

func TestSignup_CreatesFreeUnverifiedAccount(t *testing.T) {
	env := newTestEnv(t)

	user := signup(t, env, "  Asha@Example.com ")

	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, models.PlanFree, user.Plan)
	assert.Equal(t, 3, user.Credits.Balance)
	assert.Equal(t, 3, user.Credits.TotalPurchased)
	assert.False(t, user.IsVerified)
	assert.True(t, user.IsActive)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Len(t, env.lastOTP(t), 6)
}

func TestSignup_Rejections(t *testing.T) {
	env := newTestEnv(t)
	signup(t, env, "taken@example.com")

	_, err := env.accounts.Signup(context.Background(), SignupInput{Name: "B", Email: "TAKEN@example.com", Password: "s3cure-pass"})
	requireAppError(t, err, http.StatusConflict, apperr.CodeConflict)

	_, err = env.accounts.Signup(context.Background(), SignupInput{Name: "B", Email: "weak@example.com", Password: "password"})
	e := requireAppError(t, err, http.StatusBadRequest, apperr.CodeValidation)
	assert.NotEmpty(t, e.Details)
}

func TestVerifyOTPAndLogin(t *testing.T) {
	env := newTestEnv(t)
	signup(t, env, "asha@example.com")

	_, err := env.accounts.Login(context.Background(), LoginInput{Email: "asha@example.com", Password: "s3cure-pass"})
	requireAppError(t, err, http.StatusForbidden, apperr.CodeAccountUnverified)

	_, err = env.accounts.VerifyOTP(context.Background(), VerifyOTPInput{Email: "asha@example.com", OTP: "000000x"})
	require.Error(t, err)

	res, err := env.accounts.VerifyOTP(context.Background(), VerifyOTPInput{Email: "asha@example.com", OTP: env.lastOTP(t)})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.True(t, res.User.IsVerified)

	res, err = env.accounts.Login(context.Background(), LoginInput{Email: "ASHA@example.com", Password: "s3cure-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	require.NotNil(t, res.User.LastLoginAt)
	assert.Equal(t, fixedNow, *res.User.LastLoginAt)
	assert.Equal(t, 3, res.User.Credits.Balance)

	_, err = env.accounts.Login(context.Background(), LoginInput{Email: "asha@example.com", Password: "wrong-pass1"})
	requireAppError(t, err, http.StatusUnauthorized, apperr.CodeUnauthenticated)

	_, err = env.accounts.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "s3cure-pass"})
	requireAppError(t, err, http.StatusUnauthorized, apperr.CodeUnauthenticated)
}

func TestResendOTP_ReplacesCode(t *testing.T) {
	env := newTestEnv(t)
	signup(t, env, "asha@example.com")

	require.NoError(t, env.accounts.ResendOTP(context.Background(), EmailInput{Email: "asha@example.com"}))
	_, err := env.accounts.VerifyOTP(context.Background(), VerifyOTPInput{Email: "asha@example.com", OTP: env.lastOTP(t)})
	require.NoError(t, err)

	err = env.accounts.ResendOTP(context.Background(), EmailInput{Email: "asha@example.com"})
	requireAppError(t, err, http.StatusBadRequest, apperr.CodeValidation)

	err = env.accounts.ResendOTP(context.Background(), EmailInput{Email: "ghost@example.com"})
	requireAppError(t, err, http.StatusNotFound, apperr.CodeNotFound)
}

func seedPasswordUser(t *testing.T, env *testEnv, email string, mutate func(*models.User)) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("s3cure-pass")
	require.NoError(t, err)

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsVerified:   true,
		IsActive:     true,
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, env.store.Users().Create(context.Background(), user))
	return user
}

func TestLogin_AccountState(t *testing.T) {
	env := newTestEnv(t)
	seedPasswordUser(t, env, "off@example.com", func(u *models.User) { u.IsActive = false })
	seedPasswordUser(t, env, "blocked@example.com", func(u *models.User) { u.IsBlocked = true })

	_, err := env.accounts.Login(context.Background(), LoginInput{Email: "off@example.com", Password: "s3cure-pass"})
	requireAppError(t, err, http.StatusUnauthorized, apperr.CodeAccountDeactivated)

	_, err = env.accounts.Login(context.Background(), LoginInput{Email: "blocked@example.com", Password: "s3cure-pass"})
	requireAppError(t, err, http.StatusForbidden, apperr.CodeAccountBlocked)
}

func TestLogin_BackfillsLegacyAccountOnce(t *testing.T) {
	env := newTestEnv(t)
	legacy := seedPasswordUser(t, env, "legacy@example.com", nil)

	res, err := env.accounts.Login(context.Background(), LoginInput{Email: "legacy@example.com", Password: "s3cure-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, res.User.Plan)
	assert.Equal(t, 3, res.User.Credits.Balance)

	// spend everything, then log in again: no second grant
	for i := 0; i < 3; i++ {
		_, err := env.generation.Generate(context.Background(), legacy.ID, "image-edit", imageEdit)
		require.NoError(t, err)
	}
	res, err = env.accounts.Login(context.Background(), LoginInput{Email: "legacy@example.com", Password: "s3cure-pass"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.User.Credits.Balance)
	assert.Equal(t, 3, res.User.Credits.TotalPurchased)
	assert.Len(t, env.reload(t, legacy.ID).GeneratedImages, 3)
}

func TestGoogleLogin(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.accounts.GoogleLogin(context.Background(), &auth.GoogleProfile{
		Subject: "g-123", Email: "New@Gmail.com", EmailVerified: true, Name: "New Person",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@gmail.com", res.User.Email)
	assert.True(t, res.User.IsVerified)
	assert.Equal(t, 3, res.User.Credits.Balance)

	again, err := env.accounts.GoogleLogin(context.Background(), &auth.GoogleProfile{
		Subject: "g-123", Email: "new@gmail.com", EmailVerified: true,
	})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, again.User.ID)
	assert.Equal(t, 3, again.User.Credits.TotalPurchased)

	seedPasswordUser(t, env, "pw@example.com", func(u *models.User) { u.IsVerified = false })
	linked, err := env.accounts.GoogleLogin(context.Background(), &auth.GoogleProfile{Subject: "g-9", Email: "pw@example.com"})
	require.NoError(t, err)
	assert.True(t, linked.User.IsVerified)
	assert.Equal(t, "g-9", env.reload(t, linked.User.ID).GoogleID)
}

func TestSelfService(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "me@example.com", models.PlanPro, models.Credits{Balance: 10, TotalPurchased: 10})

	profile, err := env.accounts.Profile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", profile.Email)

	updated, err := env.accounts.AcceptTerms(context.Background(), user.ID, TermsInput{Version: "v2"})
	require.NoError(t, err)
	assert.True(t, updated.TermsAccepted.Status)
	assert.Equal(t, "v2", updated.TermsAccepted.Version)

	_, err = env.generation.Generate(context.Background(), user.ID, "image-edit", imageEdit)
	require.NoError(t, err)
	_, err = env.generation.Generate(context.Background(), user.ID, "text-to-video", GenerateInput{Prompt: "sea"})
	require.NoError(t, err)

	images, err := env.accounts.History(context.Background(), user.ID, models.MediaImage)
	require.NoError(t, err)
	assert.Len(t, images, 1)
	videos, err := env.accounts.History(context.Background(), user.ID, models.MediaVideo)
	require.NoError(t, err)
	assert.Len(t, videos, 1)

	require.NoError(t, env.accounts.Deactivate(context.Background(), user.ID))
	assert.False(t, env.reload(t, user.ID).IsActive)

	_, err = env.accounts.Profile(context.Background(), "missing")
	requireAppError(t, err, http.StatusUnauthorized, apperr.CodeUserNotFound)
}
