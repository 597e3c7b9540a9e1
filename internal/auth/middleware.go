package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/response"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
)

// Context keys for authentication
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user
	UserContextKey contextKey = "user"
)

type tokenSource int

const (
	sourceNone tokenSource = iota
	sourceCookie
	sourceHeader
	sourceRawCookie
)

// AuthMiddleware resolves the caller from the session token
type AuthMiddleware struct {
	jwtService *JWTService
	users      repository.UserStore
	cookies    CookieConfig
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtService *JWTService, users repository.UserStore, cookies CookieConfig) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		users:      users,
		cookies:    cookies,
	}
}

// Authenticate rejects requests without a valid token for a usable account
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, source := extractToken(r)

		user, err := m.authenticate(r.Context(), token)
		if err != nil {
			zerolog.Ctx(r.Context()).Debug().Err(err).Msg("authentication failed")
			response.Error(w, r, err)
			return
		}

		// Browsers that sent only the header get the cookie for later requests
		if source == sourceHeader {
			m.cookies.SetTokenCookie(w, token)
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// OptionalAuth attaches the user when the request carries a usable token
// and otherwise serves the request anonymously
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ := extractToken(r)
		if token != "" {
			if user, err := m.authenticate(r.Context(), token); err == nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole returns middleware that admits only users holding role
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil {
				response.Error(w, r, apperr.Unauthenticated(""))
				return
			}
			if !user.HasRole(role) {
				response.Error(w, r, apperr.Forbidden("User role "+string(user.Role)+" is not authorized to access this route"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireCapability returns middleware that admits users whose role grants c
func RequireCapability(c models.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil {
				response.Error(w, r, apperr.Unauthenticated(""))
				return
			}
			if !user.Can(c) {
				response.Error(w, r, apperr.Forbidden(""))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.Unauthenticated("")
	}

	claims, err := m.jwtService.Validate(token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, apperr.TokenExpired()
		}
		return nil, apperr.InvalidToken()
	}

	user, err := m.users.GetByID(ctx, claims.SubjectID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.UserNotFound()
		}
		return nil, err
	}

	if err := CheckAccountUsable(user); err != nil {
		return nil, err
	}

	return user, nil
}

// CheckAccountUsable rejects deactivated and blocked accounts
func CheckAccountUsable(user *models.User) error {
	if !user.IsActive {
		return apperr.AccountDeactivated()
	}
	if user.IsBlocked {
		return apperr.AccountBlocked()
	}
	return nil
}

// extractToken looks in the token cookie, then the bearer header, then the
// raw Cookie header for values the cookie parser rejected.
func extractToken(r *http.Request) (string, tokenSource) {
	if c, err := r.Cookie(TokenCookieName); err == nil && c.Value != "" {
		return c.Value, sourceCookie
	}

	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token, sourceHeader
			}
		}
	}

	for _, line := range r.Header.Values("Cookie") {
		for _, pair := range strings.Split(line, ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if ok && name == TokenCookieName && value != "" {
				return strings.Trim(value, `"`), sourceRawCookie
			}
		}
	}

	return "", sourceNone
}

// WithUser attaches the authenticated user to a context
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// GetUser returns the authenticated user from context
func GetUser(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetUserID returns the authenticated user ID from context
func GetUserID(ctx context.Context) string {
	user := GetUser(ctx)
	if user == nil {
		return ""
	}
	return user.ID
}
