package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Lllllllleong/scanshare/internal/models"
	"github.com/Lllllllleong/scanshare/internal/validation"
	"google.golang.org/api/idtoken"
)

// IdentityProvider is the external identity service.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, username, password string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignInWithGoogle(ctx context.Context, googleIDToken string) (*models.Session, error)
	Lookup(ctx context.Context, idToken string) (*models.Session, error)
}

// GoogleTokenValidator verifies a Google ID token for the given audience.
type GoogleTokenValidator func(ctx context.Context, token, audience string) error

// ValidateGoogleIDToken checks signature, expiry and audience against Google's public keys.
func ValidateGoogleIDToken(ctx context.Context, token, audience string) error {
	_, err := idtoken.Validate(ctx, token, audience)
	return err
}

// SessionHolder keeps the signed-in session of one client. It is passed to every component
// that needs the current user instead of living in a global.
type SessionHolder struct {
	mu      sync.RWMutex
	session *models.Session
}

func (h *SessionHolder) Set(s *models.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = s
}

func (h *SessionHolder) Get() *models.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session
}

func (h *SessionHolder) Clear() { h.Set(nil) }

// AuthConfig holds configuration for the auth service.
type AuthConfig struct {
	// GoogleClientID enables local validation of Google ID tokens when set.
	GoogleClientID string
}

// AuthService is the credential gateway used by the client functions.
type AuthService struct {
	identity      IdentityProvider
	sessions      *SessionHolder
	validateToken GoogleTokenValidator
	config        AuthConfig
	now           func() time.Time
}

// NewAuthService wires the gateway to an identity provider and a session holder.
func NewAuthService(identity IdentityProvider, sessions *SessionHolder, config AuthConfig) *AuthService {
	return &AuthService{
		identity:      identity,
		sessions:      sessions,
		validateToken: ValidateGoogleIDToken,
		config:        config,
		now:           time.Now,
	}
}

// SignUp validates the registration form and creates the account.
func (a *AuthService) SignUp(ctx context.Context, email, username, password, confirmation string) (*models.Session, error) {
	if err := validation.SignUp(email, username, password, confirmation); err != nil {
		return nil, err
	}
	s, err := a.identity.SignUp(ctx, email, username, password)
	if err != nil {
		return nil, fmt.Errorf("sign up failed: %w", err)
	}
	a.sessions.Set(s)
	slog.Info("User signed up.", "userId", s.UserID)
	return s, nil
}

// SignIn authenticates with email and password.
func (a *AuthService) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if err := validation.Email(email); err != nil {
		return nil, err
	}
	if err := validation.Password(password); err != nil {
		return nil, err
	}
	s, err := a.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in failed: %w", err)
	}
	a.sessions.Set(s)
	slog.Info("User signed in.", "userId", s.UserID, "provider", "password")
	return s, nil
}

// SignInWithGoogle authenticates with a Google ID token.
func (a *AuthService) SignInWithGoogle(ctx context.Context, googleIDToken string) (*models.Session, error) {
	if googleIDToken == "" {
		return nil, &models.ValidationError{Field: "idToken", Message: "must not be empty"}
	}
	if a.config.GoogleClientID != "" {
		if err := a.validateToken(ctx, googleIDToken, a.config.GoogleClientID); err != nil {
			return nil, &models.ValidationError{Field: "idToken", Message: err.Error()}
		}
	}
	s, err := a.identity.SignInWithGoogle(ctx, googleIDToken)
	if err != nil {
		return nil, fmt.Errorf("google sign in failed: %w", err)
	}
	a.sessions.Set(s)
	slog.Info("User signed in.", "userId", s.UserID, "provider", "google.com")
	return s, nil
}

// CurrentSession returns the held session, or nil when nobody is signed in or the token expired.
func (a *AuthService) CurrentSession() *models.Session {
	s := a.sessions.Get()
	if s == nil || s.Expired(a.now()) {
		return nil
	}
	return s
}

// Authenticate resolves a bearer ID token into its user.
func (a *AuthService) Authenticate(ctx context.Context, idToken string) (*models.Session, error) {
	if idToken == "" {
		return nil, models.ErrNotAuthenticated
	}
	s, err := a.identity.Lookup(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrNotAuthenticated, err)
	}
	if s.Expired(a.now()) {
		return nil, models.ErrNotAuthenticated
	}
	return s, nil
}

// SignOut forgets the held session.
func (a *AuthService) SignOut() {
	if s := a.sessions.Get(); s != nil {
		slog.Info("User signed out.", "userId", s.UserID)
	}
	a.sessions.Clear()
}
