package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lllllllleong/scanshare/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockIdentity struct {
	mock.Mock
}

func (m *mockIdentity) SignUp(ctx context.Context, email, username, password string) (*models.Session, error) {
	args := m.Called(ctx, email, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockIdentity) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockIdentity) SignInWithGoogle(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockIdentity) Lookup(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func TestAuthService_SignUp_ValidatesBeforeNetwork(t *testing.T) {
	identity := new(mockIdentity)
	svc := NewAuthService(identity, &SessionHolder{}, AuthConfig{})

	_, err := svc.SignUp(context.Background(), "jane@example.com", "jane", "secret1", "secret2")
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	identity.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_SignUp_StoresSession(t *testing.T) {
	identity := new(mockIdentity)
	holder := &SessionHolder{}
	svc := NewAuthService(identity, holder, AuthConfig{})
	session := &models.Session{UserID: "uid-1", Username: "jane", ExpiresAt: time.Now().Add(time.Hour)}
	identity.On("SignUp", mock.Anything, "jane@example.com", "jane", "secret1").Return(session, nil)

	got, err := svc.SignUp(context.Background(), "jane@example.com", "jane", "secret1", "secret1")
	require.NoError(t, err)
	assert.Equal(t, session, got)
	assert.Equal(t, session, svc.CurrentSession())
	identity.AssertExpectations(t)
}

func TestAuthService_SignIn_PropagatesServiceError(t *testing.T) {
	identity := new(mockIdentity)
	holder := &SessionHolder{}
	svc := NewAuthService(identity, holder, AuthConfig{})
	identity.On("SignIn", mock.Anything, "jane@example.com", "secret1").
		Return(nil, &models.ServiceError{Service: "identity", StatusCode: 400, Message: "INVALID_LOGIN_CREDENTIALS"})

	_, err := svc.SignIn(context.Background(), "jane@example.com", "secret1")
	var se *models.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Nil(t, holder.Get())
}

func TestAuthService_SignIn_RejectsBadEmail(t *testing.T) {
	identity := new(mockIdentity)
	svc := NewAuthService(identity, &SessionHolder{}, AuthConfig{})

	_, err := svc.SignIn(context.Background(), "not-an-email", "secret1")
	assert.True(t, models.IsValidation(err))
	identity.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_SignInWithGoogle_ValidatesWhenClientIDSet(t *testing.T) {
	identity := new(mockIdentity)
	svc := NewAuthService(identity, &SessionHolder{}, AuthConfig{GoogleClientID: "client-id"})
	var gotAudience string
	svc.validateToken = func(ctx context.Context, token, audience string) error {
		gotAudience = audience
		return errors.New("token expired")
	}

	_, err := svc.SignInWithGoogle(context.Background(), "google-token")
	assert.True(t, models.IsValidation(err))
	assert.Equal(t, "client-id", gotAudience)
	identity.AssertNotCalled(t, "SignInWithGoogle", mock.Anything, mock.Anything)
}

func TestAuthService_SignInWithGoogle_SkipsLocalValidationWithoutClientID(t *testing.T) {
	identity := new(mockIdentity)
	svc := NewAuthService(identity, &SessionHolder{}, AuthConfig{})
	svc.validateToken = func(ctx context.Context, token, audience string) error {
		t.Fatal("validator must not be called")
		return nil
	}
	identity.On("SignInWithGoogle", mock.Anything, "google-token").Return(&models.Session{UserID: "uid-g"}, nil)

	s, err := svc.SignInWithGoogle(context.Background(), "google-token")
	require.NoError(t, err)
	assert.Equal(t, "uid-g", s.UserID)
}

func TestAuthService_CurrentSession_HidesExpired(t *testing.T) {
	holder := &SessionHolder{}
	svc := NewAuthService(new(mockIdentity), holder, AuthConfig{})
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	holder.Set(&models.Session{UserID: "uid-1", ExpiresAt: now.Add(-time.Second)})
	assert.Nil(t, svc.CurrentSession())

	holder.Set(&models.Session{UserID: "uid-1", ExpiresAt: now.Add(time.Minute)})
	assert.NotNil(t, svc.CurrentSession())

	svc.SignOut()
	assert.Nil(t, svc.CurrentSession())
}

func TestAuthService_Authenticate(t *testing.T) {
	identity := new(mockIdentity)
	svc := NewAuthService(identity, &SessionHolder{}, AuthConfig{})

	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrNotAuthenticated)

	identity.On("Lookup", mock.Anything, "bad").Return(nil, &models.ServiceError{Service: "identity", StatusCode: 400, Message: "INVALID_ID_TOKEN"})
	_, err = svc.Authenticate(context.Background(), "bad")
	assert.ErrorIs(t, err, models.ErrNotAuthenticated)

	identity.On("Lookup", mock.Anything, "good").Return(&models.Session{UserID: "uid-1"}, nil)
	s, err := svc.Authenticate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", s.UserID)
}
