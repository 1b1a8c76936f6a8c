package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Lllllllleong/scanshare/internal/models"
	"github.com/golang-jwt/jwt/v5"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

const (
	identityService         = "identity"
	DefaultIdentityEndpoint = "https://identitytoolkit.googleapis.com/v1"
	googleProviderID        = "google.com"
)

// IdentityConfig holds settings for the Identity Toolkit REST API (Firebase Authentication).
type IdentityConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// IdentityClient performs sign-up, sign-in and account lookups against the identity service.
// It keeps no session state of its own.
type IdentityClient struct {
	httpClient *retryablehttp.Client
	endpoint   string
	apiKey     string
	now        func() time.Time
}

type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type lookupResponse struct {
	Users []struct {
		LocalID     string `json:"localId"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	} `json:"users"`
}

type identityError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewIdentityClient builds an IdentityClient. Requests are attempted once.
func NewIdentityClient(cfg IdentityConfig) (*IdentityClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("identity API key must be provided")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultIdentityEndpoint
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 0
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.Logger = slog.Default()
	if cfg.Timeout > 0 {
		httpClient.HTTPClient.Timeout = cfg.Timeout
	}

	return &IdentityClient{
		httpClient: httpClient,
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiKey:     cfg.APIKey,
		now:        time.Now,
	}, nil
}

// SignUp creates an email/password account and stores username as its display name.
func (c *IdentityClient) SignUp(ctx context.Context, email, username, password string) (*models.Session, error) {
	var created authResponse
	if err := c.call(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &created); err != nil {
		return nil, err
	}

	var updated authResponse
	if err := c.call(ctx, "accounts:update", map[string]any{
		"idToken":           created.IDToken,
		"displayName":       username,
		"returnSecureToken": true,
	}, &updated); err != nil {
		return nil, fmt.Errorf("account created but setting username failed: %w", err)
	}

	if updated.IDToken != "" {
		created.IDToken = updated.IDToken
		created.RefreshToken = updated.RefreshToken
		created.ExpiresIn = updated.ExpiresIn
	}
	created.DisplayName = username
	return c.session(created), nil
}

// SignIn authenticates with email and password.
func (c *IdentityClient) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	var out authResponse
	if err := c.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &out); err != nil {
		return nil, err
	}
	return c.session(out), nil
}

// SignInWithGoogle exchanges a Google ID token for a session.
func (c *IdentityClient) SignInWithGoogle(ctx context.Context, googleIDToken string) (*models.Session, error) {
	postBody := url.Values{}
	postBody.Set("id_token", googleIDToken)
	postBody.Set("providerId", googleProviderID)

	var out authResponse
	if err := c.call(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &out); err != nil {
		return nil, err
	}
	return c.session(out), nil
}

// Lookup resolves an ID token into the account it belongs to.
func (c *IdentityClient) Lookup(ctx context.Context, idToken string) (*models.Session, error) {
	var out lookupResponse
	if err := c.call(ctx, "accounts:lookup", map[string]any{"idToken": idToken}, &out); err != nil {
		return nil, err
	}
	if len(out.Users) == 0 {
		return nil, &models.ServiceError{Service: identityService, StatusCode: http.StatusNotFound, Message: "USER_NOT_FOUND"}
	}
	u := out.Users[0]
	return &models.Session{
		UserID:    u.LocalID,
		Email:     u.Email,
		Username:  u.DisplayName,
		IDToken:   idToken,
		ExpiresAt: tokenExpiry(idToken),
	}, nil
}

func (c *IdentityClient) session(r authResponse) *models.Session {
	expiresAt := tokenExpiry(r.IDToken)
	if expiresAt.IsZero() {
		if secs, err := strconv.Atoi(r.ExpiresIn); err == nil {
			expiresAt = c.now().Add(time.Duration(secs) * time.Second)
		}
	}
	return &models.Session{
		UserID:       r.LocalID,
		Email:        r.Email,
		Username:     r.DisplayName,
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiresAt,
	}
}

func (c *IdentityClient) call(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}
	endpoint := fmt.Sprintf("%s/%s?key=%s", c.endpoint, method, url.QueryEscape(c.apiKey))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &models.NetworkError{Service: identityService, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.NetworkError{Service: identityService, Err: fmt.Errorf("failed to read %s response: %w", method, err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := resp.Status
		var ie identityError
		if json.Unmarshal(raw, &ie) == nil && ie.Error.Message != "" {
			msg = ie.Error.Message
		}
		return &models.ServiceError{Service: identityService, StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &models.ServiceError{Service: identityService, StatusCode: resp.StatusCode, Message: fmt.Sprintf("undecodable %s response: %v", method, err)}
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the identity service has
// already vouched for the token when it handed it out.
func tokenExpiry(idToken string) time.Time {
	if idToken == "" {
		return time.Time{}
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
