package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/scanshare/internal/gcp"
	"github.com/Lllllllleong/scanshare/internal/models"
	"github.com/Lllllllleong/scanshare/internal/services"
)

var (
	identityInstance *gcp.IdentityClient
	authConfig       services.AuthConfig
	once             sync.Once
	initErr          error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleAuth", handleAuth)
}

// main is required by the Go Functions Framework.
func main() {}

func initialize() error {
	config, err := services.LoadConfig()
	if err != nil {
		return err
	}
	authConfig = services.AuthConfig{GoogleClientID: config.GoogleClientID}
	identityInstance, err = services.NewAuthFromConfig(config)
	return err
}

// handleAuth signs users up or in on behalf of clients that cannot reach the identity service.
func handleAuth(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		initErr = initialize()
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		services.WriteError(w, &models.ValidationError{Field: "body", Message: "could not parse JSON"})
		return
	}

	// Sessions belong to one caller, so every request gets its own holder.
	auth := services.NewAuthService(identityInstance, &services.SessionHolder{}, authConfig)
	ctx := r.Context()

	var (
		session *models.Session
		err     error
	)
	switch req.Action {
	case "signUp":
		session, err = auth.SignUp(ctx, req.Email, req.Username, req.Password, req.PasswordConfirmation)
	case "signIn":
		session, err = auth.SignIn(ctx, req.Email, req.Password)
	case "google":
		session, err = auth.SignInWithGoogle(ctx, req.IDToken)
	case "lookup":
		session, err = auth.Authenticate(ctx, req.IDToken)
	default:
		err = &models.ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", req.Action)}
	}
	if err != nil {
		slog.Warn("Auth request failed", "action", req.Action, "error", err)
		services.WriteError(w, err)
		return
	}

	services.WriteJSON(w, http.StatusOK, models.AuthResponse{
		UserID:       session.UserID,
		Email:        session.Email,
		Username:     session.Username,
		IDToken:      session.IDToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
	})
}
