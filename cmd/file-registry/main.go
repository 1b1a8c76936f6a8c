package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/scanshare/internal/models"
	"github.com/Lllllllleong/scanshare/internal/services"
)

var (
	registryInstance *services.Registry
	authInstance     *services.AuthService
	once             sync.Once
	initErr          error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleListFiles", handleListFiles)
}

// main is required by the Go Functions Framework.
func main() {}

func initialize() error {
	config, err := services.LoadConfig()
	if err != nil {
		return err
	}
	identity, err := services.NewAuthFromConfig(config)
	if err != nil {
		return err
	}
	authInstance = services.NewAuthService(identity, &services.SessionHolder{}, services.AuthConfig{GoogleClientID: config.GoogleClientID})
	registryInstance, err = services.NewRegistryFromConfig(context.Background(), config)
	return err
}

// handleListFiles returns the caller's file records, newest first, optionally filtered by ?q=.
func handleListFiles(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		initErr = initialize()
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := authInstance.Authenticate(r.Context(), services.BearerToken(r))
	if err != nil {
		services.WriteError(w, err)
		return
	}

	records, err := registryInstance.List(r.Context(), session.UserID)
	if err != nil {
		slog.Error("Failed to list file records", "userId", session.UserID, "error", err)
		services.WriteError(w, err)
		return
	}

	query := r.URL.Query().Get("q")
	records = services.Filter(query, records)
	if records == nil {
		records = []models.FileRecord{}
	}
	services.WriteJSON(w, http.StatusOK, models.ListFilesResponse{Files: records, Count: len(records), Query: query})
}
