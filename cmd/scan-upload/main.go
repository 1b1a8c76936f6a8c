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

// maxUploadMemory is how much of a multipart body is kept in memory before spilling to disk.
const maxUploadMemory = 32 << 20

var (
	scanUploadInstance *services.ScanUploadFunction
	authInstance       *services.AuthService
	once               sync.Once
	initErr            error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleScanUpload" is the entry point name configured in GCP.
	functions.HTTP("HandleScanUpload", handleScanUpload)
}

// main is required by the Go Functions Framework.
func main() {}

func initialize() error {
	ctx := context.Background()
	config, err := services.LoadConfig()
	if err != nil {
		return err
	}
	identity, err := services.NewAuthFromConfig(config)
	if err != nil {
		return err
	}
	authInstance = services.NewAuthService(identity, &services.SessionHolder{}, services.AuthConfig{GoogleClientID: config.GoogleClientID})
	scanUploadInstance, err = services.NewScanUploadFromConfig(ctx, config)
	return err
}

// handleScanUpload scans every "file" part of a multipart upload for the authenticated caller.
func handleScanUpload(w http.ResponseWriter, r *http.Request) {
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

	session, err := authInstance.Authenticate(r.Context(), services.BearerToken(r))
	if err != nil {
		slog.Warn("Rejected unauthenticated upload", "error", err)
		services.WriteError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		services.WriteError(w, &models.ValidationError{Field: "body", Message: "could not parse multipart form: " + err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		services.WriteError(w, &models.ValidationError{Field: "file", Message: "no file parts in request"})
		return
	}

	logCtx := slog.With("userId", session.UserID, "files", len(files))
	logCtx.Info("Processing scan upload request.")
	outcomes := scanUploadInstance.ProcessBatch(r.Context(), session.UserID, files)

	services.WriteJSON(w, http.StatusOK, models.ScanUploadResponse{Outcomes: outcomes})
}
