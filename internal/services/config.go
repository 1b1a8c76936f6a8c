package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/scanshare/internal/gcp"
	"github.com/Lllllllleong/scanshare/internal/localstore"
	"github.com/Lllllllleong/scanshare/internal/scan"
	"github.com/joho/godotenv"
)

// Config is the environment shared by all scanshare functions. Each constructor checks the
// fields it needs.
type Config struct {
	ProjectID      string
	UploadBucket   string
	InboxBucket    string
	CollectionName string
	DatabaseID     string

	ScanAPIKey  string
	ScanAPIURL  string
	ScanTimeout time.Duration

	PollInterval    time.Duration
	MaxPollAttempts int

	NotificationSink   string
	NotificationSource string

	IdentityAPIKey   string
	IdentityEndpoint string
	GoogleClientID   string

	LocalCacheDSN string
}

// LoadConfig reads the environment, after loading an optional .env file for local runs.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env file.")
	}

	config := Config{
		ProjectID:          gcp.GetEnv("PROJECT_ID", ""),
		UploadBucket:       gcp.GetEnv("UPLOAD_BUCKET", ""),
		InboxBucket:        gcp.GetEnv("INBOX_BUCKET", ""),
		CollectionName:     gcp.GetEnv("FIRESTORE_COLLECTION", "files"),
		DatabaseID:         gcp.GetEnv("FIRESTORE_DATABASE", firestore.DefaultDatabaseID),
		ScanAPIKey:         gcp.GetEnv("SCAN_API_KEY", ""),
		ScanAPIURL:         gcp.GetEnv("SCAN_API_URL", scan.DefaultBaseURL),
		NotificationSink:   gcp.GetEnv("NOTIFICATION_SINK", ""),
		NotificationSource: gcp.GetEnv("NOTIFICATION_SOURCE", "scanshare"),
		IdentityAPIKey:     gcp.GetEnv("IDENTITY_API_KEY", ""),
		IdentityEndpoint:   gcp.GetEnv("IDENTITY_ENDPOINT", gcp.DefaultIdentityEndpoint),
		GoogleClientID:     gcp.GetEnv("GOOGLE_CLIENT_ID", ""),
		LocalCacheDSN:      gcp.GetEnv("LOCAL_CACHE_DSN", ""),
	}

	var err error
	if config.ScanTimeout, err = time.ParseDuration(gcp.GetEnv("SCAN_TIMEOUT", "60s")); err != nil {
		return Config{}, fmt.Errorf("invalid SCAN_TIMEOUT: %w", err)
	}
	if config.PollInterval, err = time.ParseDuration(gcp.GetEnv("POLL_INTERVAL", DefaultPollInterval.String())); err != nil {
		return Config{}, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}
	if config.PollInterval <= 0 {
		return Config{}, fmt.Errorf("POLL_INTERVAL must be positive, got %s", config.PollInterval)
	}
	if config.MaxPollAttempts, err = strconv.Atoi(gcp.GetEnv("MAX_POLL_ATTEMPTS", "0")); err != nil {
		return Config{}, fmt.Errorf("invalid MAX_POLL_ATTEMPTS: %w", err)
	}
	if config.MaxPollAttempts < 0 {
		return Config{}, fmt.Errorf("MAX_POLL_ATTEMPTS must not be negative, got %d", config.MaxPollAttempts)
	}
	return config, nil
}

// NewAuthFromConfig builds the identity client shared by every request of a function.
func NewAuthFromConfig(config Config) (*gcp.IdentityClient, error) {
	if config.IdentityAPIKey == "" {
		return nil, fmt.Errorf("IDENTITY_API_KEY environment variable must be set")
	}
	return gcp.NewIdentityClient(gcp.IdentityConfig{
		Endpoint: config.IdentityEndpoint,
		APIKey:   config.IdentityAPIKey,
		Timeout:  30 * time.Second,
	})
}

// NewRegistryFromConfig connects the file registry to Firestore.
func NewRegistryFromConfig(ctx context.Context, config Config) (*Registry, error) {
	if config.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID, config.DatabaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return NewRegistry(firestoreClient, RegistryConfig{CollectionName: config.CollectionName}), nil
}

// NewScanUploadFromConfig wires the orchestrator to the scan service, Cloud Storage, Firestore,
// the notifier and, when LOCAL_CACHE_DSN is set, the local cache.
func NewScanUploadFromConfig(ctx context.Context, config Config) (*ScanUploadFunction, error) {
	if config.UploadBucket == "" {
		return nil, fmt.Errorf("UPLOAD_BUCKET environment variable must be set")
	}
	if config.ScanAPIKey == "" {
		return nil, fmt.Errorf("SCAN_API_KEY environment variable must be set")
	}

	scanner, err := scan.NewClient(scan.Config{
		BaseURL: config.ScanAPIURL,
		APIKey:  config.ScanAPIKey,
		Timeout: config.ScanTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scan client: %w", err)
	}
	registry, err := NewRegistryFromConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	notifier, err := NewNotifierFromConfig(config)
	if err != nil {
		return nil, err
	}

	var cache LocalCache
	if config.LocalCacheDSN != "" {
		store, err := localstore.Open(ctx, config.LocalCacheDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open local cache: %w", err)
		}
		cache = store
	}

	f := NewScanUpload(scanner, gcp.NewObjectStore(storageClient, config.UploadBucket), registry, notifier, cache, ScanUploadConfig{
		PollInterval:    config.PollInterval,
		MaxPollAttempts: config.MaxPollAttempts,
	})
	slog.Info("Scan upload logic initialized.", "uploadBucket", config.UploadBucket, "pollInterval", config.PollInterval.String(), "localCache", cache != nil)
	return f, nil
}

// NewIngestFromConfig wires the inbox ingest function on top of the orchestrator.
func NewIngestFromConfig(ctx context.Context, config Config) (*IngestFunction, error) {
	if config.InboxBucket == "" {
		return nil, fmt.Errorf("INBOX_BUCKET environment variable must be set")
	}
	// Clean uploads land in UPLOAD_BUCKET; an inbox on the same bucket would rescan and delete them.
	if config.InboxBucket == config.UploadBucket {
		return nil, fmt.Errorf("INBOX_BUCKET must differ from UPLOAD_BUCKET, both are %q", config.InboxBucket)
	}
	scanUpload, err := NewScanUploadFromConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return NewIngest(gcp.NewObjectStore(storageClient, config.InboxBucket), scanUpload, config.InboxBucket), nil
}

// NewNotifierFromConfig returns a CloudEventNotifier when a sink is configured, a LogNotifier otherwise.
func NewNotifierFromConfig(config Config) (Notifier, error) {
	if config.NotificationSink == "" {
		return LogNotifier{}, nil
	}
	n, err := NewCloudEventNotifier(config.NotificationSink, config.NotificationSource)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}
	return n, nil
}
