package services

import (
	"context"
	"testing"
	"time"

	"github.com/Lllllllleong/scanshare/internal/gcp"
	"github.com/Lllllllleong/scanshare/internal/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PROJECT_ID", "demo-project")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "demo-project", config.ProjectID)
	assert.Equal(t, "files", config.CollectionName)
	assert.Equal(t, "(default)", config.DatabaseID)
	assert.Equal(t, scan.DefaultBaseURL, config.ScanAPIURL)
	assert.Equal(t, gcp.DefaultIdentityEndpoint, config.IdentityEndpoint)
	assert.Equal(t, DefaultPollInterval, config.PollInterval)
	assert.Equal(t, 0, config.MaxPollAttempts)
	assert.Equal(t, 60*time.Second, config.ScanTimeout)
	assert.Equal(t, "scanshare", config.NotificationSource)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "500ms")
	t.Setenv("MAX_POLL_ATTEMPTS", "40")
	t.Setenv("FIRESTORE_COLLECTION", "scans")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, config.PollInterval)
	assert.Equal(t, 40, config.MaxPollAttempts)
	assert.Equal(t, "scans", config.CollectionName)
}

func TestLoadConfig_RejectsMalformedValues(t *testing.T) {
	cases := map[string][2]string{
		"interval not a duration": {"POLL_INTERVAL", "three"},
		"interval zero":           {"POLL_INTERVAL", "0s"},
		"attempts not a number":   {"MAX_POLL_ATTEMPTS", "many"},
		"attempts negative":       {"MAX_POLL_ATTEMPTS", "-1"},
		"timeout":                 {"SCAN_TIMEOUT", "soon"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfig()
			assert.ErrorContains(t, err, kv[0])
		})
	}
}

func TestConstructorsRequireTheirSettings(t *testing.T) {
	ctx := context.Background()

	_, err := NewAuthFromConfig(Config{})
	assert.ErrorContains(t, err, "IDENTITY_API_KEY")

	_, err = NewRegistryFromConfig(ctx, Config{})
	assert.ErrorContains(t, err, "PROJECT_ID")

	_, err = NewScanUploadFromConfig(ctx, Config{ScanAPIKey: "k"})
	assert.ErrorContains(t, err, "UPLOAD_BUCKET")

	_, err = NewScanUploadFromConfig(ctx, Config{UploadBucket: "b"})
	assert.ErrorContains(t, err, "SCAN_API_KEY")

	_, err = NewIngestFromConfig(ctx, Config{})
	assert.ErrorContains(t, err, "INBOX_BUCKET")

	_, err = NewIngestFromConfig(ctx, Config{InboxBucket: "uploads", UploadBucket: "uploads", ScanAPIKey: "k", ProjectID: "p"})
	assert.ErrorContains(t, err, "must differ from UPLOAD_BUCKET")
}

func TestNewNotifierFromConfig(t *testing.T) {
	n, err := NewNotifierFromConfig(Config{})
	require.NoError(t, err)
	assert.IsType(t, LogNotifier{}, n)

	n, err = NewNotifierFromConfig(Config{NotificationSink: "http://localhost:8080", NotificationSource: "scanshare"})
	require.NoError(t, err)
	assert.IsType(t, &CloudEventNotifier{}, n)
}
