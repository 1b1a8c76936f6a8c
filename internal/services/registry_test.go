package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Lllllllleong/scanshare/internal/gcp"
	"github.com/Lllllllleong/scanshare/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(records []models.FileRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Filename)
	}
	return out
}

func TestFilter(t *testing.T) {
	records := []models.FileRecord{
		{Filename: "Report.pdf"},
		{Filename: "holiday.JPG"},
		{Filename: "quarterly-report.xlsx"},
	}

	assert.Equal(t, []string{"Report.pdf", "quarterly-report.xlsx"}, names(Filter("report", records)))
	assert.Equal(t, []string{"holiday.JPG"}, names(Filter(".jpg", records)))
	assert.Equal(t, []string{"Report.pdf", "holiday.JPG", "quarterly-report.xlsx"}, names(Filter("  ", records)))
	assert.Empty(t, Filter("missing", records))
}

// Runs only against the Firestore emulator.
func TestRegistry_CreateThenList(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := gcp.NewFirestoreClient(ctx, "scanshare-test", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	reg := NewRegistry(client, RegistryConfig{CollectionName: fmt.Sprintf("files-%s", uuid.NewString())})
	owner := "uid-1"
	url := "https://example.test/files/report.pdf"
	older := &models.FileRecord{Filename: "old.txt", UploadedAt: time.Now().Add(-time.Hour).UTC(), OwnerID: &owner}
	clean := &models.FileRecord{Filename: "report.pdf", UploadedAt: time.Now().UTC(), OwnerID: &owner, DownloadURL: &url}
	other := "uid-2"
	foreign := &models.FileRecord{Filename: "theirs.txt", UploadedAt: time.Now().UTC(), OwnerID: &other}

	for _, rec := range []*models.FileRecord{older, clean, foreign} {
		require.NoError(t, reg.Create(ctx, rec))
		assert.NotEmpty(t, rec.ID)
	}

	got, err := reg.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "report.pdf", got[0].Filename)
	require.NotNil(t, got[0].DownloadURL)
	assert.Equal(t, url, *got[0].DownloadURL)
	assert.False(t, got[0].IsMalicious)
	assert.Nil(t, got[1].DownloadURL)
}
