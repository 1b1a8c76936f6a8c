package gcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestNewFirestoreClient_RequiresProject(t *testing.T) {
	_, err := NewFirestoreClient(context.Background(), "", "")
	assert.ErrorContains(t, err, "projectID")
}

func TestNewFirestoreClient_Emulator(t *testing.T) {
	t.Setenv("FIRESTORE_EMULATOR_HOST", "localhost:8686")

	client, err := NewFirestoreClient(context.Background(), "scanshare-test", "")
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}

func TestNewFirestoreClient_WithOptions(t *testing.T) {
	client, err := NewFirestoreClient(context.Background(), "scanshare-test", "scans", option.WithoutAuthentication())
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}
