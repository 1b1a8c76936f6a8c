package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/scanshare/internal/models"
)

// RegistryConfig holds configuration for the file registry.
type RegistryConfig struct {
	CollectionName string
}

// Registry reads and writes FileRecord documents in Firestore.
type Registry struct {
	firestoreClient *firestore.Client
	config          RegistryConfig
}

// NewRegistry creates a Registry over the given collection ("files" by default).
func NewRegistry(client *firestore.Client, config RegistryConfig) *Registry {
	if config.CollectionName == "" {
		config.CollectionName = "files"
	}
	return &Registry{firestoreClient: client, config: config}
}

// Create adds a new FileRecord document and stores its generated id on rec.
func (r *Registry) Create(ctx context.Context, rec *models.FileRecord) error {
	docRef, _, err := r.firestoreClient.Collection(r.config.CollectionName).Add(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to create file record for %s: %w", rec.Filename, err)
	}
	rec.ID = docRef.ID
	return nil
}

// List returns a snapshot of the owner's records, newest first.
func (r *Registry) List(ctx context.Context, ownerID string) ([]models.FileRecord, error) {
	docs, err := r.firestoreClient.Collection(r.config.CollectionName).Where("userId", "==", ownerID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query files for %s: %w", ownerID, err)
	}

	records := make([]models.FileRecord, 0, len(docs))
	for _, doc := range docs {
		var rec models.FileRecord
		if err := doc.DataTo(&rec); err != nil {
			slog.Warn("Skipping undecodable file record.", "documentId", doc.Ref.ID, "error", err)
			continue
		}
		rec.ID = doc.Ref.ID
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UploadedAt.After(records[j].UploadedAt)
	})
	return records, nil
}

// Filter keeps the records whose filename contains query, ignoring case.
// A blank query keeps everything. Order is preserved.
func Filter(query string, records []models.FileRecord) []models.FileRecord {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return records
	}
	out := make([]models.FileRecord, 0, len(records))
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Filename), needle) {
			out = append(out, rec)
		}
	}
	return out
}
