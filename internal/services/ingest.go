package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Lllllllleong/scanshare/internal/models"
)

// GCSEvent is the payload of a GCS object-finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// InboxStore reads and removes objects from the inbox bucket.
type InboxStore interface {
	Open(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
}

const (
	deleteAttempts   = 3
	deleteRetryDelay = 500 * time.Millisecond
)

// IngestFunction scans files dropped into the inbox bucket as "{ownerId}/{filename}".
type IngestFunction struct {
	inbox       InboxStore
	scanUpload  *ScanUploadFunction
	inboxBucket string
	wait        func(ctx context.Context, d time.Duration) error
}

// NewIngest wires the ingest function to the inbox bucket and the orchestrator.
func NewIngest(inbox InboxStore, scanUpload *ScanUploadFunction, inboxBucket string) *IngestFunction {
	return &IngestFunction{inbox: inbox, scanUpload: scanUpload, inboxBucket: inboxBucket, wait: waitInterval}
}

// Process runs one orchestration for the finalized object.
//
// A run that may succeed later keeps the inbox object and returns an error so the event is
// redelivered. Every other run removes the object. A malicious object that cannot be removed
// is reported as an error, since its bytes would otherwise stay in storage.
func (f *IngestFunction) Process(ctx context.Context, e GCSEvent) (models.Outcome, error) {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if f.inboxBucket != "" && e.Bucket != f.inboxBucket {
		logCtx.Info("Ignoring object outside the inbox bucket.")
		return models.Outcome{}, nil
	}

	ownerID, filename, ok := strings.Cut(e.Name, "/")
	if !ok || ownerID == "" || filename == "" || strings.HasSuffix(filename, "/") {
		logCtx.Warn("Inbox object name is not {ownerId}/{filename}. Skipping.")
		return models.Outcome{}, nil
	}

	reader, err := f.inbox.Open(ctx, e.Name)
	if err != nil {
		logCtx.Error("Failed to open inbox object", "error", err)
		return models.Outcome{}, err
	}
	defer reader.Close()

	outcome := f.scanUpload.Process(ctx, ScanUploadRequest{OwnerID: ownerID, Filename: filename, Content: reader})
	if outcome.Failed() && outcome.Retryable {
		return outcome, fmt.Errorf("scan of %s failed: %s", e.Name, outcome.Message)
	}
	if outcome.Failed() {
		logCtx.Error("Scan failed permanently. Dropping inbox object.", "error", outcome.Message)
	}

	if err := f.deleteObject(ctx, e.Name); err != nil {
		if outcome.State == models.OutcomeMalicious {
			logCtx.Error("Failed to delete malicious inbox object", "error", err)
			return outcome, fmt.Errorf("malicious object %s could not be deleted: %w", e.Name, err)
		}
		logCtx.Warn("Failed to delete processed inbox object", "error", err)
	}
	logCtx.Info("Inbox object processed.", "state", outcome.State)
	return outcome, nil
}

func (f *IngestFunction) deleteObject(ctx context.Context, objectName string) error {
	var err error
	for attempt := 1; attempt <= deleteAttempts; attempt++ {
		if err = f.inbox.Delete(ctx, objectName); err == nil {
			return nil
		}
		if attempt < deleteAttempts {
			if werr := f.wait(ctx, deleteRetryDelay); werr != nil {
				return werr
			}
		}
	}
	return err
}
