package services

import (
	"context"
	"mime/multipart"

	"github.com/Lllllllleong/scanshare/internal/models"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentRuns caps how many orchestrations one request runs at once.
const maxConcurrentRuns = 4

// ProcessBatch runs one independent orchestration per uploaded file and returns the outcomes in
// the order the files were given.
func (f *ScanUploadFunction) ProcessBatch(ctx context.Context, ownerID string, files []*multipart.FileHeader) []models.Outcome {
	outcomes := make([]models.Outcome, len(files))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentRuns)

	for i, fh := range files {
		i, fh := i, fh
		eg.Go(func() error {
			outcomes[i] = f.processPart(gctx, ownerID, fh)
			return nil
		})
	}
	_ = eg.Wait()
	return outcomes
}

func (f *ScanUploadFunction) processPart(ctx context.Context, ownerID string, fh *multipart.FileHeader) models.Outcome {
	file, err := fh.Open()
	if err != nil {
		return models.Outcome{State: models.OutcomeFailed, Filename: fh.Filename, Message: "failed to read uploaded file: " + err.Error()}
	}
	defer file.Close()
	return f.Process(ctx, ScanUploadRequest{OwnerID: ownerID, Filename: fh.Filename, Content: file})
}
