package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Lllllllleong/scanshare/internal/models"
)

// DefaultPollInterval is the fixed wait between two polls of a pending analysis.
const DefaultPollInterval = 3 * time.Second

// ErrPollLimitReached is returned when MaxPollAttempts polls all came back pending.
var ErrPollLimitReached = errors.New("analysis still pending after the maximum number of polls")

// Scanner submits files for malware analysis and polls the result.
type Scanner interface {
	Submit(ctx context.Context, content io.Reader, filename string) (models.AnalysisHandle, error)
	Poll(ctx context.Context, analysisID string) (models.AnalysisVerdict, error)
}

// ObjectStore uploads a local file and returns its download URL.
type ObjectStore interface {
	Upload(ctx context.Context, objectName, localPath string) (string, error)
}

// RecordWriter persists a FileRecord.
type RecordWriter interface {
	Create(ctx context.Context, rec *models.FileRecord) error
}

// LocalCache mirrors persisted records on the device.
type LocalCache interface {
	Insert(ctx context.Context, fd *models.FileData) error
}

// ScanUploadConfig holds configuration for the scan-upload orchestration.
type ScanUploadConfig struct {
	PollInterval time.Duration
	// MaxPollAttempts bounds the poll loop; zero polls until the analysis completes.
	MaxPollAttempts int
	// ObjectPrefix is prepended to the original filename to form the object path.
	ObjectPrefix string
	TempDir      string
}

// ScanUploadRequest is one file handed to the orchestrator.
type ScanUploadRequest struct {
	OwnerID  string
	Filename string
	Content  io.Reader
}

// ScanUploadFunction runs the submit, poll and persist pipeline for one file at a time.
// Instances hold no per-run state and may serve concurrent runs.
type ScanUploadFunction struct {
	scanner  Scanner
	objects  ObjectStore
	records  RecordWriter
	notifier Notifier
	cache    LocalCache
	config   ScanUploadConfig
	wait     func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

type runState string

const (
	stateSubmitting runState = "SUBMITTING"
	statePolling    runState = "POLLING"
	stateClean      runState = "COMPLETED_CLEAN"
	stateMalicious  runState = "COMPLETED_MALICIOUS"
	stateFailed     runState = "FAILED"
)

// NewScanUpload wires the orchestrator. notifier and cache may be nil.
func NewScanUpload(scanner Scanner, objects ObjectStore, records RecordWriter, notifier Notifier, cache LocalCache, config ScanUploadConfig) *ScanUploadFunction {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.ObjectPrefix == "" {
		config.ObjectPrefix = "files/"
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &ScanUploadFunction{
		scanner:  scanner,
		objects:  objects,
		records:  records,
		notifier: notifier,
		cache:    cache,
		config:   config,
		wait:     waitInterval,
		now:      time.Now,
	}
}

// Process runs one orchestration. Every failure is folded into a Failed outcome with a
// human-readable message; nothing is persisted unless the analysis reached a verdict.
func (f *ScanUploadFunction) Process(ctx context.Context, req ScanUploadRequest) models.Outcome {
	filename := cleanFilename(req.Filename)
	logCtx := slog.With("filename", filename, "ownerId", req.OwnerID)

	if filename == "" {
		return f.fail(ctx, logCtx, req, "invalid upload", &models.ValidationError{Field: "filename", Message: "must not be empty"})
	}
	if req.Content == nil {
		return f.fail(ctx, logCtx, req, "invalid upload", &models.ValidationError{Field: "file", Message: "no content"})
	}
	req.Filename = filename

	tempPath, err := f.cacheLocally(req)
	if err != nil {
		return f.fail(ctx, logCtx, req, "failed to read file", err)
	}
	defer os.Remove(tempPath)

	logCtx.Info("Submitting file for analysis.", "state", stateSubmitting)
	f.progress(ctx, req, "Uploading", fmt.Sprintf("Submitting %s for scanning", filename))
	submission, err := f.submit(ctx, tempPath, filename)
	if err != nil {
		return f.fail(ctx, logCtx, req, "failed to submit file for scanning", err)
	}
	logCtx = logCtx.With("analysisId", submission.AnalysisID)

	logCtx.Info("Polling analysis.", "state", statePolling)
	f.progress(ctx, req, "Scanning", fmt.Sprintf("Scanning %s", filename))
	verdict, err := f.pollUntilDone(ctx, logCtx, submission.AnalysisID)
	if err != nil {
		return f.fail(ctx, logCtx, req, "failed to get scan result", err)
	}

	rec := &models.FileRecord{
		Filename:       filename,
		UploadedAt:     f.now().UTC(),
		OwnerID:        optional(req.OwnerID),
		AnalysisResult: verdict.Stats,
		IsMalicious:    verdict.IsMalicious(),
	}
	outcome := models.Outcome{Filename: filename, Record: rec}

	objectName := path.Join(f.config.ObjectPrefix, filename)
	if rec.IsMalicious {
		logCtx.Warn("File flagged as malicious. Skipping storage upload.", "state", stateMalicious, "malicious", verdict.Stats.Malicious)
		outcome.State = models.OutcomeMalicious
	} else {
		logCtx.Info("File is clean. Uploading to storage.", "state", stateClean, "gcsObject", objectName)
		f.progress(ctx, req, "Saving", fmt.Sprintf("Saving %s", filename))
		url, err := f.objects.Upload(ctx, objectName, submission.SubmittedFilePath)
		if err != nil {
			return f.fail(ctx, logCtx, req, "failed to upload file to storage", err)
		}
		rec.DownloadURL = &url
		outcome.State = models.OutcomeClean
	}

	if err := f.records.Create(ctx, rec); err != nil {
		return f.fail(ctx, logCtx, req, "failed to save file record", err)
	}
	logCtx.Info("File record saved.", "documentId", rec.ID, "isMalicious", rec.IsMalicious)

	f.echoLocally(ctx, logCtx, rec, objectName)
	f.notifier.Notify(ctx, Notification{
		Channel:  ChannelResult,
		OwnerID:  req.OwnerID,
		Filename: filename,
		Title:    "Scan finished",
		Message:  resultMessage(outcome),
		SentAt:   f.now().UTC(),
	})
	return outcome
}

func (f *ScanUploadFunction) cacheLocally(req ScanUploadRequest) (string, error) {
	tmp, err := os.CreateTemp(f.config.TempDir, "scan-upload-*"+filepath.Ext(req.Filename))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, req.Content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to copy upload to temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return tmp.Name(), nil
}

func (f *ScanUploadFunction) submit(ctx context.Context, tempPath, filename string) (*models.ScanSubmission, error) {
	file, err := os.Open(tempPath)
	if err != nil {
		return nil, fmt.Errorf("could not open temp file %s: %w", tempPath, err)
	}
	defer file.Close()

	handle, err := f.scanner.Submit(ctx, file, filename)
	if err != nil {
		return nil, err
	}
	return &models.ScanSubmission{
		AnalysisID:        handle.ID,
		SubmittedFilePath: tempPath,
		OriginalFilename:  filename,
	}, nil
}

func (f *ScanUploadFunction) pollUntilDone(ctx context.Context, logCtx *slog.Logger, analysisID string) (models.AnalysisVerdict, error) {
	for attempt := 1; ; attempt++ {
		verdict, err := f.scanner.Poll(ctx, analysisID)
		if err != nil {
			return models.AnalysisVerdict{}, err
		}
		switch {
		case verdict.Status == models.StatusCompleted:
			logCtx.Info("Analysis completed.", "attempts", attempt, "malicious", verdict.Stats.Malicious)
			return verdict, nil
		case verdict.Status.Pending():
			if f.config.MaxPollAttempts > 0 && attempt >= f.config.MaxPollAttempts {
				return models.AnalysisVerdict{}, fmt.Errorf("%w (%d)", ErrPollLimitReached, attempt)
			}
			logCtx.Debug("Analysis pending.", "status", verdict.RawStatus, "attempt", attempt, "wait", f.config.PollInterval.String())
			if err := f.wait(ctx, f.config.PollInterval); err != nil {
				return models.AnalysisVerdict{}, err
			}
		default:
			return models.AnalysisVerdict{}, &models.UnexpectedStateError{AnalysisID: analysisID, Status: verdict.RawStatus}
		}
	}
}

// echoLocally mirrors the record into the device cache. A cache failure does not change the outcome.
func (f *ScanUploadFunction) echoLocally(ctx context.Context, logCtx *slog.Logger, rec *models.FileRecord, objectName string) {
	if f.cache == nil {
		return
	}
	fd := &models.FileData{Filename: rec.Filename, FilePath: objectName}
	if rec.IsMalicious {
		fd.FilePath = ""
	}
	if err := f.cache.Insert(ctx, fd); err != nil {
		logCtx.Warn("Failed to echo file record into local cache.", "error", err)
	}
}

func (f *ScanUploadFunction) progress(ctx context.Context, req ScanUploadRequest, title, message string) {
	f.notifier.Notify(ctx, Notification{
		Channel:  ChannelProgress,
		OwnerID:  req.OwnerID,
		Filename: req.Filename,
		Title:    title,
		Message:  message,
		SentAt:   f.now().UTC(),
	})
}

func (f *ScanUploadFunction) fail(ctx context.Context, logCtx *slog.Logger, req ScanUploadRequest, message string, err error) models.Outcome {
	fullError := fmt.Sprintf("%s: %v", message, err)
	logCtx.Error(message, "state", stateFailed, "error", err)
	f.notifier.Notify(ctx, Notification{
		Channel:  ChannelResult,
		OwnerID:  req.OwnerID,
		Filename: req.Filename,
		Title:    "Scan failed",
		Message:  fullError,
		SentAt:   f.now().UTC(),
	})
	return models.Outcome{State: models.OutcomeFailed, Filename: req.Filename, Message: fullError, Retryable: retryable(err)}
}

// retryable is false for failures that a second attempt on the same input cannot fix: bad
// input, a status we cannot act on, or a 4xx answer from a service.
func retryable(err error) bool {
	var (
		validationErr *models.ValidationError
		stateErr      *models.UnexpectedStateError
		serviceErr    *models.ServiceError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &stateErr):
		return false
	case errors.As(err, &serviceErr):
		return serviceErr.StatusCode < 400 || serviceErr.StatusCode >= 500
	default:
		return true
	}
}

func resultMessage(o models.Outcome) string {
	if o.State == models.OutcomeMalicious {
		return fmt.Sprintf("%s was flagged as malicious and was not stored", o.Filename)
	}
	return fmt.Sprintf("%s is clean and has been saved", o.Filename)
}

// cleanFilename keeps only the last path element so uploads cannot escape the object prefix.
func cleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func waitInterval(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
