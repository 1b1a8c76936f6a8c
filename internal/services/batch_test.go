package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/Lllllllleong/scanshare/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartFiles(t *testing.T, names []string, contents []string) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for i, name := range names {
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(contents[i]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"]
}

func TestProcessBatch_KeepsOrderAndRunsEachFile(t *testing.T) {
	h := newHarness(t, ScanUploadConfig{})
	h.scanner.Verdicts = []models.AnalysisVerdict{completed(0)}
	names := []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"}
	files := multipartFiles(t, names, []string{"A", "B", "C", "D", "E"})

	outcomes := h.fn.ProcessBatch(context.Background(), "uid-1", files)

	require.Len(t, outcomes, len(names))
	for i, name := range names {
		assert.Equal(t, name, outcomes[i].Filename)
		assert.Equal(t, models.OutcomeClean, outcomes[i].State, outcomes[i].Message)
	}
	assert.Len(t, h.records.Written, len(names))
	assert.ElementsMatch(t, []string{"files/a.txt", "files/b.txt", "files/c.txt", "files/d.txt", "files/e.txt"}, h.objects.ObjectNames)
	assert.ElementsMatch(t, []string{"A", "B", "C", "D", "E"}, h.objects.Contents)
}

func TestProcessBatch_OneFailureDoesNotStopTheOthers(t *testing.T) {
	h := newHarness(t, ScanUploadConfig{})
	h.scanner.Verdicts = []models.AnalysisVerdict{completed(0)}
	files := multipartFiles(t, []string{"ok.txt", ".."}, []string{"fine", "nameless"})

	outcomes := h.fn.ProcessBatch(context.Background(), "uid-1", files)

	require.Len(t, outcomes, 2)
	assert.Equal(t, models.OutcomeClean, outcomes[0].State)
	assert.Equal(t, models.OutcomeFailed, outcomes[1].State)
	assert.Len(t, h.records.Written, 1)
}

func TestProcessBatch_Empty(t *testing.T) {
	h := newHarness(t, ScanUploadConfig{})
	assert.Empty(t, h.fn.ProcessBatch(context.Background(), "uid-1", nil))
}
