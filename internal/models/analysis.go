package models

// AnalysisStatus is the lifecycle state reported by the scan service.
type AnalysisStatus string

const (
	StatusQueued     AnalysisStatus = "queued"
	StatusInProgress AnalysisStatus = "in-progress"
	StatusCompleted  AnalysisStatus = "completed"
	// StatusOther covers any value the scan service reports that we do not recognise.
	StatusOther AnalysisStatus = "other"
)

// ParseAnalysisStatus maps a raw status string onto the known set.
func ParseAnalysisStatus(raw string) AnalysisStatus {
	switch AnalysisStatus(raw) {
	case StatusQueued, StatusInProgress, StatusCompleted:
		return AnalysisStatus(raw)
	default:
		return StatusOther
	}
}

// Pending reports whether the analysis still needs to be polled.
func (s AnalysisStatus) Pending() bool {
	return s == StatusQueued || s == StatusInProgress
}

// AnalysisStats holds the per-engine verdict counts of one analysis.
type AnalysisStats struct {
	Malicious        int `firestore:"malicious" json:"malicious"`
	Suspicious       int `firestore:"suspicious" json:"suspicious"`
	Undetected       int `firestore:"undetected" json:"undetected"`
	Harmless         int `firestore:"harmless" json:"harmless"`
	Timeout          int `firestore:"timeout" json:"timeout"`
	ConfirmedTimeout int `firestore:"confirmedTimeout" json:"confirmed-timeout"`
	Failure          int `firestore:"failure" json:"failure"`
	TypeUnsupported  int `firestore:"typeUnsupported" json:"type-unsupported"`
}

// AnalysisVerdict is one poll result. It is terminal only when Status is completed.
type AnalysisVerdict struct {
	Status    AnalysisStatus
	RawStatus string
	Stats     AnalysisStats
}

// IsMalicious is true once at least one engine flagged the file.
func (v AnalysisVerdict) IsMalicious() bool {
	return v.Stats.Malicious > 0
}

// AnalysisHandle identifies a submitted analysis.
type AnalysisHandle struct {
	ID string
}

// ScanSubmission lives for a single orchestration run and is discarded after the verdict.
type ScanSubmission struct {
	AnalysisID        string
	SubmittedFilePath string
	OriginalFilename  string
}
