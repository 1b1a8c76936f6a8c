package models

import "time"

// FileRecord is the metadata document written to the "files" collection once per completed scan.
// DownloadURL is only set for clean files; malicious files never reach object storage.
type FileRecord struct {
	ID             string        `firestore:"-" json:"id,omitempty"`
	Filename       string        `firestore:"filename" json:"filename"`
	UploadedAt     time.Time     `firestore:"timeUpload" json:"timeUpload"`
	OwnerID        *string       `firestore:"userId" json:"userId"`
	DownloadURL    *string       `firestore:"downloadUrl" json:"downloadUrl"`
	AnalysisResult AnalysisStats `firestore:"analysisResult" json:"analysisResult"`
	IsMalicious    bool          `firestore:"isMalicious" json:"isMalicious"`
}

// FileData mirrors a persisted record in the on-device cache.
type FileData struct {
	ID       uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Filename string `gorm:"column:filename;uniqueIndex;not null" json:"filename"`
	FilePath string `gorm:"column:filePath;not null" json:"filePath"`
}

func (FileData) TableName() string { return "FileData" }

// UserProfileImage remembers where a user's profile picture lives locally.
type UserProfileImage struct {
	UserID           string `gorm:"column:userId;primaryKey" json:"userId"`
	ProfileImagePath string `gorm:"column:profileImagePath;not null" json:"profileImagePath"`
}

func (UserProfileImage) TableName() string { return "user_profile_image" }
