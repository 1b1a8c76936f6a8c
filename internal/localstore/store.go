package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lllllllleong/scanshare/internal/models"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// SchemaVersion is bumped whenever a table definition changes.
const SchemaVersion = 1

// Store is the SQLite-backed local cache.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn (":memory:" for tests) and makes sure the schema is current.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access local store pool: %w", err)
	}
	// SQLite has a single writer; one connection also keeps ":memory:" databases intact.
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	var version int
	if err := db.Raw("PRAGMA user_version").Scan(&version).Error; err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != SchemaVersion {
		if err := db.Migrator().DropTable(&models.FileData{}, &models.UserProfileImage{}); err != nil {
			return fmt.Errorf("failed to drop outdated tables: %w", err)
		}
	}
	if err := db.AutoMigrate(&models.FileData{}, &models.UserProfileImage{}); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)).Error; err != nil {
		return fmt.Errorf("failed to store schema version: %w", err)
	}
	return nil
}

// GetByFilename returns the cached entry for name, or nil when there is none.
func (s *Store) GetByFilename(ctx context.Context, name string) (*models.FileData, error) {
	var fd models.FileData
	err := s.db.WithContext(ctx).Where("filename = ?", name).First(&fd).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file data %s: %w", name, err)
	}
	return &fd, nil
}

// Insert adds fd, replacing any entry with the same filename.
func (s *Store) Insert(ctx context.Context, fd *models.FileData) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "filename"}},
		DoUpdates: clause.AssignmentColumns([]string{"filePath"}),
	}).Create(fd).Error
	if err != nil {
		return fmt.Errorf("failed to insert file data %s: %w", fd.Filename, err)
	}
	return nil
}

// Delete removes fd by primary key, or by filename when the id is unknown.
func (s *Store) Delete(ctx context.Context, fd *models.FileData) error {
	db := s.db.WithContext(ctx)
	var err error
	if fd.ID != 0 {
		err = db.Delete(&models.FileData{}, fd.ID).Error
	} else {
		err = db.Where("filename = ?", fd.Filename).Delete(&models.FileData{}).Error
	}
	if err != nil {
		return fmt.Errorf("failed to delete file data %s: %w", fd.Filename, err)
	}
	return nil
}

// GetProfileImage returns the stored profile image path of userID, or nil.
func (s *Store) GetProfileImage(ctx context.Context, userID string) (*models.UserProfileImage, error) {
	var img models.UserProfileImage
	err := s.db.WithContext(ctx).Where(`"userId" = ?`, userID).First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile image of %s: %w", userID, err)
	}
	return &img, nil
}

// SaveProfileImage inserts or replaces the profile image path of a user.
func (s *Store) SaveProfileImage(ctx context.Context, img *models.UserProfileImage) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "userId"}},
		DoUpdates: clause.AssignmentColumns([]string{"profileImagePath"}),
	}).Create(img).Error
	if err != nil {
		return fmt.Errorf("failed to save profile image of %s: %w", img.UserID, err)
	}
	return nil
}
