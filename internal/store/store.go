package store

import (
	"errors"
	"time"

	"github.com/go-xpost/xpost/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.Credential{},
		&models.Upload{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Credential operations

// UpsertCredential stores the credential for its user, replacing any
// existing one. At most one credential exists per user ID.
func (s *Store) UpsertCredential(cred *models.Credential) (*models.Credential, error) {
	var existing models.Credential
	err := s.db.Where("user_id = ?", cred.UserID).First(&existing).Error

	if err == nil {
		cred.ID = existing.ID
		cred.CreatedAt = existing.CreatedAt
		if err := s.db.Save(cred).Error; err != nil {
			return nil, err
		}
		return cred, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}
	if err := s.db.Create(cred).Error; err != nil {
		return nil, err
	}
	return cred, nil
}

// GetCredential returns the credential for a user, or ErrRecordNotFound.
func (s *Store) GetCredential(userID string) (*models.Credential, error) {
	var cred models.Credential
	if err := s.db.Where("user_id = ?", userID).First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &cred, nil
}

// DeleteCredential removes the credential for a user. Deleting a
// nonexistent credential is not an error.
func (s *Store) DeleteCredential(userID string) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.Credential{}).Error
}

// Upload operations

// CreateUpload persists a new upload record, generating its ID.
func (s *Store) CreateUpload(upload *models.Upload) error {
	if upload.ID == "" {
		upload.ID = uuid.New().String()
	}
	return s.db.Create(upload).Error
}

// GetUpload returns a single upload by ID, or ErrRecordNotFound.
func (s *Store) GetUpload(id string) (*models.Upload, error) {
	var upload models.Upload
	if err := s.db.Where("id = ?", id).First(&upload).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &upload, nil
}

// ListUploads returns all uploads, newest first.
func (s *Store) ListUploads() ([]models.Upload, error) {
	var uploads []models.Upload
	if err := s.db.Order("created_at DESC").Find(&uploads).Error; err != nil {
		return nil, err
	}
	return uploads, nil
}

// UpdateUploadStatus applies a status update to an upload. The update is
// conditional on the record not already being terminal, so a finished
// upload can never regress; in that case ErrUploadFinalized is returned.
// CompletedAt is stamped when the new status is terminal.
func (s *Store) UpdateUploadStatus(id string, update models.UploadStatusUpdate) (*models.Upload, error) {
	fields := map[string]any{"status": update.Status}
	if update.MediaID != nil {
		fields["media_id"] = *update.MediaID
	}
	if update.MediaKey != nil {
		fields["media_key"] = *update.MediaKey
	}
	if update.PostID != nil {
		fields["post_id"] = *update.PostID
	}
	if update.ErrorMessage != nil {
		fields["error_message"] = *update.ErrorMessage
	}
	if update.ProcessingState != nil {
		fields["processing_state"] = *update.ProcessingState
	}
	if update.Status == models.UploadStatusSuccess || update.Status == models.UploadStatusFailed {
		fields["completed_at"] = time.Now()
	}

	result := s.db.Model(&models.Upload{}).
		Where("id = ? AND status NOT IN ?", id, []string{
			models.UploadStatusSuccess,
			models.UploadStatusFailed,
		}).
		Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Either the upload does not exist or it is already terminal.
		if _, err := s.GetUpload(id); err != nil {
			return nil, err
		}
		return nil, ErrUploadFinalized
	}

	return s.GetUpload(id)
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB returns the underlying GORM database connection (for transactions)
func (s *Store) DB() *gorm.DB {
	return s.db
}
