package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"file-manager/models"
)

// MetadataStore is the relational side of the two-store pair. Knows nothing
// about object storage.
type MetadataStore interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id uint) (*models.File, error)
	// DeleteByID returns the number of rows removed so callers can tell a
	// benign vanished-record race from a store failure.
	DeleteByID(ctx context.Context, id uint) (int64, error)
	List(ctx context.Context) ([]models.File, error)
}

type MetadataService struct {
	db *gorm.DB
}

func NewMetadataService(db *gorm.DB) *MetadataService {
	return &MetadataService{db: db}
}

func (m *MetadataService) Create(ctx context.Context, file *models.File) error {
	return m.db.WithContext(ctx).Create(file).Error
}

func (m *MetadataService) GetByID(ctx context.Context, id uint) (*models.File, error) {
	var file models.File
	if err := m.db.WithContext(ctx).First(&file, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &file, nil
}

func (m *MetadataService) DeleteByID(ctx context.Context, id uint) (int64, error) {
	result := m.db.WithContext(ctx).Delete(&models.File{}, id)
	return result.RowsAffected, result.Error
}

func (m *MetadataService) List(ctx context.Context) ([]models.File, error) {
	var files []models.File
	if err := m.db.WithContext(ctx).Order("created_at DESC").Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}
