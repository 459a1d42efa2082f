package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
)

// PhotoRepository stores photo metadata; the bytes live in the blob bucket.
type PhotoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(database *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: database}
}

func (r *PhotoRepository) Create(ctx context.Context, photo *db.Photo) error {
	if err := r.db.WithContext(ctx).Create(photo).Error; err != nil {
		return errors.Wrap(err, "create photo")
	}
	return nil
}

// Get loads a photo owned by userID. Someone else's photo is not found.
func (r *PhotoRepository) Get(ctx context.Context, userID uint64, photoID string) (*db.Photo, error) {
	var photo db.Photo
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", photoID, userID).
		Take(&photo).Error
	if err != nil {
		return nil, errors.Wrapf(err, "load photo %s", photoID)
	}
	return &photo, nil
}

func (r *PhotoRepository) Delete(ctx context.Context, userID uint64, photoID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", photoID, userID).
		Delete(&db.Photo{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete photo")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(gorm.ErrRecordNotFound, "photo %s", photoID)
	}
	return nil
}
