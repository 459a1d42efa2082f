package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
)

// UserRepository covers user existence checks and account deletion.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Exists reports whether a user row exists for id.
func (r *UserRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "check user")
	}
	return count > 0, nil
}

// Delete removes the user and everything that references it.
//
// Behavior:
//   - One transaction; likes, blocks, messages, contact views and daily picks
//     are removed in both directions, so this is the only way a match goes away.
//   - Returns the deleted photo rows so the caller can drop their blobs.
//   - Missing user → gorm.ErrRecordNotFound.
func (r *UserRepository) Delete(ctx context.Context, id uint64) ([]db.Photo, error) {
	var photos []db.Photo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Find(&photos).Error; err != nil {
			return errors.Wrap(err, "load photos")
		}

		steps := []struct {
			model any
			where string
			args  []any
		}{
			{&db.Like{}, "from_user_id = ? OR to_user_id = ?", []any{id, id}},
			{&db.Block{}, "blocker_id = ? OR blocked_user_id = ?", []any{id, id}},
			{&db.Message{}, "from_user_id = ? OR to_user_id = ?", []any{id, id}},
			{&db.ContactView{}, "viewer_id = ? OR target_id = ?", []any{id, id}},
			{&db.DailyRecommendation{}, "user_id = ? OR target_id = ?", []any{id, id}},
			{&db.Subscription{}, "user_id = ?", []any{id}},
			{&db.Photo{}, "user_id = ?", []any{id}},
			{&db.Profile{}, "user_id = ?", []any{id}},
		}
		for _, s := range steps {
			if err := tx.Where(s.where, s.args...).Delete(s.model).Error; err != nil {
				return errors.Wrapf(err, "delete %T", s.model)
			}
		}

		res := tx.Where("id = ?", id).Delete(&db.User{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete user")
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(gorm.ErrRecordNotFound, "user %d", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return photos, nil
}
