package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
)

// BlockRepository stores directional block edges. Only the blocker's
// (blocker_id, blocked_user_id) key can remove an edge.
type BlockRepository struct {
	db *gorm.DB
}

func NewBlockRepository(database *gorm.DB) *BlockRepository {
	return &BlockRepository{db: database}
}

// Create inserts blocker → blocked. A repeated block returns ErrDuplicate.
func (r *BlockRepository) Create(ctx context.Context, blocker, blocked uint64) error {
	block := db.Block{BlockerID: blocker, BlockedUserID: blocked}
	if err := r.db.WithContext(ctx).Create(&block).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "create block")
	}
	return nil
}

// Delete removes blocker → blocked and reports whether a row existed.
// The reverse edge is never touched.
func (r *BlockRepository) Delete(ctx context.Context, blocker, blocked uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_user_id = ?", blocker, blocked).
		Delete(&db.Block{})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "delete block")
	}
	return res.RowsAffected > 0, nil
}

// Exists reports whether a block edge exists in either direction.
func (r *BlockRepository) Exists(ctx context.Context, a, b uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("(blocker_id = ? AND blocked_user_id = ?) OR (blocker_id = ? AND blocked_user_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check block")
	}
	return count > 0, nil
}

// Related returns everyone userID blocked plus everyone who blocked userID.
// Ids may repeat when both directions exist.
func (r *BlockRepository) Related(ctx context.Context, userID uint64) ([]uint64, error) {
	var blocked, blockers []uint64
	if err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("blocker_id = ?", userID).
		Pluck("blocked_user_id", &blocked).Error; err != nil {
		return nil, errors.Wrap(err, "list blocked users")
	}
	if err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("blocked_user_id = ?", userID).
		Pluck("blocker_id", &blockers).Error; err != nil {
		return nil, errors.Wrap(err, "list blockers")
	}
	return append(blocked, blockers...), nil
}
