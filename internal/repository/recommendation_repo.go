package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/oggyb/muzz-match/internal/db"
)

// RecommendationRepository stores one daily pick per (user, day).
type RecommendationRepository struct {
	db *gorm.DB
}

func NewRecommendationRepository(database *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: database}
}

// ForDay returns the user's pick for day, or nil when none was made.
func (r *RecommendationRepository) ForDay(ctx context.Context, userID uint64, day datatypes.Date) (*db.DailyRecommendation, error) {
	var rec db.DailyRecommendation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, day).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load daily pick")
	}
	return &rec, nil
}

// RecentTargets returns the targets recommended to userID on or after since.
func (r *RecommendationRepository) RecentTargets(ctx context.Context, userID uint64, since datatypes.Date) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.DailyRecommendation{}).
		Where("user_id = ? AND date >= ?", userID, since).
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "list recent picks")
	}
	return ids, nil
}

// Claim persists rec as the pick of its (user, date).
//
// Behavior:
//   - Exactly one row can exist per (user, date) thanks to the unique index.
//   - If a concurrent caller already stored a pick, the winner's row is
//     re-read from the primary and returned instead of an error; the caller
//     must use the returned row, not rec.
func (r *RecommendationRepository) Claim(ctx context.Context, rec *db.DailyRecommendation) (*db.DailyRecommendation, error) {
	err := r.db.WithContext(ctx).Create(rec).Error
	if err == nil {
		return rec, nil
	}
	if !isDuplicate(err) {
		return nil, errors.Wrap(err, "store daily pick")
	}

	var winner db.DailyRecommendation
	err = r.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Where("user_id = ? AND date = ?", rec.UserID, rec.Date).
		Take(&winner).Error
	if err != nil {
		return nil, errors.Wrap(err, "re-read daily pick")
	}
	return &winner, nil
}
