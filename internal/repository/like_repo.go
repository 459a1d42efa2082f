package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/utils/pagination"
)

// Direction selects which side of the like edge a listing is about.
type Direction string

const (
	DirectionReceived Direction = "received"
	DirectionSent     Direction = "sent"
)

// LikeRepository provides data access methods for the Like model.
// Likes are append-only; there is no update or delete outside account deletion.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// Create inserts the directional edge from → to.
//
// Behavior:
//   - The composite PK makes the insert the uniqueness check: a second
//     insert of the same ordered pair, concurrent or not, returns ErrDuplicate.
//
// Example:
//
//	repo.Create(ctx, 1, 2) // user 1 liked user 2
func (r *LikeRepository) Create(ctx context.Context, from, to uint64) error {
	like := db.Like{FromUserID: from, ToUserID: to}
	if err := r.db.WithContext(ctx).Create(&like).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "create like")
	}
	return nil
}

// HasLiked checks whether from has liked to.
func (r *LikeRepository) HasLiked(ctx context.Context, from, to uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("from_user_id = ? AND to_user_id = ?", from, to).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check like")
	}
	return count > 0, nil
}

// IsMutual reports whether both a → b and b → a exist.
func (r *LikeRepository) IsMutual(ctx context.Context, a, b uint64) (bool, error) {
	if a == b {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check mutual like")
	}
	return count == 2, nil
}

// LikedIDs returns every user id that from has liked.
func (r *LikeRepository) LikedIDs(ctx context.Context, from uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("from_user_id = ?", from).
		Pluck("to_user_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "list liked ids")
	}
	return ids, nil
}

// List returns the likes userID received or sent, newest first.
//
// Behavior:
//   - DirectionReceived: edges where to_user_id = userID; counterpart is the sender.
//   - DirectionSent: edges where from_user_id = userID; counterpart is the recipient.
//   - Counterparts in exclude (the caller's block exclusion set) are dropped.
//   - Ordered by created_at DESC, counterpart DESC; cursor-based pagination.
//
// Example:
//
//	repo.List(ctx, 42, DirectionReceived, exclusions, nil, 20) // first 20 people who liked user 42
func (r *LikeRepository) List(
	ctx context.Context,
	userID uint64,
	direction Direction,
	exclude []uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	var likes []db.Like

	// decode cursor if provided
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	self, other := "l.to_user_id", "l.from_user_id"
	if direction == DirectionSent {
		self, other = "l.from_user_id", "l.to_user_id"
	}

	query := r.db.WithContext(ctx).
		Table("likes l").
		Where(self+" = ?", userID).
		Order("l.created_at DESC, " + other + " DESC").
		Limit(limit + 1)
	if len(exclude) > 0 {
		query = query.Where(other+" NOT IN ?", exclude)
	}

	// apply cursor
	if !cursor.IsZero() {
		ts := cursor.CreatedAt()
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND "+other+" < ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, errors.Wrap(err, "list likes")
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		counterpart := last.FromUserID
		if direction == DirectionSent {
			counterpart = last.ToUserID
		}
		token, _ := pagination.Encode(pagination.From(counterpart, last.CreatedAt))
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// ReverseEdges reports, for each counterpart, whether the edge pointing the
// other way exists. For a received listing that is "did userID like them back",
// for a sent listing "did they like userID". A true value means a match.
func (r *LikeRepository) ReverseEdges(
	ctx context.Context,
	userID uint64,
	direction Direction,
	counterparts []uint64,
) (map[uint64]bool, error) {
	out := make(map[uint64]bool, len(counterparts))
	if len(counterparts) == 0 {
		return out, nil
	}

	var ids []uint64
	query := r.db.WithContext(ctx).Model(&db.Like{})
	if direction == DirectionSent {
		query = query.Where("to_user_id = ? AND from_user_id IN ?", userID, counterparts).
			Select("from_user_id")
	} else {
		query = query.Where("from_user_id = ? AND to_user_id IN ?", userID, counterparts).
			Select("to_user_id")
	}
	if err := query.Scan(&ids).Error; err != nil {
		return nil, errors.Wrap(err, "load reverse edges")
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// CountReceived returns how many users liked userID, ignoring senders in exclude.
//
// Used in conjunction with Redis cache (DB is fallback).
func (r *LikeRepository) CountReceived(ctx context.Context, userID uint64, exclude []uint64) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("to_user_id = ?", userID)
	if len(exclude) > 0 {
		query = query.Where("from_user_id NOT IN ?", exclude)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "count received likes")
	}
	return count, nil
}
