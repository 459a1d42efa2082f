package repository

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/utils/pagination"
)

// CandidateFilter narrows a profile listing.
//
// Exclude is the viewer's block exclusion set (self included); Genders nil
// means every gender.
type CandidateFilter struct {
	Exclude []uint64
	Genders []string
}

func (f CandidateFilter) apply(query *gorm.DB) *gorm.DB {
	query = query.Where("profiles.is_profile_public = ?", true)
	if len(f.Exclude) > 0 {
		query = query.Where("profiles.user_id NOT IN ?", f.Exclude)
	}
	if len(f.Genders) > 0 {
		query = query.Where("profiles.gender IN ?", f.Genders)
	}
	return query
}

// ProfileRepository reads and updates profiles.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get loads one profile with its photos. Missing profile → gorm.ErrRecordNotFound.
func (r *ProfileRepository) Get(ctx context.Context, userID uint64) (*db.Profile, error) {
	var p db.Profile
	err := r.db.WithContext(ctx).
		Preload("Photos").
		Where("user_id = ?", userID).
		First(&p).Error
	if err != nil {
		return nil, errors.Wrapf(err, "load profile %d", userID)
	}
	return &p, nil
}

// ByIDs loads the profiles of ids keyed by user id. Ids without a profile are absent.
func (r *ProfileRepository) ByIDs(ctx context.Context, ids []uint64) (map[uint64]*db.Profile, error) {
	out := make(map[uint64]*db.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var profiles []db.Profile
	if err := r.db.WithContext(ctx).Preload("Photos").Where("user_id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, errors.Wrap(err, "load profiles")
	}
	for i := range profiles {
		out[profiles[i].UserID] = &profiles[i]
	}
	return out, nil
}

// Nearby returns opted-in, located candidates whose coordinates fall inside bound.
//
// Behavior:
//   - bound is a coarse pre-filter only; the caller computes the real distance.
//   - When bound wraps the antimeridian (min lon > max lon), spans past
//     [-180,180] or is NaN near a pole, the longitude predicate is dropped
//     and only latitude is filtered.
func (r *ProfileRepository) Nearby(ctx context.Context, filter CandidateFilter, bound orb.Bound) ([]db.Profile, error) {
	var profiles []db.Profile

	query := filter.apply(r.db.WithContext(ctx).Model(&db.Profile{})).
		Preload("Photos").
		Where("profiles.show_nearby = ?", true).
		Where("profiles.latitude IS NOT NULL AND profiles.longitude IS NOT NULL").
		Where("profiles.latitude BETWEEN ? AND ?", bound.Min.Lat(), bound.Max.Lat())

	if minLon, maxLon := bound.Min.Lon(), bound.Max.Lon(); minLon >= -180 && maxLon <= 180 && minLon <= maxLon {
		query = query.Where("profiles.longitude BETWEEN ? AND ?", bound.Min.Lon(), bound.Max.Lon())
	}

	if err := query.Find(&profiles).Error; err != nil {
		return nil, errors.Wrap(err, "query nearby profiles")
	}
	return profiles, nil
}

// Candidates returns every profile matching filter with photos preloaded.
// Used by the daily scorer, which needs the whole pool to rank.
func (r *ProfileRepository) Candidates(ctx context.Context, filter CandidateFilter) ([]db.Profile, error) {
	var profiles []db.Profile
	err := filter.apply(r.db.WithContext(ctx).Model(&db.Profile{})).
		Preload("Photos").
		Find(&profiles).Error
	if err != nil {
		return nil, errors.Wrap(err, "query candidates")
	}
	return profiles, nil
}

// Discover returns one page of profiles matching filter, newest first.
//
// Behavior:
//   - Ordered by created_at DESC, user_id DESC; cursor-based pagination.
//
// Example:
//
//	repo.Discover(ctx, CandidateFilter{Exclude: ex}, nil, 20)
func (r *ProfileRepository) Discover(
	ctx context.Context,
	filter CandidateFilter,
	paginationToken *string,
	limit int,
) ([]db.Profile, *string, error) {
	var profiles []db.Profile

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := filter.apply(r.db.WithContext(ctx).Model(&db.Profile{})).
		Preload("Photos").
		Order("profiles.created_at DESC, profiles.user_id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := cursor.CreatedAt()
		query = query.Where(
			"(profiles.created_at < ? OR (profiles.created_at = ? AND profiles.user_id < ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&profiles).Error; err != nil {
		return nil, nil, errors.Wrap(err, "discover profiles")
	}

	var nextToken *string
	if len(profiles) > limit {
		last := profiles[limit-1]
		token, _ := pagination.Encode(pagination.From(last.UserID, last.CreatedAt))
		nextToken = &token
		profiles = profiles[:limit]
	}
	return profiles, nextToken, nil
}

// UpdateLocation stores validated coordinates. Missing profile → gorm.ErrRecordNotFound.
func (r *ProfileRepository) UpdateLocation(ctx context.Context, userID uint64, lat, lon float64) error {
	return r.update(ctx, userID, map[string]any{"latitude": lat, "longitude": lon})
}

// SetShowNearby toggles the nearby-search opt-in.
func (r *ProfileRepository) SetShowNearby(ctx context.Context, userID uint64, enabled bool) error {
	return r.update(ctx, userID, map[string]any{"show_nearby": enabled})
}

func (r *ProfileRepository) update(ctx context.Context, userID uint64, values map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ?", userID).
		Updates(values)
	if res.Error != nil {
		return errors.Wrap(res.Error, "update profile")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// mysql reports changed rows, so an unchanged value also lands here
	var count int64
	if err := r.db.WithContext(ctx).Model(&db.Profile{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return errors.Wrap(err, "check profile")
	}
	if count == 0 {
		return errors.Wrapf(gorm.ErrRecordNotFound, "profile %d", userID)
	}
	return nil
}
