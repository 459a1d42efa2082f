package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/db/dbtest"
	"github.com/oggyb/muzz-match/internal/repository"
)

func TestProfiles_NearbyBoundAndFilters(t *testing.T) {
	ctx := context.Background()
	dbase := dbtest.New(t)
	repo := repository.NewProfileRepository(dbase)

	dbtest.CreateUsers(t, dbase,
		dbtest.Fixture{ID: 1, Gender: db.GenderMale, Lat: dbtest.Coord(35.68), Lon: dbtest.Coord(139.76), ShowNearby: true},
		dbtest.Fixture{ID: 2, Lat: dbtest.Coord(35.69), Lon: dbtest.Coord(139.70), ShowNearby: true},
		dbtest.Fixture{ID: 3, Lat: dbtest.Coord(34.69), Lon: dbtest.Coord(135.50), ShowNearby: true}, // Osaka
		dbtest.Fixture{ID: 4, Lat: dbtest.Coord(35.66), Lon: dbtest.Coord(139.73)},                   // not opted in
		dbtest.Fixture{ID: 5, Lat: dbtest.Coord(35.67), Lon: dbtest.Coord(139.75), ShowNearby: true, Private: true},
		dbtest.Fixture{ID: 6, ShowNearby: true}, // no location
		dbtest.Fixture{ID: 7, Gender: db.GenderMale, Lat: dbtest.Coord(35.68), Lon: dbtest.Coord(139.77), ShowNearby: true},
	)

	bound := orb.Bound{Min: orb.Point{139.0, 35.0}, Max: orb.Point{140.5, 36.5}}
	got, err := repo.Nearby(ctx, repository.CandidateFilter{Exclude: []uint64{1}}, bound)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 7}, profileIDs(got))

	got, err = repo.Nearby(ctx, repository.CandidateFilter{Exclude: []uint64{1}, Genders: []string{db.GenderFemale}}, bound)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2}, profileIDs(got))

	// a box past the antimeridian only filters on latitude
	wide := orb.Bound{Min: orb.Point{-200, 30}, Max: orb.Point{200, 40}}
	got, err = repo.Nearby(ctx, repository.CandidateFilter{Exclude: []uint64{1}}, wide)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3, 7}, profileIDs(got))
}

func TestProfiles_NearbyLoadsPhotos(t *testing.T) {
	ctx := context.Background()
	dbase := dbtest.New(t)
	repo := repository.NewProfileRepository(dbase)

	dbtest.CreateUsers(t, dbase,
		dbtest.Fixture{ID: 1, Lat: dbtest.Coord(35.68), Lon: dbtest.Coord(139.76), ShowNearby: true},
	)
	require.NoError(t, repository.NewPhotoRepository(dbase).Create(ctx,
		&db.Photo{ID: "p1", UserID: 1, BlobKey: "photos/1/p1", URL: "http://test/photos/1/p1"}))

	got, err := repo.Nearby(ctx, repository.CandidateFilter{}, orb.Bound{Min: orb.Point{139.0, 35.0}, Max: orb.Point{140.5, 36.5}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Photos, 1)
	assert.Equal(t, "http://test/photos/1/p1", got[0].Photos[0].URL)
}

func TestProfiles_DiscoverPaginates(t *testing.T) {
	ctx := context.Background()
	dbase := dbtest.New(t)
	repo := repository.NewProfileRepository(dbase)

	dbtest.CreateUsers(t, dbase,
		dbtest.Fixture{ID: 1}, dbtest.Fixture{ID: 2}, dbtest.Fixture{ID: 3},
		dbtest.Fixture{ID: 4}, dbtest.Fixture{ID: 5, Private: true},
	)
	// spread created_at so the order is deterministic
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, dbase.Model(&db.Profile{}).Where("user_id = ?", i).
			UpdateColumn("created_at", base.Add(time.Duration(i)*time.Second)).Error)
	}

	filter := repository.CandidateFilter{Exclude: []uint64{1}}
	page, next, err := repo.Discover(ctx, filter, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 3}, profileIDs(page))
	require.NotNil(t, next)

	page, next, err = repo.Discover(ctx, filter, next, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, profileIDs(page))
	assert.Nil(t, next)
}

func TestProfiles_UpdateLocationAndOptIn(t *testing.T) {
	ctx := context.Background()
	dbase := dbtest.New(t)
	repo := repository.NewProfileRepository(dbase)
	dbtest.CreateUsers(t, dbase, dbtest.Fixture{ID: 1})

	require.NoError(t, repo.UpdateLocation(ctx, 1, 35.5, 139.5))
	require.NoError(t, repo.SetShowNearby(ctx, 1, true))
	require.NoError(t, repo.SetShowNearby(ctx, 1, true), "unchanged value is not a miss")

	p, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p.Latitude)
	assert.InDelta(t, 35.5, *p.Latitude, 1e-9)
	assert.True(t, p.ShowNearby)

	err = repo.UpdateLocation(ctx, 99, 0, 0)
	assert.True(t, repository.IsNotFound(err))
	_, err = repo.Get(ctx, 99)
	assert.True(t, repository.IsNotFound(err))
}

func TestEntitlements_SpendCard(t *testing.T) {
	ctx := context.Background()
	dbase := dbtest.New(t)
	repo := repository.NewEntitlementRepository(dbase)
	dbtest.CreateUsers(t, dbase,
		dbtest.Fixture{ID: 1, Cards: 1},
		dbtest.Fixture{ID: 2}, dbtest.Fixture{ID: 3},
	)

	remaining, err := repo.SpendCard(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	viewed, err := repo.HasContactView(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, viewed)

	// repeat unlock of the same target never spends again
	_, err = repo.SpendCard(ctx, 1, 2)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// empty balance rolls the view back
	_, err = repo.SpendCard(ctx, 1, 3)
	assert.ErrorIs(t, err, repository.ErrNoCredits)
	viewed, err = repo.HasContactView(ctx, 1, 3)
	require.NoError(t, err)
	assert.False(t, viewed)

	cards, err := repo.ContactCards(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, cards)

	require.NoError(t, repo.AddCards(ctx, 1, 2))
	cards, err = repo.ContactCards(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, cards)
}

func TestEntitlements_Subscription(t *testing.T) {
	ctx := context.Background()
	dbase := dbtest.New(t)
	repo := repository.NewEntitlementRepository(dbase)
	dbtest.CreateUsers(t, dbase, dbtest.Fixture{ID: 1})

	sub, err := repo.Subscription(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, sub)

	now := time.Now().UTC()
	require.NoError(t, repo.GrantSubscription(ctx, 1, "monthly", db.SubscriptionActive, now, now.Add(time.Hour)))
	require.NoError(t, repo.GrantSubscription(ctx, 1, "monthly", db.SubscriptionExpired, now, now.Add(time.Hour)))

	sub, err = repo.Subscription(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, db.SubscriptionExpired, sub.Status)
	assert.False(t, sub.IsPremium(now))
}

func TestRecommendations_ClaimConflictReturnsWinner(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t, 3)
	repo := repository.NewRecommendationRepository(dbase)

	day := datatypes.Date(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	first, err := repo.Claim(ctx, &db.DailyRecommendation{UserID: 1, Date: day, TargetID: 2, Score: 11})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), first.TargetID)

	second, err := repo.Claim(ctx, &db.DailyRecommendation{UserID: 1, Date: day, TargetID: 3, Score: 25})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.TargetID, "loser must observe the stored pick")

	got, err := repo.ForDay(ctx, 1, day)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(2), got.TargetID)

	next := datatypes.Date(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC))
	got, err = repo.ForDay(ctx, 1, next)
	require.NoError(t, err)
	assert.Nil(t, got)

	recent, err := repo.RecentTargets(ctx, 1, datatypes.Date(time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, recent)

	recent, err = repo.RecentTargets(ctx, 1, next)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestPhotos_OwnedAccess(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t, 2)
	repo := repository.NewPhotoRepository(dbase)

	require.NoError(t, repo.Create(ctx, &db.Photo{ID: "abc", UserID: 1, BlobKey: "photos/1/abc", URL: "u"}))

	_, err := repo.Get(ctx, 2, "abc")
	assert.True(t, repository.IsNotFound(err))
	assert.True(t, repository.IsNotFound(repo.Delete(ctx, 2, "abc")))

	p, err := repo.Get(ctx, 1, "abc")
	require.NoError(t, err)
	assert.Equal(t, "photos/1/abc", p.BlobKey)
	require.NoError(t, repo.Delete(ctx, 1, "abc"))
}

func profileIDs(profiles []db.Profile) []uint64 {
	ids := make([]uint64, len(profiles))
	for i, p := range profiles {
		ids[i] = p.UserID
	}
	return ids
}
