package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/datatypes"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/db/dbtest"
	"github.com/oggyb/muzz-match/internal/engine"
	"github.com/oggyb/muzz-match/internal/engine/mocks"
)

func TestDayKey(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"midday", time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC), "2026-10-15"},
		{"after local midnight", time.Date(2026, 10, 15, 15, 30, 0, 0, time.UTC), "2026-10-16"},
		{"just before local midnight", time.Date(2026, 10, 15, 14, 59, 59, 0, time.UTC), "2026-10-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := engine.DayKey(tt.at, jst)
			assert.Equal(t, tt.want, time.Time(key).Format(time.DateOnly))
			assert.Equal(t, time.UTC, time.Time(key).Location())
		})
	}
}

func TestScore(t *testing.T) {
	ctrl := gomock.NewController(t)
	rnd := mocks.NewMockRandSource(ctrl)

	born := func(y int) *time.Time {
		t := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
		return &t
	}
	viewer := &db.Profile{UserID: 1, Prefecture: "Tokyo", BirthDate: born(1995)}
	full := &db.Profile{
		UserID:     2,
		Prefecture: "Tokyo",
		BirthDate:  born(1992),
		Bio:        "weekend hiker, coffee person",
		Photos:     []db.Photo{{ID: "p1"}},
	}
	bare := &db.Profile{UserID: 3, Prefecture: "Osaka", BirthDate: born(1980), Bio: "hi"}

	rnd.EXPECT().Float64().Return(0.0).Times(2)
	assert.Equal(t, 23.0, engine.Score(viewer, full, testNow, rnd))
	assert.Equal(t, 0.0, engine.Score(viewer, bare, testNow, rnd))

	rnd.EXPECT().Float64().Return(0.5)
	assert.Equal(t, 5.0, engine.Score(viewer, bare, testNow, rnd))

	// unknown ages never earn the age bonus
	rnd.EXPECT().Float64().Return(0.0)
	assert.Equal(t, 0.0, engine.Score(&db.Profile{}, &db.Profile{BirthDate: born(1995)}, testNow, rnd))
}

func TestGetDailyPick_StableWithinDay(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(testNow).AnyTimes()
	rnd := mocks.NewMockRandSource(ctrl)
	rnd.EXPECT().Float64().Return(0.0).AnyTimes()

	h := newHarness(t, withClock(clock), withRand(rnd))
	h.users(t,
		dbtest.Fixture{ID: 1, Prefecture: "Tokyo"},
		dbtest.Fixture{ID: 2, Gender: "male", Prefecture: "Osaka"},
		dbtest.Fixture{ID: 3, Gender: "male", Prefecture: "Tokyo"},
		dbtest.Fixture{ID: 4, Prefecture: "Tokyo"}, // same gender, not a candidate
	)

	first, err := h.eng.Daily.GetDailyPick(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", first.Date)
	require.NotNil(t, first.Profile)
	assert.Equal(t, uint64(3), first.Profile.UserID)
	assert.True(t, h.mr.Exists("daily:pick:1:2026-10-15"))

	// a better candidate arriving later does not change today's pick
	h.users(t, dbtest.Fixture{ID: 5, Gender: "male", Prefecture: "Tokyo", Bio: "long enough to count"})
	h.mr.FlushAll()

	again, err := h.eng.Daily.GetDailyPick(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, again.Profile)
	assert.Equal(t, uint64(3), again.Profile.UserID)

	var rows int64
	h.db.Model(&db.DailyRecommendation{}).Where("user_id = ?", 1).Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestGetDailyPick_RotatesAcrossDays(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.users(t,
		dbtest.Fixture{ID: 1, Prefecture: "Tokyo"},
		dbtest.Fixture{ID: 2, Gender: "male", Prefecture: "Tokyo"},
		dbtest.Fixture{ID: 3, Gender: "male"},
	)

	day1, err := h.eng.Daily.GetDailyPick(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, day1.Profile)
	assert.Equal(t, uint64(2), day1.Profile.UserID)

	h.clock.Advance(24 * time.Hour)
	day2, err := h.eng.Daily.GetDailyPick(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", day2.Date)
	require.NotNil(t, day2.Profile)
	assert.Equal(t, uint64(3), day2.Profile.UserID, "yesterday's pick is inside the window")

	// pool exhausted: nothing is returned and nothing is stored
	h.clock.Advance(24 * time.Hour)
	day3, err := h.eng.Daily.GetDailyPick(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, day3.Profile)

	rec, err := h.repos.Recommendations.ForDay(ctx, 1, datatypes.Date(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Nil(t, rec)

	// once the window has passed the first pick is eligible again
	h.clock.Advance(30 * 24 * time.Hour)
	later, err := h.eng.Daily.GetDailyPick(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, later.Profile)
	assert.Equal(t, uint64(2), later.Profile.UserID)
}

func TestGetDailyPick_Exclusions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.users(t,
		dbtest.Fixture{ID: 1},
		dbtest.Fixture{ID: 2, Gender: "male"},
		dbtest.Fixture{ID: 3, Gender: "male"},
		dbtest.Fixture{ID: 4, Gender: "male", Private: true},
		dbtest.Fixture{ID: 5, Gender: "male", Prefecture: "Tokyo"},
	)
	h.like(t, 1, 2)
	require.NoError(t, h.eng.Blocks.Block(ctx, 3, 1))

	pick, err := h.eng.Daily.GetDailyPick(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, pick.Profile)
	assert.Equal(t, uint64(5), pick.Profile.UserID)
}

func TestGetDailyPick_StoredTargetLaterBlocked(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.users(t,
		dbtest.Fixture{ID: 1},
		dbtest.Fixture{ID: 2, Gender: "male", Prefecture: "Tokyo"},
		dbtest.Fixture{ID: 3, Gender: "male"},
	)

	pick, err := h.eng.Daily.GetDailyPick(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, pick.Profile)
	target := pick.Profile.UserID

	require.NoError(t, h.eng.Blocks.Block(ctx, target, 1))

	pick, err = h.eng.Daily.GetDailyPick(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, pick.Profile, "a blocked pick is withheld, not replaced")

	var rows int64
	h.db.Model(&db.DailyRecommendation{}).Where("user_id = ?", 1).Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestGetDailyPick_LookingFor(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.users(t,
		dbtest.Fixture{ID: 1, LookingFor: "female"},
		dbtest.Fixture{ID: 2, Gender: "male"},
		dbtest.Fixture{ID: 3, Gender: "female"},
	)

	pick, err := h.eng.Daily.GetDailyPick(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, pick.Profile)
	assert.Equal(t, uint64(3), pick.Profile.UserID)
}

func TestTargetGenders(t *testing.T) {
	tests := []struct {
		gender, lookingFor string
		want               []string
	}{
		{"male", "", []string{"female"}},
		{"female", "", []string{"male"}},
		{"other", "", nil},
		{"male", "male", []string{"male"}},
		{"female", "female", []string{"female"}},
		{"male", "any", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, engine.TargetGenders(tt.gender, tt.lookingFor), "%s/%s", tt.gender, tt.lookingFor)
	}
}
