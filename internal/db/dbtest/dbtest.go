// Package dbtest opens migrated in-memory sqlite databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/logger"
)

var seq atomic.Int64

// New returns a fresh, migrated in-memory database private to t.
//
// The pool is pinned to one connection: sqlite serializes writers anyway and
// a single connection keeps the shared-cache database alive for the test.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	database, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(logger.Discard(), false))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

// Fixture is a compact user+profile description for tests.
type Fixture struct {
	ID         uint64
	Gender     string
	LookingFor string
	Prefecture string
	Bio        string
	Lat, Lon   *float64
	ShowNearby bool
	Private    bool
	Cards      int
}

// Coord returns a pointer to v.
func Coord(v float64) *float64 { return &v }

// CreateUsers inserts a user and a public profile for every fixture.
func CreateUsers(t testing.TB, database *gorm.DB, fixtures ...Fixture) {
	t.Helper()
	for _, f := range fixtures {
		user := db.User{
			ID:           f.ID,
			Email:        fmt.Sprintf("user%d@test.com", f.ID),
			PasswordHash: "x",
			ContactCards: f.Cards,
		}
		if err := database.Create(&user).Error; err != nil {
			t.Fatalf("create user %d: %v", f.ID, err)
		}
		gender := f.Gender
		if gender == "" {
			gender = db.GenderFemale
		}
		profile := db.Profile{
			UserID:            f.ID,
			DisplayName:       fmt.Sprintf("user%d", f.ID),
			Gender:            gender,
			LookingFor:        f.LookingFor,
			Prefecture:        f.Prefecture,
			Bio:               f.Bio,
			Latitude:          f.Lat,
			Longitude:         f.Lon,
			ShowNearby:        f.ShowNearby,
			IsProfilePublic:   !f.Private,
			ContactVisibility: db.VisibilityPremiumOnly,
		}
		if err := database.Create(&profile).Error; err != nil {
			t.Fatalf("create profile %d: %v", f.ID, err)
		}
	}
}
