package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedTables = []string{
	"daily_recommendations", "contact_views", "subscriptions", "messages",
	"blocks", "likes", "photos", "profiles", "users",
}

var seedPrefectures = []string{"Tokyo", "Osaka", "Kanagawa", "Kyoto"}

// clearAll wipes every table, children first.
func clearAll(db *gorm.DB) error {
	for _, table := range seedTables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences
	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range []string{"users", "messages", "subscriptions", "daily_recommendations"} {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence")
	}
	return nil
}

// DefaultSeedUsers is the demo population used when no size is given.
const DefaultSeedUsers = 100

// SeedTestData resets the database and populates it with demo users.
//
// Behavior:
//  1. Clears existing data in every table.
//  2. Creates n users (half male, half female) with hashed passwords and
//     public profiles scattered around central Tokyo; every other user opts
//     in to nearby search.
//  3. Generates ~70% likes among opposite-gender pairs, every 3rd one mutual.
//  4. Gives every 4th user an active 30-day subscription and everybody 3 contact cards.
func SeedTestData(db *gorm.DB, n int) error {
	if n <= 0 {
		n = DefaultSeedUsers
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	if err := clearAll(db); err != nil {
		return err
	}
	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// --- Seed Users + Profiles ---
	for i := 1; i <= n; i++ {
		gender := GenderMale
		if i > n/2 {
			gender = GenderFemale
		}

		user := User{
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			ContactCards: 3,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		birth := time.Now().AddDate(-(20 + r.Intn(20)), -r.Intn(12), 0)
		lat := 35.6812 + (r.Float64()-0.5)*0.4
		lon := 139.7671 + (r.Float64()-0.5)*0.4
		wechat := fmt.Sprintf("wx_user%d", i)

		profile := Profile{
			UserID:            user.ID,
			DisplayName:       fmt.Sprintf("user%d", i),
			Gender:            gender,
			BirthDate:         &birth,
			Prefecture:        seedPrefectures[r.Intn(len(seedPrefectures))],
			Bio:               "Hello! I like coffee, hiking and old films.",
			Latitude:          &lat,
			Longitude:         &lon,
			ShowNearby:        i%2 == 0,
			IsProfilePublic:   true,
			WechatID:          &wechat,
			ShowContact:       true,
			ContactVisibility: []string{VisibilityEveryone, VisibilityPremiumOnly, VisibilityMatchedOnly}[i%3],
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}

		if i%4 == 0 {
			now := time.Now()
			sub := Subscription{
				UserID:    user.ID,
				Plan:      "monthly",
				Status:    SubscriptionActive,
				StartDate: now,
				EndDate:   now.AddDate(0, 0, 30),
			}
			if err := db.Create(&sub).Error; err != nil {
				return fmt.Errorf("failed to seed subscription: %w", err)
			}
		}
	}
	log.Printf("Seeded %d users.", n)

	// --- Seed Likes ---
	counter := 0
	for from := 1; from <= n; from++ {
		for j := 0; j < 12; j++ { // each user considers ~12 others
			to := r.Intn(n) + 1
			if from == to || (from > n/2) == (to > n/2) {
				continue
			}
			// like probability 70%
			if r.Intn(100) >= 70 {
				continue
			}

			edges := []Like{{FromUserID: uint64(from), ToUserID: uint64(to)}}
			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				edges = append(edges, Like{FromUserID: uint64(to), ToUserID: uint64(from)})
			}
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&edges).Error; err != nil {
				return fmt.Errorf("failed to seed like: %w", err)
			}
			counter++
		}
	}
	log.Printf("Seeded %d likes.", counter)

	return nil
}

// SeedMinimalTestData wipes the DB and inserts a small deterministic dataset.
//
// Dataset:
//   - user1 (male, Tokyo), user2 (female, Tokyo), user3 (female, Osaka)
//   - user1 ↔ user2 mutual like, user3 → user1 one-way like
//   - user2 shares contact with PREMIUM_ONLY, user3 with MATCHED_ONLY
func SeedMinimalTestData(db *gorm.DB) error {
	if err := clearAll(db); err != nil {
		return err
	}

	users := []User{
		{ID: 1, Email: "u1@test.com", PasswordHash: "x", ContactCards: 1},
		{ID: 2, Email: "u2@test.com", PasswordHash: "x"},
		{ID: 3, Email: "u3@test.com", PasswordHash: "x"},
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	wechat2, wechat3 := "wx_two", "wx_three"
	profiles := []Profile{
		{UserID: 1, DisplayName: "user1", Gender: GenderMale, Prefecture: "Tokyo", IsProfilePublic: true},
		{UserID: 2, DisplayName: "user2", Gender: GenderFemale, Prefecture: "Tokyo", IsProfilePublic: true,
			WechatID: &wechat2, ShowContact: true, ContactVisibility: VisibilityPremiumOnly},
		{UserID: 3, DisplayName: "user3", Gender: GenderFemale, Prefecture: "Osaka", IsProfilePublic: true,
			WechatID: &wechat3, ShowContact: true, ContactVisibility: VisibilityMatchedOnly},
	}
	if err := db.Create(&profiles).Error; err != nil {
		return err
	}

	likes := []Like{
		{FromUserID: 1, ToUserID: 2}, // user1 → user2
		{FromUserID: 2, ToUserID: 1}, // user2 → user1 → mutual
		{FromUserID: 3, ToUserID: 1}, // user3 → user1 (one-way)
	}
	return db.Create(&likes).Error
}
