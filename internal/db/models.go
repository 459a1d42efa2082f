package db

import (
	"time"

	"gorm.io/datatypes"
)

// Contact visibility policies a profile owner can choose.
const (
	VisibilityEveryone    = "EVERYONE"
	VisibilityPremiumOnly = "PREMIUM_ONLY"
	VisibilityMatchedOnly = "MATCHED_ONLY"
)

// Subscription statuses. Only ACTIVE with a future end date means premium.
const (
	SubscriptionActive    = "ACTIVE"
	SubscriptionPending   = "PENDING"
	SubscriptionCancelled = "CANCELLED"
	SubscriptionExpired   = "EXPIRED"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// User table
//
// ContactCards is the consumable contact-card balance. It is only ever
// decremented with a conditional UPDATE (contact_cards > 0), never read-modify-written.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	Email        string    `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	ContactCards int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`

	Profile *Profile `gorm:"foreignKey:UserID"`
}

// Profile is one-to-one with User and keyed by its user id.
//
// Latitude/Longitude stay NULL until the user shares a location.
// Contact fields are only ever surfaced through the visibility gate.
type Profile struct {
	UserID            uint64     `gorm:"primaryKey;autoIncrement:false"`
	DisplayName       string     `gorm:"size:64;not null"`
	Gender            string     `gorm:"size:16;not null;index:idx_profile_public_gender,priority:2"`
	LookingFor        string     `gorm:"size:16"`
	BirthDate         *time.Time `gorm:"type:date"`
	Prefecture        string     `gorm:"size:32"`
	Bio               string     `gorm:"type:text"`
	Latitude          *float64
	Longitude         *float64
	ShowNearby        bool      `gorm:"not null"`
	IsProfilePublic   bool      `gorm:"not null;index:idx_profile_public_gender,priority:1"`
	WechatID          *string   `gorm:"size:64"`
	PhoneNumber       *string   `gorm:"size:32"`
	ContactEmail      *string   `gorm:"size:128"`
	ShowContact       bool      `gorm:"not null"`
	ContactVisibility string    `gorm:"size:16;not null;default:PREMIUM_ONLY"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`

	Photos []Photo `gorm:"foreignKey:UserID;references:UserID"`
}

// Photo points at an object in the photo bucket. ID doubles as the blob identifier.
type Photo struct {
	ID          string    `gorm:"primaryKey;size:36"`
	UserID      uint64    `gorm:"not null;index"`
	BlobKey     string    `gorm:"size:255;not null"`
	URL         string    `gorm:"size:512;not null"`
	ContentType string    `gorm:"size:64"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// Like is a directional, append-only edge. A match is both directions existing.
//
// Composite PK: (FromUserID, ToUserID)
//   - Ensures a single row per ordered pair; a second insert fails with a duplicate key.
//
// Indexes:
//   - idx_like_to_created(to_user_id, created_at DESC)
//     Optimizes "who liked me" lists with pagination.
type Like struct {
	FromUserID uint64    `gorm:"primaryKey;autoIncrement:false"`
	ToUserID   uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_like_to_created,priority:1"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_like_to_created,priority:2,sort:desc"`
}

// Block is a directional suppression edge owned by the blocker. Its effect is
// symmetric: both parties disappear from each other everywhere.
type Block struct {
	BlockerID     uint64    `gorm:"primaryKey;autoIncrement:false"`
	BlockedUserID uint64    `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// Message between a matched, non-blocked pair. Only IsRead/ReadAt ever change.
type Message struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	FromUserID uint64 `gorm:"not null;index:idx_message_pair,priority:1"`
	ToUserID   uint64 `gorm:"not null;index:idx_message_pair,priority:2;index:idx_message_unread,priority:1"`
	Content    string `gorm:"type:text;not null"`
	IsRead     bool   `gorm:"not null;index:idx_message_unread,priority:2"`
	ReadAt     *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

// Subscription is one-to-one with User. Premium is derived, never stored.
type Subscription struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"uniqueIndex;not null"`
	Plan      string    `gorm:"size:32"`
	Status    string    `gorm:"size:16;not null"`
	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// IsPremium reports whether the subscription grants premium at now.
func (s *Subscription) IsPremium(now time.Time) bool {
	return s != nil && s.Status == SubscriptionActive && s.EndDate.After(now)
}

// ContactView records a permanent unlock of TargetID's contact info by ViewerID.
// It outlives the subscription or card that paid for it.
type ContactView struct {
	ViewerID  uint64    `gorm:"primaryKey;autoIncrement:false"`
	TargetID  uint64    `gorm:"primaryKey;autoIncrement:false"`
	Method    string    `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// DailyRecommendation is both the per-day pick cache and the exclusion memory
// for the rolling recommendation window.
//
// Unique index idx_rec_user_date(user_id, date): one pick per user per day.
type DailyRecommendation struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	UserID    uint64         `gorm:"not null;uniqueIndex:idx_rec_user_date,priority:1"`
	Date      datatypes.Date `gorm:"not null;uniqueIndex:idx_rec_user_date,priority:2"`
	TargetID  uint64         `gorm:"not null;index"`
	Score     float64
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&User{}, &Profile{}, &Photo{}, &Like{}, &Block{}, &Message{},
		&Subscription{}, &ContactView{}, &DailyRecommendation{},
	}
}
