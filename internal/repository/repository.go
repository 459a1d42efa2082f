package repository

import "gorm.io/gorm"

// Repositories bundles every repository bound to one *gorm.DB.
type Repositories struct {
	Users           *UserRepository
	Profiles        *ProfileRepository
	Photos          *PhotoRepository
	Likes           *LikeRepository
	Blocks          *BlockRepository
	Messages        *MessageRepository
	Entitlements    *EntitlementRepository
	Recommendations *RecommendationRepository
}

// New creates all repositories over database.
func New(database *gorm.DB) *Repositories {
	return &Repositories{
		Users:           NewUserRepository(database),
		Profiles:        NewProfileRepository(database),
		Photos:          NewPhotoRepository(database),
		Likes:           NewLikeRepository(database),
		Blocks:          NewBlockRepository(database),
		Messages:        NewMessageRepository(database),
		Entitlements:    NewEntitlementRepository(database),
		Recommendations: NewRecommendationRepository(database),
	}
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
