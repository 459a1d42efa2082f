package match

import "github.com/oggyb/muzz-match/internal/engine"

// Request and response messages of muzz.match.v1.MatchService. They travel
// as JSON on both transports; user ids are decimal strings.

type Empty struct{}

type TargetRequest struct {
	TargetUserID string `json:"targetUserId" validate:"required,numeric"`
}

type CreateLikeResponse struct {
	Created bool `json:"created"`
	IsMatch bool `json:"isMatch"`
}

type ListLikesRequest struct {
	Direction       string  `json:"direction" validate:"omitempty,oneof=received sent"`
	PaginationToken *string `json:"paginationToken,omitempty"`
}

type ListLikesResponse struct {
	Likes               []engine.LikeItem `json:"likes"`
	NextPaginationToken *string           `json:"nextPaginationToken,omitempty"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type SendMessageRequest struct {
	TargetUserID string `json:"targetUserId" validate:"required,numeric"`
	Content      string `json:"content" validate:"required"`
}

type SendMessageResponse struct {
	Message engine.Message `json:"message"`
}

type GetThreadRequest struct {
	TargetUserID    string  `json:"targetUserId" validate:"required,numeric"`
	PaginationToken *string `json:"paginationToken,omitempty"`
}

type GetThreadResponse struct {
	Messages            []engine.Message `json:"messages"`
	NextPaginationToken *string          `json:"nextPaginationToken,omitempty"`
}

type ViewProfileResponse struct {
	Profile engine.ProfileView `json:"profile"`
}

type GetContactResponse struct {
	Contact engine.Disclosure `json:"contact"`
}

type UnlockContactResponse struct {
	Method         string `json:"method"`
	RemainingCards *int   `json:"remainingCards,omitempty"`
}

type NearbyRequest struct {
	MaxDistanceKm float64 `json:"maxDistanceKm" validate:"gt=0"`
	Gender        string  `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
}

type NearbyResponse struct {
	Status string              `json:"status"`
	Items  []engine.NearbyItem `json:"items"`
}

type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

type SetShowNearbyRequest struct {
	Enabled bool `json:"enabled"`
}

type DailyPickResponse struct {
	Date    string                 `json:"date"`
	Profile *engine.ProfileSummary `json:"profile,omitempty"`
}

type DiscoverRequest struct {
	Gender          string  `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	PaginationToken *string `json:"paginationToken,omitempty"`
}

type DiscoverResponse struct {
	Profiles            []engine.ProfileSummary `json:"profiles"`
	NextPaginationToken *string                 `json:"nextPaginationToken,omitempty"`
}

// AddPhotoRequest carries the raw bytes; JSON encodes them as base64.
type AddPhotoRequest struct {
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"data" validate:"required"`
}

type AddPhotoResponse struct {
	Photo engine.Photo `json:"photo"`
}

type DeletePhotoRequest struct {
	PhotoID string `json:"photoId" validate:"required,uuid"`
}
