package engine

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/repository"
)

var photoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ProfileView is what a viewer gets when opening a profile.
type ProfileView struct {
	Profile ProfileSummary `json:"profile"`
	IsMatch bool           `json:"isMatch"`
	Contact Disclosure     `json:"contact"`
}

// Photo is the stored photo as returned to its owner.
type Photo struct {
	ID  string `json:"photoId"`
	URL string `json:"url"`
}

// ProfileDirectory serves discovery, profile views, photos and account deletion.
type ProfileDirectory struct {
	*core
	blocks     *BlockFilter
	matches    *MatchResolver
	visibility *VisibilityGate
}

// MaxPhotoBytes is the upload limit enforced by AddPhoto.
func (d *ProfileDirectory) MaxPhotoBytes() int64 { return d.opts.MaxPhotoBytes }

// Discover returns one page of public profiles for viewer, newest first.
// An empty gender uses the viewer's TargetGenders.
func (d *ProfileDirectory) Discover(ctx context.Context, viewer uint64, gender string, pageToken *string) ([]ProfileSummary, *string, error) {
	genders, err := genderFilter(gender)
	if err != nil {
		return nil, nil, err
	}
	if genders == nil {
		me, err := d.repos.Profiles.Get(ctx, viewer)
		if repository.IsNotFound(err) {
			return nil, nil, svcErr.NotFound("profile not found")
		} else if err != nil {
			return nil, nil, err
		}
		genders = TargetGenders(me.Gender, me.LookingFor)
	}

	excluded, err := d.blocks.ExclusionSet(ctx, viewer)
	if err != nil {
		return nil, nil, err
	}
	profiles, next, err := d.repos.Profiles.Discover(ctx, repository.CandidateFilter{
		Exclude: excluded.IDs(),
		Genders: genders,
	}, pageToken, d.opts.DiscoverPageSize)
	if err != nil {
		return nil, nil, pageError(err)
	}

	now := d.clock.Now()
	out := make([]ProfileSummary, len(profiles))
	for i := range profiles {
		out[i] = Summarize(profiles[i].UserID, &profiles[i], now)
	}
	return out, next, nil
}

// ViewProfile returns owner's summary, the match flag and the contact decision.
//
// Behavior:
//   - Blocked or missing owner → NotFound.
//   - A private profile is visible to matches only.
//   - Viewing oneself discloses one's own contact fields.
func (d *ProfileDirectory) ViewProfile(ctx context.Context, viewer, owner uint64) (ProfileView, error) {
	now := d.clock.Now()
	if viewer == owner {
		p, err := d.repos.Profiles.Get(ctx, owner)
		if repository.IsNotFound(err) {
			return ProfileView{}, svcErr.NotFound("profile not found")
		} else if err != nil {
			return ProfileView{}, err
		}
		contact := visible(ReasonSelf, p)
		return ProfileView{Profile: Summarize(owner, p, now), Contact: contact}, nil
	}

	p, matched, err := d.visibility.loadTarget(ctx, viewer, owner)
	if err != nil {
		return ProfileView{}, err
	}
	contact, err := d.visibility.disclose(ctx, viewer, p)
	if err != nil {
		return ProfileView{}, err
	}
	return ProfileView{Profile: Summarize(owner, p, now), IsMatch: matched, Contact: contact}, nil
}

// AddPhoto stores data in the blob bucket and records it on the user's profile.
//
// Behavior:
//   - Empty data, data over MaxPhotoBytes or a non-image type → InvalidInput.
//   - contentType may be empty; it is then sniffed from the bytes.
//   - The blob is removed again if the row cannot be written.
func (d *ProfileDirectory) AddPhoto(ctx context.Context, userID uint64, contentType string, data []byte) (Photo, error) {
	if d.photos == nil {
		return Photo{}, fmt.Errorf("photo storage is not configured")
	}
	if len(data) == 0 {
		return Photo{}, svcErr.InvalidInput("photo is empty")
	}
	if int64(len(data)) > d.opts.MaxPhotoBytes {
		return Photo{}, svcErr.InvalidInput(fmt.Sprintf("photo exceeds %d bytes", d.opts.MaxPhotoBytes))
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !photoTypes[contentType] {
		return Photo{}, svcErr.InvalidInput("unsupported photo type " + contentType)
	}
	if err := d.requireUser(ctx, userID, "user not found"); err != nil {
		return Photo{}, err
	}

	id := uuid.NewString()
	key := fmt.Sprintf("photos/%d/%s", userID, id)
	url, err := d.photos.Put(ctx, key, contentType, data)
	if err != nil {
		return Photo{}, err
	}

	row := db.Photo{ID: id, UserID: userID, BlobKey: key, URL: url, ContentType: contentType}
	if err := d.repos.Photos.Create(ctx, &row); err != nil {
		if delErr := d.photos.Delete(ctx, key); delErr != nil {
			d.log.Warn("orphaned photo blob", "key", key, "err", delErr)
		}
		return Photo{}, err
	}
	return Photo{ID: id, URL: url}, nil
}

// DeletePhoto removes one of the user's photos. Someone else's photo is NotFound.
func (d *ProfileDirectory) DeletePhoto(ctx context.Context, userID uint64, photoID string) error {
	photo, err := d.repos.Photos.Get(ctx, userID, photoID)
	if repository.IsNotFound(err) {
		return svcErr.NotFound("photo not found")
	} else if err != nil {
		return err
	}
	if err := d.repos.Photos.Delete(ctx, userID, photoID); err != nil {
		if repository.IsNotFound(err) {
			return svcErr.NotFound("photo not found")
		}
		return err
	}
	if d.photos != nil {
		if err := d.photos.Delete(ctx, photo.BlobKey); err != nil {
			d.log.Warn("photo blob delete failed", "key", photo.BlobKey, "err", err)
		}
	}
	return nil
}

// DeleteAccount removes the user and every row that references it, in one
// transaction. It is the only way a match disappears. Blob and cache cleanup
// afterwards is best effort.
func (d *ProfileDirectory) DeleteAccount(ctx context.Context, userID uint64) error {
	// counters of people this user liked drop once the edges go
	liked, err := d.repos.Likes.LikedIDs(ctx, userID)
	if err != nil {
		return err
	}

	photos, err := d.repos.Users.Delete(ctx, userID)
	if repository.IsNotFound(err) {
		return svcErr.NotFound("user not found")
	} else if err != nil {
		return err
	}

	if d.photos != nil {
		for _, p := range photos {
			if err := d.photos.Delete(ctx, p.BlobKey); err != nil {
				d.log.Warn("photo blob delete failed", "key", p.BlobKey, "err", err)
			}
		}
	}
	d.invalidateLikeCounts(ctx, liked...)
	if d.cache != nil {
		if err := d.cache.InvalidateUser(ctx, userID); err != nil {
			d.log.Warn("cache cleanup failed", "user", userID, "err", err)
		}
	}
	d.log.Info("account deleted", "user", userID, "photos", len(photos))
	return nil
}
