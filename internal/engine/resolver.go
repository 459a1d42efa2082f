package engine

import (
	"context"
	"time"

	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/repository"
)

// LikeResult is the outcome of RecordLike.
type LikeResult struct {
	Created bool `json:"created"`
	IsMatch bool `json:"isMatch"`
}

// LikeItem is one row of a likes listing.
type LikeItem struct {
	Profile ProfileSummary `json:"profile"`
	LikedAt time.Time      `json:"likedAt"`
	IsMatch bool           `json:"isMatch"`
}

// MatchResolver turns directional likes into the derived match relation.
// A match is never stored; it is both edges existing.
type MatchResolver struct {
	*core
	blocks *BlockFilter
}

// RecordLike stores from → to and reports whether it completed a match.
//
// Behavior:
//   - self → InvalidTarget.
//   - Unknown caller or target, or a block in either direction → NotFound, so
//     a blocked user cannot tell the block from a missing account.
//   - Existing edge → Conflict; the primary key decides under concurrency.
//   - isMatch is true iff to → from already exists.
//
// Example:
//
//	res, err := resolver.RecordLike(ctx, 1, 2) // res.IsMatch when 2 liked 1 earlier
func (m *MatchResolver) RecordLike(ctx context.Context, from, to uint64) (LikeResult, error) {
	if from == to {
		likesTotal.WithLabelValues("self").Inc()
		return LikeResult{}, svcErr.InvalidTarget("cannot like yourself")
	}
	if err := m.requireUser(ctx, from, "caller not found"); err != nil {
		return LikeResult{}, err
	}
	if err := m.requireUser(ctx, to, "user not found"); err != nil {
		return LikeResult{}, err
	}
	blocked, err := m.blocks.IsBlocked(ctx, from, to)
	if err != nil {
		return LikeResult{}, err
	}
	if blocked {
		likesTotal.WithLabelValues("blocked").Inc()
		return LikeResult{}, svcErr.NotFound("user not found")
	}

	if err := m.repos.Likes.Create(ctx, from, to); err != nil {
		if err == repository.ErrDuplicate {
			likesTotal.WithLabelValues("duplicate").Inc()
			return LikeResult{}, svcErr.Conflict("already liked")
		}
		return LikeResult{}, err
	}
	likesTotal.WithLabelValues("created").Inc()
	m.invalidateLikeCounts(ctx, to)

	isMatch, err := m.repos.Likes.HasLiked(ctx, to, from)
	if err != nil {
		return LikeResult{}, err
	}
	if isMatch {
		matchesTotal.Inc()
		m.log.Info("match formed", "a", from, "b", to)
	}
	return LikeResult{Created: true, IsMatch: isMatch}, nil
}

// IsMatched reports whether a and b liked each other. Pure read.
func (m *MatchResolver) IsMatched(ctx context.Context, a, b uint64) (bool, error) {
	return m.repos.Likes.IsMutual(ctx, a, b)
}

// ListLikes returns one page of likes userID received or sent.
//
// Behavior:
//   - Counterparts in the block exclusion set are dropped.
//   - IsMatch is computed per item from the reverse edge, never stored.
func (m *MatchResolver) ListLikes(
	ctx context.Context,
	userID uint64,
	direction repository.Direction,
	pageToken *string,
) ([]LikeItem, *string, error) {
	if direction != repository.DirectionReceived && direction != repository.DirectionSent {
		return nil, nil, svcErr.InvalidInput("direction must be received or sent")
	}
	excluded, err := m.blocks.ExclusionSet(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	likes, next, err := m.repos.Likes.List(ctx, userID, direction, excluded.IDs(), pageToken, m.opts.PageSize)
	if err != nil {
		return nil, nil, pageError(err)
	}

	counterparts := make([]uint64, len(likes))
	for i, l := range likes {
		counterparts[i] = l.FromUserID
		if direction == repository.DirectionSent {
			counterparts[i] = l.ToUserID
		}
	}
	reverse, err := m.repos.Likes.ReverseEdges(ctx, userID, direction, counterparts)
	if err != nil {
		return nil, nil, err
	}
	profiles, err := m.repos.Profiles.ByIDs(ctx, counterparts)
	if err != nil {
		return nil, nil, err
	}

	now := m.clock.Now()
	items := make([]LikeItem, len(likes))
	for i, l := range likes {
		id := counterparts[i]
		items[i] = LikeItem{
			Profile: Summarize(id, profiles[id], now),
			LikedAt: l.CreatedAt,
			IsMatch: reverse[id],
		}
	}
	return items, next, nil
}

// CountLikesReceived returns how many non-blocked users liked userID.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:userID).
//  2. On a miss, counts in the DB and stores the result with a 1h TTL,
//     unless a like or block invalidated the count while it was being read.
func (m *MatchResolver) CountLikesReceived(ctx context.Context, userID uint64) (int64, error) {
	var version int64
	cacheable := m.cache != nil
	if cacheable {
		if n, ok, err := m.cache.GetLikeCount(ctx, userID); err == nil && ok {
			return n, nil
		} else if err != nil {
			m.log.Warn("like count cache read failed", "user", userID, "err", err)
		}
		v, err := m.cache.LikeCountVersion(ctx, userID)
		if err != nil {
			m.log.Warn("like count cache version read failed", "user", userID, "err", err)
			cacheable = false
		}
		version = v
	}

	excluded, err := m.blocks.ExclusionSet(ctx, userID)
	if err != nil {
		return 0, err
	}
	count, err := m.repos.Likes.CountReceived(ctx, userID, excluded.IDs())
	if err != nil {
		return 0, err
	}

	if cacheable {
		if _, err := m.cache.UpdateLikeCountIfVersion(ctx, userID, count, version); err != nil {
			m.log.Warn("like count cache write failed", "user", userID, "err", err)
		}
	}
	return count, nil
}
