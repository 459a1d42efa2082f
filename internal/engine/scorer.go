package engine

import (
	"context"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/repository"
)

// Score weights of the daily pick heuristic.
const (
	scoreSamePrefecture = 10
	scoreCloseAge       = 5
	scoreBio            = 3
	scorePhoto          = 5
	scoreRandomSpan     = 10

	closeAgeYears = 5
	minBioRunes   = 10
)

// DailyPick is today's recommendation. Profile is nil when nothing is eligible.
type DailyPick struct {
	Date    string          `json:"date"`
	Profile *ProfileSummary `json:"profile,omitempty"`
}

// DailyScorer selects and remembers one recommendation per user per day.
type DailyScorer struct {
	*core
	blocks *BlockFilter
}

// DayKey normalizes t to its calendar day in loc. The key is stored as a
// date at UTC midnight so every driver compares it the same way.
func DayKey(t time.Time, loc *time.Location) datatypes.Date {
	y, m, d := t.In(loc).Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func dayString(day datatypes.Date) string {
	return time.Time(day).Format(time.DateOnly)
}

// Score rates candidate for viewer at now, random term included.
//
//	+10 same prefecture, +5 age gap ≤ 5 years, +3 bio over 10 runes,
//	+5 at least one photo, + rand in [0,10)
func Score(viewer, candidate *db.Profile, now time.Time, rnd RandSource) float64 {
	var s float64
	if viewer.Prefecture != "" && viewer.Prefecture == candidate.Prefecture {
		s += scoreSamePrefecture
	}
	va, vok := ageAt(viewer.BirthDate, now)
	ca, cok := ageAt(candidate.BirthDate, now)
	if vok && cok && abs(va-ca) <= closeAgeYears {
		s += scoreCloseAge
	}
	if utf8.RuneCountInString(candidate.Bio) > minBioRunes {
		s += scoreBio
	}
	if len(candidate.Photos) > 0 {
		s += scorePhoto
	}
	return s + rnd.Float64()*scoreRandomSpan
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// GetDailyPick returns userID's recommendation for today.
//
// Behavior:
//  1. "Today" is the calendar day of Clock.Now() in Options.Location.
//  2. A pick already stored for today (Redis first, then DB) is returned as
//     is. If its target has since become blocked or private, no pick is
//     returned and nothing is rewritten.
//  3. Otherwise exclusions are self, block exclusions, everyone already liked
//     and every target picked within the last RecommendWindow days.
//  4. The pool is public profiles of TargetGenders minus exclusions. Empty
//     pool → no pick and nothing persisted.
//  5. The best Score wins and is persisted with Claim; when a concurrent call
//     stored first, its pick is returned instead.
func (s *DailyScorer) GetDailyPick(ctx context.Context, userID uint64) (DailyPick, error) {
	now := s.clock.Now()
	day := DayKey(now, s.opts.Location)
	pick := DailyPick{Date: dayString(day)}

	viewer, err := s.repos.Profiles.Get(ctx, userID)
	if repository.IsNotFound(err) {
		return pick, svcErr.NotFound("profile not found")
	} else if err != nil {
		return pick, err
	}

	targetID, found, err := s.storedPick(ctx, userID, day)
	if err != nil {
		return pick, err
	}
	if found {
		summary, err := s.resolveStored(ctx, userID, targetID, now)
		if err != nil {
			return pick, err
		}
		pick.Profile = summary
		dailyPicksTotal.WithLabelValues("cached").Inc()
		return pick, nil
	}

	excluded, err := s.exclusions(ctx, userID, day)
	if err != nil {
		return pick, err
	}
	candidates, err := s.repos.Profiles.Candidates(ctx, repository.CandidateFilter{
		Exclude: excluded.IDs(),
		Genders: TargetGenders(viewer.Gender, viewer.LookingFor),
	})
	if err != nil {
		return pick, err
	}

	var (
		best      *db.Profile
		bestScore float64
	)
	for i := range candidates {
		c := &candidates[i]
		if excluded.Contains(c.UserID) {
			continue
		}
		score := Score(viewer, c, now, s.rand)
		if best == nil || score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == nil {
		dailyPicksTotal.WithLabelValues("empty").Inc()
		return pick, nil
	}

	stored, err := s.repos.Recommendations.Claim(ctx, &db.DailyRecommendation{
		UserID:   userID,
		Date:     day,
		TargetID: best.UserID,
		Score:    bestScore,
	})
	if err != nil {
		return pick, err
	}
	s.cachePick(ctx, userID, day, stored.TargetID)

	if stored.TargetID != best.UserID {
		// a concurrent call won the (user, day) slot
		summary, err := s.resolveStored(ctx, userID, stored.TargetID, now)
		if err != nil {
			return pick, err
		}
		pick.Profile = summary
		dailyPicksTotal.WithLabelValues("raced").Inc()
		return pick, nil
	}

	summary := Summarize(best.UserID, best, now)
	pick.Profile = &summary
	dailyPicksTotal.WithLabelValues("picked").Inc()
	s.log.Debug("daily pick stored", "user", userID, "date", pick.Date, "target", best.UserID, "score", bestScore)
	return pick, nil
}

// storedPick looks up today's target in Redis, then in the DB.
func (s *DailyScorer) storedPick(ctx context.Context, userID uint64, day datatypes.Date) (uint64, bool, error) {
	if s.cache != nil {
		target, ok, err := s.cache.GetDailyPick(ctx, userID, dayString(day))
		if err != nil {
			s.log.Warn("daily pick cache read failed", "user", userID, "err", err)
		} else if ok {
			return target, true, nil
		}
	}

	rec, err := s.repos.Recommendations.ForDay(ctx, userID, day)
	if err != nil {
		return 0, false, err
	}
	if rec == nil {
		return 0, false, nil
	}
	s.cachePick(ctx, userID, day, rec.TargetID)
	return rec.TargetID, true, nil
}

// resolveStored loads a stored target, hiding it if it is no longer eligible.
func (s *DailyScorer) resolveStored(ctx context.Context, userID, targetID uint64, now time.Time) (*ProfileSummary, error) {
	blocked, err := s.blocks.IsBlocked(ctx, userID, targetID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, nil
	}
	target, err := s.repos.Profiles.Get(ctx, targetID)
	if repository.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if !target.IsProfilePublic {
		return nil, nil
	}
	summary := Summarize(targetID, target, now)
	return &summary, nil
}

func (s *DailyScorer) exclusions(ctx context.Context, userID uint64, day datatypes.Date) (ExclusionSet, error) {
	excluded, err := s.blocks.ExclusionSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	liked, err := s.repos.Likes.LikedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	excluded.Add(liked...)

	since := datatypes.Date(time.Time(day).AddDate(0, 0, -s.opts.RecommendWindow))
	recent, err := s.repos.Recommendations.RecentTargets(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	excluded.Add(recent...)
	return excluded, nil
}

func (s *DailyScorer) cachePick(ctx context.Context, userID uint64, day datatypes.Date, targetID uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetDailyPick(ctx, userID, dayString(day), targetID); err != nil {
		s.log.Warn("daily pick cache write failed", "user", userID, "err", err)
	}
}
