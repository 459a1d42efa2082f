package engine

import (
	"context"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/repository"
)

// Disclosure reasons.
const (
	ReasonSelf          = "self"
	ReasonPublic        = "public"
	ReasonMatched       = "matched"
	ReasonPremium       = "premium"
	ReasonAlreadyViewed = "already_viewed"
	ReasonHidden        = "hidden"
	ReasonMatchedOnly   = "matched_only"
	ReasonPremiumOnly   = "premium_only"
)

// Unlock methods.
const (
	MethodPremium       = repository.MethodPremium
	MethodAlreadyViewed = "already_viewed"
	MethodCard          = repository.MethodCard
)

// Contact holds the disclosed contact fields.
type Contact struct {
	WechatID     *string `json:"wechatId,omitempty"`
	PhoneNumber  *string `json:"phoneNumber,omitempty"`
	ContactEmail *string `json:"contactEmail,omitempty"`
}

// Disclosure is the decision of the visibility gate for one (viewer, owner).
// Contact is set iff Visible.
type Disclosure struct {
	Visible   bool     `json:"visible"`
	Reason    string   `json:"reason"`
	Contact   *Contact `json:"contact,omitempty"`
	CanUnlock bool     `json:"canUnlock"`
}

// UnlockResult is the outcome of Unlock. RemainingCards is set for card spends.
type UnlockResult struct {
	Method         string `json:"method"`
	RemainingCards *int   `json:"remainingCards,omitempty"`
}

// VisibilityGate decides contact disclosure. Entitlement is re-read on every
// call; premium is derived from (status, end_date, now) and never cached.
type VisibilityGate struct {
	*core
	blocks  *BlockFilter
	matches *MatchResolver
}

// ViewContact decides what viewer may see of owner's contact fields. Read only.
//
// Behavior:
//   - self → InvalidTarget; unknown, blocked or private unmatched owner → NotFound.
//   - show_contact=false → reason "hidden" whatever the policy or entitlement.
//   - EVERYONE → visible. MATCHED_ONLY → visible iff matched, no upsell.
//   - PREMIUM_ONLY → visible with a prior unlock or active premium, otherwise
//     "premium_only" with CanUnlock when the viewer holds a card.
func (g *VisibilityGate) ViewContact(ctx context.Context, viewer, owner uint64) (Disclosure, error) {
	if viewer == owner {
		return Disclosure{}, svcErr.InvalidTarget("cannot view your own contact")
	}
	profile, _, err := g.loadTarget(ctx, viewer, owner)
	if err != nil {
		return Disclosure{}, err
	}
	return g.disclose(ctx, viewer, profile)
}

// disclose applies the policy of an already loaded, non-blocked profile.
func (g *VisibilityGate) disclose(ctx context.Context, viewer uint64, p *db.Profile) (Disclosure, error) {
	if !p.ShowContact {
		return Disclosure{Reason: ReasonHidden}, nil
	}

	switch p.ContactVisibility {
	case db.VisibilityEveryone:
		return visible(ReasonPublic, p), nil

	case db.VisibilityMatchedOnly:
		matched, err := g.matches.IsMatched(ctx, viewer, p.UserID)
		if err != nil {
			return Disclosure{}, err
		}
		if matched {
			return visible(ReasonMatched, p), nil
		}
		return Disclosure{Reason: ReasonMatchedOnly}, nil

	default: // PREMIUM_ONLY and anything unrecognised fail closed
		viewed, err := g.repos.Entitlements.HasContactView(ctx, viewer, p.UserID)
		if err != nil {
			return Disclosure{}, err
		}
		if viewed {
			return visible(ReasonAlreadyViewed, p), nil
		}
		premium, err := g.isPremium(ctx, viewer)
		if err != nil {
			return Disclosure{}, err
		}
		if premium {
			return visible(ReasonPremium, p), nil
		}
		cards, err := g.repos.Entitlements.ContactCards(ctx, viewer)
		if err != nil {
			return Disclosure{}, err
		}
		return Disclosure{Reason: ReasonPremiumOnly, CanUnlock: cards > 0}, nil
	}
}

// Unlock makes target's PREMIUM_ONLY contact visible to viewer, spending a
// card when needed.
//
// Behavior:
//   - self → InvalidTarget; unknown, blocked or private unmatched target → NotFound.
//   - Target not sharing, or MATCHED_ONLY → Forbidden (cards cannot buy it).
//   - EVERYONE → InvalidInput; the contact is already public and nothing is spent.
//   - Active premium → "premium", no mutation.
//   - Existing ContactView → "already_viewed", no mutation; retries are free.
//   - No cards → InsufficientCredits (needs_card).
//   - Else one transaction inserts the view and decrements the balance with a
//     compare-and-swap. Losing the view insert race degrades to
//     "already_viewed"; losing the balance race rolls back to InsufficientCredits.
func (g *VisibilityGate) Unlock(ctx context.Context, viewer, target uint64) (UnlockResult, error) {
	if viewer == target {
		return UnlockResult{}, svcErr.InvalidTarget("cannot unlock your own contact")
	}
	profile, _, err := g.loadTarget(ctx, viewer, target)
	if err != nil {
		return UnlockResult{}, err
	}

	switch {
	case !profile.ShowContact:
		return UnlockResult{}, svcErr.Forbidden("contact is not shared")
	case profile.ContactVisibility == db.VisibilityMatchedOnly:
		return UnlockResult{}, svcErr.Forbidden("contact is visible to matches only")
	case profile.ContactVisibility == db.VisibilityEveryone:
		return UnlockResult{}, svcErr.InvalidInput("contact is public")
	}

	premium, err := g.isPremium(ctx, viewer)
	if err != nil {
		return UnlockResult{}, err
	}
	if premium {
		unlocksTotal.WithLabelValues(MethodPremium).Inc()
		return UnlockResult{Method: MethodPremium}, nil
	}

	viewed, err := g.repos.Entitlements.HasContactView(ctx, viewer, target)
	if err != nil {
		return UnlockResult{}, err
	}
	if viewed {
		unlocksTotal.WithLabelValues(MethodAlreadyViewed).Inc()
		return UnlockResult{Method: MethodAlreadyViewed}, nil
	}

	cards, err := g.repos.Entitlements.ContactCards(ctx, viewer)
	if err != nil {
		return UnlockResult{}, err
	}
	if cards <= 0 {
		unlocksTotal.WithLabelValues("insufficient").Inc()
		return UnlockResult{}, svcErr.InsufficientCredits("no contact cards left")
	}

	remaining, err := g.repos.Entitlements.SpendCard(ctx, viewer, target)
	switch {
	case err == repository.ErrDuplicate:
		unlocksTotal.WithLabelValues(MethodAlreadyViewed).Inc()
		return UnlockResult{Method: MethodAlreadyViewed}, nil
	case err == repository.ErrNoCredits:
		unlocksTotal.WithLabelValues("insufficient").Inc()
		return UnlockResult{}, svcErr.InsufficientCredits("no contact cards left")
	case err != nil:
		return UnlockResult{}, err
	}

	unlocksTotal.WithLabelValues(MethodCard).Inc()
	g.log.Info("contact unlocked with card", "viewer", viewer, "target", target, "remaining", remaining)
	return UnlockResult{Method: MethodCard, RemainingCards: &remaining}, nil
}

// IsPremium reports whether userID holds an active subscription right now.
func (g *VisibilityGate) IsPremium(ctx context.Context, userID uint64) (bool, error) {
	return g.isPremium(ctx, userID)
}

func (g *VisibilityGate) isPremium(ctx context.Context, userID uint64) (bool, error) {
	sub, err := g.repos.Entitlements.Subscription(ctx, userID)
	if err != nil {
		return false, err
	}
	return sub.IsPremium(g.clock.Now()), nil
}

// loadTarget loads owner's profile and reports whether the pair is matched.
// Missing, blocked and private-unmatched owners all surface as NotFound.
func (g *VisibilityGate) loadTarget(ctx context.Context, viewer, owner uint64) (*db.Profile, bool, error) {
	blocked, err := g.blocks.IsBlocked(ctx, viewer, owner)
	if err != nil {
		return nil, false, err
	}
	if blocked {
		return nil, false, svcErr.NotFound("profile not found")
	}
	profile, err := g.repos.Profiles.Get(ctx, owner)
	if repository.IsNotFound(err) {
		return nil, false, svcErr.NotFound("profile not found")
	} else if err != nil {
		return nil, false, err
	}
	matched, err := g.matches.IsMatched(ctx, viewer, owner)
	if err != nil {
		return nil, false, err
	}
	if !profile.IsProfilePublic && !matched {
		return nil, false, svcErr.NotFound("profile not found")
	}
	return profile, matched, nil
}

func visible(reason string, p *db.Profile) Disclosure {
	return Disclosure{
		Visible: true,
		Reason:  reason,
		Contact: &Contact{
			WechatID:     p.WechatID,
			PhoneNumber:  p.PhoneNumber,
			ContactEmail: p.ContactEmail,
		},
	}
}
