package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/muzz-match/internal/db"
)

// Unlock methods recorded on a ContactView.
const (
	MethodPremium = "premium"
	MethodCard    = "card"
)

// EntitlementRepository owns subscriptions, the contact-card balance and the
// contact-view log.
type EntitlementRepository struct {
	db *gorm.DB
}

func NewEntitlementRepository(database *gorm.DB) *EntitlementRepository {
	return &EntitlementRepository{db: database}
}

// Subscription returns the user's subscription, or nil when there is none.
func (r *EntitlementRepository) Subscription(ctx context.Context, userID uint64) (*db.Subscription, error) {
	var sub db.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load subscription")
	}
	return &sub, nil
}

// ContactCards returns the user's card balance. Missing user → gorm.ErrRecordNotFound.
func (r *EntitlementRepository) ContactCards(ctx context.Context, userID uint64) (int, error) {
	var user db.User
	err := r.db.WithContext(ctx).Select("id", "contact_cards").Where("id = ?", userID).Take(&user).Error
	if err != nil {
		return 0, errors.Wrapf(err, "load contact cards of %d", userID)
	}
	return user.ContactCards, nil
}

// HasContactView reports whether viewer already unlocked target.
func (r *EntitlementRepository) HasContactView(ctx context.Context, viewer, target uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.ContactView{}).
		Where("viewer_id = ? AND target_id = ?", viewer, target).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check contact view")
	}
	return count > 0, nil
}

// SpendCard unlocks target for viewer with one contact card and returns the
// remaining balance.
//
// Behavior:
//   - Runs in one transaction: insert ContactView, then decrement the balance
//     with a conditional UPDATE (contact_cards > 0).
//   - View already present (a concurrent unlock won) → ErrDuplicate, nothing spent.
//   - Balance already zero → ErrNoCredits, the view insert is rolled back.
func (r *EntitlementRepository) SpendCard(ctx context.Context, viewer, target uint64) (int, error) {
	var remaining int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		view := db.ContactView{ViewerID: viewer, TargetID: target, Method: MethodCard}
		if err := tx.Create(&view).Error; err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return errors.Wrap(err, "create contact view")
		}

		res := tx.Model(&db.User{}).
			Where("id = ? AND contact_cards > 0", viewer).
			UpdateColumn("contact_cards", gorm.Expr("contact_cards - 1"))
		if res.Error != nil {
			return errors.Wrap(res.Error, "decrement contact cards")
		}
		if res.RowsAffected == 0 {
			return ErrNoCredits
		}

		var user db.User
		if err := tx.Select("id", "contact_cards").Where("id = ?", viewer).Take(&user).Error; err != nil {
			return errors.Wrap(err, "reload contact cards")
		}
		remaining = user.ContactCards
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// AddCards credits n contact cards to userID.
func (r *EntitlementRepository) AddCards(ctx context.Context, userID uint64, n int) error {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		UpdateColumn("contact_cards", gorm.Expr("contact_cards + ?", n))
	if res.Error != nil {
		return errors.Wrap(res.Error, "add contact cards")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(gorm.ErrRecordNotFound, "user %d", userID)
	}
	return nil
}

// GrantSubscription creates or replaces the user's subscription.
func (r *EntitlementRepository) GrantSubscription(
	ctx context.Context,
	userID uint64,
	plan, status string,
	start, end time.Time,
) error {
	sub := db.Subscription{UserID: userID, Plan: plan, Status: status, StartDate: start, EndDate: end}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"plan", "status", "start_date", "end_date", "updated_at"}),
		}).
		Create(&sub).Error
	if err != nil {
		return errors.Wrap(err, "grant subscription")
	}
	return nil
}
