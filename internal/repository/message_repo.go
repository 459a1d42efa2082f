package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/utils/pagination"
)

// MessageRepository stores messages. Rows are immutable except for read state.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create persists msg and fills its ID and CreatedAt.
func (r *MessageRepository) Create(ctx context.Context, msg *db.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return errors.Wrap(err, "create message")
	}
	return nil
}

// Thread returns one page of the conversation between a and b, newest first.
//
// Behavior:
//   - Both directions are included.
//   - Ordered by created_at DESC, id DESC; cursor-based pagination.
func (r *MessageRepository) Thread(
	ctx context.Context,
	a, b uint64,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	var messages []db.Message

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", a, b, b, a).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := cursor.CreatedAt()
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", ts, ts, cursor.ID)
	}

	if err := query.Find(&messages).Error; err != nil {
		return nil, nil, errors.Wrap(err, "load thread")
	}

	var nextToken *string
	if len(messages) > limit {
		last := messages[limit-1]
		token, _ := pagination.Encode(pagination.From(last.ID, last.CreatedAt))
		nextToken = &token
		messages = messages[:limit]
	}
	return messages, nextToken, nil
}

// MarkRead flips every unread from → to message to read and returns how many changed.
func (r *MessageRepository) MarkRead(ctx context.Context, from, to uint64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("from_user_id = ? AND to_user_id = ? AND is_read = ?", from, to, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "mark messages read")
	}
	return res.RowsAffected, nil
}

// CountUnread counts unread messages addressed to userID, ignoring senders in exclude.
func (r *MessageRepository) CountUnread(ctx context.Context, userID uint64, exclude []uint64) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("to_user_id = ? AND is_read = ?", userID, false)
	if len(exclude) > 0 {
		query = query.Where("from_user_id NOT IN ?", exclude)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "count unread")
	}
	return count, nil
}
