package engine

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
)

// MaxMessageRunes bounds a message body.
const MaxMessageRunes = 2000

// Message is the wire view of a stored message.
type Message struct {
	ID         uint64     `json:"id"`
	FromUserID uint64     `json:"fromUserId"`
	ToUserID   uint64     `json:"toUserId"`
	Content    string     `json:"content"`
	IsRead     bool       `json:"isRead"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func toMessage(m db.Message) Message {
	return Message{
		ID:         m.ID,
		FromUserID: m.FromUserID,
		ToUserID:   m.ToUserID,
		Content:    m.Content,
		IsRead:     m.IsRead,
		ReadAt:     m.ReadAt,
		CreatedAt:  m.CreatedAt,
	}
}

// MessagingGate allows messages only between matched, non-blocked pairs.
// State is evaluated fresh on every call.
type MessagingGate struct {
	*core
	blocks  *BlockFilter
	matches *MatchResolver
}

// Send persists a message from → to.
//
// Behavior:
//   - self → InvalidTarget; empty or over-long content → InvalidInput.
//   - Block is checked before match. Both reject with Forbidden, but a
//     blocked pair gets the generic message so the block is never revealed;
//     the real reason is only logged.
//   - No push; the recipient sees the message on their next thread read.
func (g *MessagingGate) Send(ctx context.Context, from, to uint64, content string) (Message, error) {
	if from == to {
		return Message{}, svcErr.InvalidTarget("cannot message yourself")
	}
	if strings.TrimSpace(content) == "" {
		return Message{}, svcErr.InvalidInput("message content is empty")
	}
	if utf8.RuneCountInString(content) > MaxMessageRunes {
		return Message{}, svcErr.InvalidInput("message content is too long")
	}
	if err := g.requireUser(ctx, to, "user not found"); err != nil {
		return Message{}, err
	}

	blocked, err := g.blocks.IsBlocked(ctx, from, to)
	if err != nil {
		return Message{}, err
	}
	if blocked {
		messagesTotal.WithLabelValues("blocked").Inc()
		g.log.Info("message rejected", "from", from, "to", to, "reason", "blocked")
		return Message{}, svcErr.Forbidden("messaging is not allowed")
	}

	matched, err := g.matches.IsMatched(ctx, from, to)
	if err != nil {
		return Message{}, err
	}
	if !matched {
		messagesTotal.WithLabelValues("not_matched").Inc()
		g.log.Info("message rejected", "from", from, "to", to, "reason", "not_matched")
		return Message{}, svcErr.Forbidden("you must match before messaging")
	}

	msg := db.Message{FromUserID: from, ToUserID: to, Content: content}
	if err := g.repos.Messages.Create(ctx, &msg); err != nil {
		return Message{}, err
	}
	messagesTotal.WithLabelValues("sent").Inc()
	return toMessage(msg), nil
}

// Thread returns one page of the reader's conversation with other, newest first.
//
// Side effect: every unread other → reader message is marked read (and
// stamped with read_at) before the page is loaded, so the page already
// reflects it. Blocked pair → Forbidden.
func (g *MessagingGate) Thread(ctx context.Context, reader, other uint64, pageToken *string) ([]Message, *string, error) {
	if reader == other {
		return nil, nil, svcErr.InvalidTarget("cannot open a thread with yourself")
	}
	blocked, err := g.blocks.IsBlocked(ctx, reader, other)
	if err != nil {
		return nil, nil, err
	}
	if blocked {
		return nil, nil, svcErr.Forbidden("messaging is not allowed")
	}

	changed, err := g.repos.Messages.MarkRead(ctx, other, reader, g.clock.Now())
	if err != nil {
		return nil, nil, err
	}
	if changed > 0 {
		g.log.Debug("messages marked read", "reader", reader, "from", other, "count", changed)
	}

	rows, next, err := g.repos.Messages.Thread(ctx, reader, other, pageToken, g.opts.PageSize)
	if err != nil {
		return nil, nil, pageError(err)
	}
	out := make([]Message, len(rows))
	for i, m := range rows {
		out[i] = toMessage(m)
	}
	return out, next, nil
}

// CountUnread counts unread messages to reader from senders that are not blocked.
func (g *MessagingGate) CountUnread(ctx context.Context, reader uint64) (int64, error) {
	excluded, err := g.blocks.ExclusionSet(ctx, reader)
	if err != nil {
		return 0, err
	}
	return g.repos.Messages.CountUnread(ctx, reader, excluded.IDs())
}
