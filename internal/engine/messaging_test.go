package engine_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-match/internal/db/dbtest"
	"github.com/oggyb/muzz-match/internal/engine"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
)

func TestSend_RequiresMatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.users(t, dbtest.Fixture{ID: 1}, dbtest.Fixture{ID: 2})

	_, err := h.eng.Messaging.Send(ctx, 1, 2, "hi")
	assert.ErrorIs(t, err, svcErr.ErrForbidden)
	assert.Contains(t, err.Error(), "match")

	h.like(t, 1, 2)
	_, err = h.eng.Messaging.Send(ctx, 1, 2, "hi")
	assert.ErrorIs(t, err, svcErr.ErrForbidden, "one-way like is not enough")

	h.like(t, 2, 1)
	msg, err := h.eng.Messaging.Send(ctx, 1, 2, "hi")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.Equal(t, uint64(1), msg.FromUserID)
	assert.Equal(t, uint64(2), msg.ToUserID)
	assert.False(t, msg.IsRead)
}

func TestSend_BlockBeatsMatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.users(t, dbtest.Fixture{ID: 1}, dbtest.Fixture{ID: 2})
	h.match(t, 1, 2)

	require.NoError(t, h.eng.Blocks.Block(ctx, 2, 1))

	_, err := h.eng.Messaging.Send(ctx, 1, 2, "hello?")
	assert.ErrorIs(t, err, svcErr.ErrForbidden)
	assert.NotContains(t, err.Error(), "block", "the block is never revealed")

	_, err = h.eng.Messaging.Send(ctx, 2, 1, "bye")
	assert.ErrorIs(t, err, svcErr.ErrForbidden)

	_, _, err = h.eng.Messaging.Thread(ctx, 1, 2, nil)
	assert.ErrorIs(t, err, svcErr.ErrForbidden)

	// the match resumes after the block is lifted
	require.NoError(t, h.eng.Blocks.Unblock(ctx, 2, 1))
	_, err = h.eng.Messaging.Send(ctx, 1, 2, "hello again")
	assert.NoError(t, err)
}

func TestSend_ContentValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.users(t, dbtest.Fixture{ID: 1}, dbtest.Fixture{ID: 2})
	h.match(t, 1, 2)

	for name, content := range map[string]string{
		"empty":      "",
		"whitespace": " \n\t ",
		"too long":   strings.Repeat("あ", engine.MaxMessageRunes+1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.eng.Messaging.Send(ctx, 1, 2, content)
			assert.ErrorIs(t, err, svcErr.ErrInvalidInput)
		})
	}

	_, err := h.eng.Messaging.Send(ctx, 1, 2, strings.Repeat("あ", engine.MaxMessageRunes))
	assert.NoError(t, err, "limit counts runes, not bytes")

	_, err = h.eng.Messaging.Send(ctx, 1, 1, "me")
	assert.ErrorIs(t, err, svcErr.ErrInvalidTarget)

	_, err = h.eng.Messaging.Send(ctx, 1, 42, "ghost")
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestThread_MarksIncomingRead(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.users(t, dbtest.Fixture{ID: 1}, dbtest.Fixture{ID: 2})
	h.match(t, 1, 2)

	for _, body := range []string{"one", "two", "three"} {
		_, err := h.eng.Messaging.Send(ctx, 2, 1, body)
		require.NoError(t, err)
	}
	_, err := h.eng.Messaging.Send(ctx, 1, 2, "reply")
	require.NoError(t, err)

	unread, err := h.eng.Messaging.CountUnread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	msgs, next, err := h.eng.Messaging.Thread(ctx, 1, 2, nil)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, msgs, 4)
	for _, m := range msgs {
		if m.ToUserID == 1 {
			assert.True(t, m.IsRead, "page reflects the read marks")
			require.NotNil(t, m.ReadAt)
			assert.True(t, m.ReadAt.Equal(testNow))
		} else {
			assert.False(t, m.IsRead, "own messages stay unread until 2 opens the thread")
		}
	}

	unread, err = h.eng.Messaging.CountUnread(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, unread)

	unread, err = h.eng.Messaging.CountUnread(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestCountUnread_SkipsBlockedSenders(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.users(t, dbtest.Fixture{ID: 1}, dbtest.Fixture{ID: 2}, dbtest.Fixture{ID: 3})
	h.match(t, 1, 2)
	h.match(t, 1, 3)

	_, err := h.eng.Messaging.Send(ctx, 2, 1, "from two")
	require.NoError(t, err)
	_, err = h.eng.Messaging.Send(ctx, 3, 1, "from three")
	require.NoError(t, err)

	require.NoError(t, h.eng.Blocks.Block(ctx, 1, 3))
	unread, err := h.eng.Messaging.CountUnread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}
