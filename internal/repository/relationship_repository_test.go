package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/repository"
)

func TestBlock_CreateDeleteExists(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t, 3)
	repo := repository.NewBlockRepository(dbase)

	require.NoError(t, repo.Create(ctx, 1, 2))
	assert.ErrorIs(t, repo.Create(ctx, 1, 2), repository.ErrDuplicate)

	for _, pair := range [][2]uint64{{1, 2}, {2, 1}} {
		blocked, err := repo.Exists(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, blocked, "block is symmetric in effect")
	}

	// the blocked party cannot remove the edge
	deleted, err := repo.Delete(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repo.Delete(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, deleted)

	blocked, err := repo.Exists(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestBlock_Related(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t, 4)
	repo := repository.NewBlockRepository(dbase)

	require.NoError(t, repo.Create(ctx, 1, 2))
	require.NoError(t, repo.Create(ctx, 3, 1))

	ids, err := repo.Related(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3}, ids)
}

func TestMessages_ThreadMarkReadAndUnread(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t, 3)
	repo := repository.NewMessageRepository(dbase)

	base := time.Now().UTC().Truncate(time.Millisecond)
	msgs := []db.Message{
		{FromUserID: 1, ToUserID: 2, Content: "hi", CreatedAt: base},
		{FromUserID: 2, ToUserID: 1, Content: "hello", CreatedAt: base.Add(time.Second)},
		{FromUserID: 2, ToUserID: 1, Content: "how are you", CreatedAt: base.Add(2 * time.Second)},
		{FromUserID: 3, ToUserID: 1, Content: "psst", CreatedAt: base.Add(3 * time.Second)},
	}
	for i := range msgs {
		require.NoError(t, repo.Create(ctx, &msgs[i]))
	}

	unread, err := repo.CountUnread(ctx, 1, []uint64{1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	// unread from a blocked sender is hidden
	unread, err = repo.CountUnread(ctx, 1, []uint64{1, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	page, next, err := repo.Thread(ctx, 1, 2, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.Equal(t, "how are you", page[0].Content)

	page, next, err = repo.Thread(ctx, 2, 1, next, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Nil(t, next)
	assert.Equal(t, "hi", page[0].Content)

	changed, err := repo.MarkRead(ctx, 2, 1, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	var stored db.Message
	require.NoError(t, dbase.First(&stored, msgs[1].ID).Error)
	assert.True(t, stored.IsRead)
	require.NotNil(t, stored.ReadAt)

	// 1 → 2 message stays unread for user 2
	unread, err = repo.CountUnread(ctx, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestUserDelete_Cascades(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t, 3)
	users := repository.NewUserRepository(dbase)
	likes := repository.NewLikeRepository(dbase)

	require.NoError(t, likes.Create(ctx, 1, 2))
	require.NoError(t, likes.Create(ctx, 2, 1))
	require.NoError(t, likes.Create(ctx, 3, 2))
	require.NoError(t, dbase.Create(&db.Block{BlockerID: 3, BlockedUserID: 1}).Error)
	require.NoError(t, dbase.Create(&db.Message{FromUserID: 2, ToUserID: 1, Content: "x"}).Error)
	require.NoError(t, dbase.Create(&db.ContactView{ViewerID: 2, TargetID: 1, Method: "card"}).Error)
	require.NoError(t, dbase.Create(&db.Photo{ID: "p1", UserID: 1, BlobKey: "photos/1/p1", URL: "u"}).Error)

	photos, err := users.Delete(ctx, 1)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "photos/1/p1", photos[0].BlobKey)

	exists, err := users.Exists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, exists)

	mutual, err := likes.IsMutual(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, mutual)

	for _, model := range []any{&db.Block{}, &db.Message{}, &db.ContactView{}, &db.Photo{}} {
		var count int64
		dbase.Model(model).Count(&count)
		assert.Zero(t, count, "%T left behind", model)
	}

	// unrelated edges survive
	var count int64
	dbase.Model(&db.Like{}).Count(&count)
	assert.Equal(t, int64(1), count)

	_, err = users.Delete(ctx, 1)
	assert.True(t, repository.IsNotFound(err))
}
