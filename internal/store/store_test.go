package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/breedchat/internal/db"
	"github.com/vbonduro/breedchat/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// stepClock makes now advance one second per call so orderings are stable.
func stepClock(t *testing.T) {
	orig := now
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time {
		ts = ts.Add(time.Second)
		return ts
	}
	t.Cleanup(func() { now = orig })
}

func TestUserStoreSync(t *testing.T) {
	stepClock(t)
	s := NewUserStore(openTestDB(t))
	ctx := context.Background()

	created, err := s.Sync(ctx, "a@example.com", "sb-1")
	require.NoError(t, err)
	assert.True(t, created)

	first, err := s.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "sb-1", first.SupabaseID)
	assert.Equal(t, "user", first.Role)

	created, err = s.Sync(ctx, "a@example.com", "sb-2")
	require.NoError(t, err)
	assert.False(t, created)

	second, err := s.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "sb-2", second.SupabaseID)
	assert.True(t, second.LastLogin.After(first.LastLogin))
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
}

func TestUserStoreGetByEmailMissing(t *testing.T) {
	s := NewUserStore(openTestDB(t))
	u, err := s.GetByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestSessionStoreCreateDeactivatesOthers(t *testing.T) {
	stepClock(t)
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()

	a, err := s.Create(ctx, "u1", "first")
	require.NoError(t, err)
	b, err := s.Create(ctx, "u1", "second")
	require.NoError(t, err)
	other, err := s.Create(ctx, "u2", "theirs")
	require.NoError(t, err)

	gotA, err := s.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, gotA.IsActive)

	gotB, err := s.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, gotB.IsActive)
	assert.Equal(t, 0, gotB.MessageCount)

	gotOther, err := s.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, gotOther.IsActive)
}

func TestSessionStoreGetByIDMissing(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	sess, err := s.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSessionStoreListByUserOrderAndPreview(t *testing.T) {
	stepClock(t)
	d := openTestDB(t)
	sessions := NewSessionStore(d)
	messages := NewMessageStore(d)
	ctx := context.Background()

	a, err := sessions.Create(ctx, "u1", "a")
	require.NoError(t, err)
	b, err := sessions.Create(ctx, "u1", "b")
	require.NoError(t, err)

	_, err = messages.Append(ctx, a.ID, "u1", domain.RoleUser, "hello", nil)
	require.NoError(t, err)
	_, err = messages.Append(ctx, a.ID, "u1", domain.RoleBot, "hi there", nil)
	require.NoError(t, err)

	list, err := sessions.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, "hi there", list[0].LastMessage)
	assert.Equal(t, 2, list[0].MessageCount)
	assert.Equal(t, b.ID, list[1].ID)
	assert.Empty(t, list[1].LastMessage)

	none, err := sessions.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSessionStoreRename(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()

	sess, err := s.Create(ctx, "u1", "old")
	require.NoError(t, err)
	require.NoError(t, s.Rename(ctx, sess.ID, "new"))

	got, err := s.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)

	assert.ErrorIs(t, s.Rename(ctx, "missing", "x"), ErrNotFound)
}

func TestSessionStoreDeleteRemovesMessages(t *testing.T) {
	d := openTestDB(t)
	sessions := NewSessionStore(d)
	messages := NewMessageStore(d)
	ctx := context.Background()

	sess, err := sessions.Create(ctx, "u1", "chat")
	require.NoError(t, err)
	_, err = messages.Append(ctx, sess.ID, "u1", domain.RoleUser, "hello", nil)
	require.NoError(t, err)

	require.NoError(t, sessions.Delete(ctx, sess.ID))

	got, err := sessions.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	msgs, err := messages.ListBySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.ErrorIs(t, sessions.Delete(ctx, sess.ID), ErrNotFound)
}

func TestSessionStoreSetActive(t *testing.T) {
	stepClock(t)
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()

	a, err := s.Create(ctx, "u1", "a")
	require.NoError(t, err)
	b, err := s.Create(ctx, "u1", "b")
	require.NoError(t, err)

	require.NoError(t, s.SetActive(ctx, a.ID, "u1"))

	gotA, err := s.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, gotA.IsActive)
	gotB, err := s.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, gotB.IsActive)

	// another user's session cannot be activated, and nothing changes
	assert.ErrorIs(t, s.SetActive(ctx, b.ID, "u2"), ErrNotFound)
	gotA, err = s.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, gotA.IsActive)
}

func TestMessageStoreAppendAndList(t *testing.T) {
	stepClock(t)
	d := openTestDB(t)
	sessions := NewSessionStore(d)
	messages := NewMessageStore(d)
	ctx := context.Background()

	sess, err := sessions.Create(ctx, "u1", "chat")
	require.NoError(t, err)

	key := "abc.jpg"
	first, err := messages.Append(ctx, sess.ID, "u1", domain.RoleUser, "what breed?", &key)
	require.NoError(t, err)
	_, err = messages.Append(ctx, sess.ID, "u1", domain.RoleBot, "a beagle", nil)
	require.NoError(t, err)

	msgs, err := messages.ListBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	require.NotNil(t, msgs[0].ImageKey)
	assert.Equal(t, "abc.jpg", *msgs[0].ImageKey)
	assert.Nil(t, msgs[1].ImageKey)
	assert.Equal(t, domain.RoleBot, msgs[1].Role)

	byUser, err := messages.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	got, err := sessions.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)
	assert.True(t, got.UpdatedAt.After(sess.UpdatedAt))
}

func TestMessageStoreAppendUnknownSession(t *testing.T) {
	messages := NewMessageStore(openTestDB(t))
	_, err := messages.Append(context.Background(), "missing", "u1", domain.RoleUser, "hi", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderStoreCreateAndList(t *testing.T) {
	stepClock(t)
	s := NewOrderStore(openTestDB(t))
	ctx := context.Background()

	older, err := s.Create(ctx, "u1", []domain.OrderItem{
		{ProductID: "p1", Name: "Kibble", Price: 12.5, Quantity: 2},
		{ProductID: "p2", Name: "Leash", Price: 8, Quantity: 1, Image: "leash.png"},
	}, 33)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPlaced, older.Status)

	newer, err := s.Create(ctx, "u1", []domain.OrderItem{
		{ProductID: "p3", Name: "Bowl", Price: 5, Quantity: 1},
	}, 5)
	require.NoError(t, err)

	_, err = s.Create(ctx, "u2", []domain.OrderItem{{ProductID: "p1", Name: "Kibble", Price: 12.5, Quantity: 1}}, 12.5)
	require.NoError(t, err)

	orders, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)

	require.Len(t, orders[1].Items, 2)
	assert.Equal(t, "Kibble", orders[1].Items[0].Name)
	assert.Equal(t, 2, orders[1].Items[0].Quantity)
	assert.Equal(t, "leash.png", orders[1].Items[1].Image)
	assert.InDelta(t, 33.0, orders[1].Total, 1e-9)

	none, err := s.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
