package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SaveAndGet(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(10)
	notif := NewNotification(TypeInfo, PriorityLow, "title", "message")

	require.NoError(t, store.Save(notif))

	got, err := store.Get(notif.ID)
	require.NoError(t, err)
	assert.Equal(t, notif.ID, got.ID)
	assert.Equal(t, "title", got.Title)

	// The returned value is a copy.
	got.Title = "mutated"
	again, err := store.Get(notif.ID)
	require.NoError(t, err)
	assert.Equal(t, "title", again.Title)
}

func TestInMemoryStore_GetUnknownID(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(10)
	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestInMemoryStore_ListFiltersAndSorts(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(10)

	older := NewNotification(TypeError, PriorityHigh, "old error", "m")
	older.Timestamp = time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(older))

	newer := NewNotification(TypeInfo, PriorityLow, "new info", "m")
	require.NoError(t, store.Save(newer))

	all, err := store.List(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "new info", all[0].Title, "newest first")

	onlyErrors, err := store.List(&FilterOptions{Types: []Type{TypeError}})
	require.NoError(t, err)
	require.Len(t, onlyErrors, 1)
	assert.Equal(t, "old error", onlyErrors[0].Title)

	limited, err := store.List(&FilterOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	offset, err := store.List(&FilterOptions{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, offset)
}

func TestInMemoryStore_ListExcludesToastNotifications(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(10)
	require.NoError(t, store.Save(NewNotification(TypeInfo, PriorityLow, "regular", "m")))
	require.NoError(t, store.Save(NewToast("ephemeral", ToastTypeInfo).ToNotification()))

	results, err := store.List(nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "regular", results[0].Title)
}

func TestInMemoryStore_UnreadCount(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(10)
	notif := NewNotification(TypeInfo, PriorityLow, "t", "m")
	require.NoError(t, store.Save(notif))

	count, err := store.GetUnreadCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	notif.MarkAsRead()
	require.NoError(t, store.Update(notif))

	count, err = store.GetUnreadCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInMemoryStore_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(10)
	notif := NewNotification(TypeInfo, PriorityLow, "t", "m")
	require.NoError(t, store.Save(notif))

	require.NoError(t, store.Delete(notif.ID))
	require.NoError(t, store.Delete(notif.ID))

	count, err := store.GetUnreadCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInMemoryStore_MaxSizeEvictsOldest(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(2)

	first := NewNotification(TypeInfo, PriorityLow, "first", "m")
	first.Timestamp = time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.Save(first))

	second := NewNotification(TypeInfo, PriorityLow, "second", "m")
	second.Timestamp = time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(second))

	third := NewNotification(TypeInfo, PriorityLow, "third", "m")
	require.NoError(t, store.Save(third))

	assert.Equal(t, 2, store.Size())
	_, err := store.Get(first.ID)
	assert.ErrorIs(t, err, ErrNotificationNotFound, "oldest is evicted")
}

func TestInMemoryStore_DeleteExpired(t *testing.T) {
	t.Parallel()

	store := NewInMemoryStore(10)

	expired := NewNotification(TypeInfo, PriorityLow, "expired", "m")
	past := time.Now().Add(-time.Minute)
	expired.ExpiresAt = &past
	require.NoError(t, store.Save(expired))

	alive := NewNotification(TypeInfo, PriorityLow, "alive", "m")
	require.NoError(t, store.Save(alive))

	require.NoError(t, store.DeleteExpired())

	assert.Equal(t, 1, store.Size())
	_, err := store.Get(alive.ID)
	assert.NoError(t, err)
}
