package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestToastStore(opts ...ToastStoreOption) *ToastStore {
	return NewToastStore(opts...)
}

func TestToastStore_AddAssignsIDAndNotifies(t *testing.T) {
	t.Parallel()

	store := newTestToastStore()

	var notified [][]Toast
	unsubscribe := store.Subscribe(func(toasts []Toast) {
		notified = append(notified, toasts)
	})
	defer unsubscribe()

	id := store.Add(NewToast("saved", ToastTypeSuccess))
	require.NotEmpty(t, id)

	require.Len(t, notified, 1, "subscriber runs before Add returns")
	require.Len(t, notified[0], 1)
	assert.Equal(t, "saved", notified[0][0].Message)
	assert.Equal(t, id, notified[0][0].ID)
}

func TestToastStore_DismissIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestToastStore()
	id := store.Add(NewToast("bye", ToastTypeInfo))

	var notifications int
	unsubscribe := store.Subscribe(func([]Toast) { notifications++ })
	defer unsubscribe()

	store.Dismiss(id)
	assert.Empty(t, store.Snapshot())
	assert.Equal(t, 1, notifications)

	// Second dismissal and unknown IDs are no-ops: no state change, no
	// notification storm.
	store.Dismiss(id)
	store.Dismiss("no-such-id")
	assert.Empty(t, store.Snapshot())
	assert.Equal(t, 1, notifications)
}

func TestToastStore_AutoExpiry(t *testing.T) {
	t.Parallel()

	store := newTestToastStore()
	store.Add(NewToast("short lived", ToastTypeInfo).WithDuration(100 * time.Millisecond))

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, store.Snapshot(), 1, "present before expiry")

	require.Eventually(t, func() bool {
		return store.Len() == 0
	}, time.Second, 10*time.Millisecond, "absent after expiry")
}

func TestToastStore_PersistentToastNeverExpires(t *testing.T) {
	t.Parallel()

	store := newTestToastStore(WithDefaultDuration(20 * time.Millisecond))
	id := store.Add(NewToast("sticky", ToastTypeWarning).Persistent())

	time.Sleep(100 * time.Millisecond)
	require.Len(t, store.Snapshot(), 1)

	store.Dismiss(id)
	assert.Empty(t, store.Snapshot())
}

func TestToastStore_DefaultDurationApplied(t *testing.T) {
	t.Parallel()

	store := newTestToastStore(WithDefaultDuration(30 * time.Millisecond))
	store.Add(NewToast("defaulted", ToastTypeInfo))

	require.Eventually(t, func() bool {
		return store.Len() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestToastStore_OrderingAndClearAll(t *testing.T) {
	t.Parallel()

	store := newTestToastStore()
	store.Add(NewToast("A", ToastTypeInfo).WithDuration(50 * time.Millisecond))
	store.Add(NewToast("B", ToastTypeInfo).WithDuration(50 * time.Millisecond))
	store.Add(NewToast("C", ToastTypeInfo).WithDuration(50 * time.Millisecond))

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, "A", snapshot[0].Message)
	assert.Equal(t, "B", snapshot[1].Message)
	assert.Equal(t, "C", snapshot[2].Message)

	var mu sync.Mutex
	var afterClear int
	unsubscribe := store.Subscribe(func([]Toast) {
		mu.Lock()
		afterClear++
		mu.Unlock()
	})
	defer unsubscribe()

	store.ClearAll()
	assert.Empty(t, store.Snapshot())

	mu.Lock()
	countAtClear := afterClear
	mu.Unlock()
	require.Equal(t, 1, countAtClear)

	// Pending expiry timers were cancelled: no removal notifications fire
	// after the clear.
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, countAtClear, afterClear)
}

func TestToastStore_ClearAllOnEmptyStoreDoesNotNotify(t *testing.T) {
	t.Parallel()

	store := newTestToastStore()
	var notifications int
	unsubscribe := store.Subscribe(func([]Toast) { notifications++ })
	defer unsubscribe()

	store.ClearAll()
	assert.Zero(t, notifications)
}

func TestToastStore_SubscribersRunInRegistrationOrder(t *testing.T) {
	t.Parallel()

	store := newTestToastStore()

	var order []string
	u1 := store.Subscribe(func([]Toast) { order = append(order, "first") })
	defer u1()
	u2 := store.Subscribe(func([]Toast) { order = append(order, "second") })
	defer u2()
	u3 := store.Subscribe(func([]Toast) { order = append(order, "third") })
	defer u3()

	store.Add(NewToast("x", ToastTypeInfo).Persistent())
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestToastStore_Unsubscribe(t *testing.T) {
	t.Parallel()

	store := newTestToastStore()

	var calls int
	unsubscribe := store.Subscribe(func([]Toast) { calls++ })

	store.Add(NewToast("one", ToastTypeInfo).Persistent())
	require.Equal(t, 1, calls)

	unsubscribe()
	store.Add(NewToast("two", ToastTypeInfo).Persistent())
	assert.Equal(t, 1, calls, "unsubscribed callback must not run")
}

func TestToastStore_MarkLeaving(t *testing.T) {
	t.Parallel()

	store := newTestToastStore()
	id := store.Add(NewToast("exiting", ToastTypeInfo).Persistent())

	store.MarkLeaving(id)
	snapshot := store.Snapshot()
	require.Len(t, snapshot, 1)
	assert.True(t, snapshot[0].Leaving)

	// Removal follows after the exit-animation delay.
	require.Eventually(t, func() bool {
		return store.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestToastStore_MarkLeavingUnknownIDIsNoOp(t *testing.T) {
	t.Parallel()

	store := newTestToastStore()
	var notifications int
	unsubscribe := store.Subscribe(func([]Toast) { notifications++ })
	defer unsubscribe()

	store.MarkLeaving("ghost")
	assert.Zero(t, notifications)
}

func TestToastStore_ManualDismissBeatsExpiryTimer(t *testing.T) {
	t.Parallel()

	store := newTestToastStore()
	id := store.Add(NewToast("racy", ToastTypeInfo).WithDuration(50 * time.Millisecond))

	var mu sync.Mutex
	var notifications int
	unsubscribe := store.Subscribe(func([]Toast) {
		mu.Lock()
		notifications++
		mu.Unlock()
	})
	defer unsubscribe()

	store.Dismiss(id)

	// The timer was cancelled before removal; a late fire finds the ID
	// gone. Either way there is exactly one removal notification.
	time.Sleep(120 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, notifications)
}

func TestToastStore_VisibleCapsToMostRecent(t *testing.T) {
	t.Parallel()

	store := newTestToastStore()
	for _, msg := range []string{"1", "2", "3", "4", "5"} {
		store.Add(NewToast(msg, ToastTypeInfo).Persistent())
	}

	assert.Equal(t, 5, store.Len(), "store itself is unbounded")

	visible := store.Visible()
	require.Len(t, visible, DefaultMaxVisibleToasts)
	assert.Equal(t, "3", visible[0].Message)
	assert.Equal(t, "5", visible[2].Message)
}

func TestToastStore_SnapshotIsImmutable(t *testing.T) {
	t.Parallel()

	store := newTestToastStore()
	store.Add(NewToast("original", ToastTypeInfo).Persistent())

	before := store.Snapshot()
	before[0].Message = "mutated"

	after := store.Snapshot()
	assert.Equal(t, "original", after[0].Message)
}

func TestToastStore_SubscriberReentrancy(t *testing.T) {
	t.Parallel()

	store := newTestToastStore()

	// A callback calling back into the store must not deadlock.
	var snapshotLen int
	unsubscribe := store.Subscribe(func(toasts []Toast) {
		snapshotLen = len(store.Snapshot())
	})
	defer unsubscribe()

	store.Add(NewToast("reentrant", ToastTypeInfo).Persistent())
	assert.Equal(t, 1, snapshotLen)
}
