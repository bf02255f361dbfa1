package notification

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		message   string
		toastType ToastType
	}{
		{name: "info toast", message: "Information message", toastType: ToastTypeInfo},
		{name: "success toast", message: "Success message", toastType: ToastTypeSuccess},
		{name: "warning toast", message: "Warning message", toastType: ToastTypeWarning},
		{name: "error toast", message: "Error message", toastType: ToastTypeError},
		{name: "default toast", message: "Plain message", toastType: ToastTypeDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			toast := NewToast(tt.message, tt.toastType)

			assert.Equal(t, tt.message, toast.Message)
			assert.Equal(t, tt.toastType, toast.Type)
			assert.True(t, toast.Dismissible)
			assert.NotEmpty(t, toast.ID, "should generate a non-empty ID")
			assert.True(t, strings.HasPrefix(toast.ID, "toast-"),
				"id should carry the sequence prefix, got %q", toast.ID)

			assert.WithinDuration(t, time.Now(), toast.Timestamp, time.Second,
				"timestamp should be recent")
		})
	}
}

func TestNewToast_IDsAreSequenced(t *testing.T) {
	t.Parallel()

	// Ids combine a monotonic counter with the creation timestamp, so
	// toasts created in a same-millisecond burst still get distinct,
	// creation-ordered ids.
	const n = 10
	seen := make(map[string]bool, n)
	var sequences []uint64
	for range n {
		toast := NewToast("burst", ToastTypeInfo)
		assert.False(t, seen[toast.ID], "duplicate id %q", toast.ID)
		seen[toast.ID] = true

		parts := strings.SplitN(strings.TrimPrefix(toast.ID, "toast-"), "-", 2)
		require.Len(t, parts, 2)
		seq, err := strconv.ParseUint(parts[0], 10, 64)
		require.NoError(t, err)
		sequences = append(sequences, seq)
	}

	for i := 1; i < len(sequences); i++ {
		assert.Greater(t, sequences[i], sequences[i-1], "sequence must increase")
	}
}

func TestToast_Chaining(t *testing.T) {
	t.Parallel()

	toast := NewToast("chained message", ToastTypeSuccess).
		WithDuration(2 * time.Second).
		WithComponent("settings").
		WithAction("View Details", "/details", "handleView")

	assert.Equal(t, "chained message", toast.Message)
	assert.Equal(t, ToastTypeSuccess, toast.Type)
	assert.Equal(t, 2*time.Second, toast.Duration)
	assert.Equal(t, "settings", toast.Component)
	require.NotNil(t, toast.Action)
	assert.Equal(t, "View Details", toast.Action.Label)
	assert.Equal(t, "/details", toast.Action.URL)
	assert.Equal(t, "handleView", toast.Action.Handler)
}

func TestToast_Persistent(t *testing.T) {
	t.Parallel()

	toast := NewToast("sticky", ToastTypeWarning).Persistent()
	assert.Negative(t, toast.Duration)
}

func TestToast_ToNotification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		toastType         ToastType
		wantNotifType     Type
		wantNotifPriority Priority
	}{
		{
			name:              "error toast to high priority error notification",
			toastType:         ToastTypeError,
			wantNotifType:     TypeError,
			wantNotifPriority: PriorityHigh,
		},
		{
			name:              "warning toast to medium priority warning notification",
			toastType:         ToastTypeWarning,
			wantNotifType:     TypeWarning,
			wantNotifPriority: PriorityMedium,
		},
		{
			name:              "success toast to low priority info notification",
			toastType:         ToastTypeSuccess,
			wantNotifType:     TypeInfo,
			wantNotifPriority: PriorityLow,
		},
		{
			name:              "info toast to low priority info notification",
			toastType:         ToastTypeInfo,
			wantNotifType:     TypeInfo,
			wantNotifPriority: PriorityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			toast := NewToast("test message", tt.toastType).
				WithComponent("test-component").
				WithDuration(3 * time.Second).
				WithAction("Action", "/url", "handler")

			notif := toast.ToNotification()

			assert.Equal(t, tt.wantNotifType, notif.Type)
			assert.Equal(t, tt.wantNotifPriority, notif.Priority)
			assert.Equal(t, "Toast Message", notif.Title)
			assert.Equal(t, toast.Message, notif.Message)
			assert.Equal(t, toast.Component, notif.Component)

			require.NotNil(t, notif.Metadata, "should create metadata")

			isToast, ok := notif.Metadata[MetadataKeyIsToast].(bool)
			require.True(t, ok && isToast, "should set isToast metadata to true")

			toastType, ok := notif.Metadata["toastType"].(string)
			require.True(t, ok)
			assert.Equal(t, string(tt.toastType), toastType)

			toastID, ok := notif.Metadata["toastId"].(string)
			require.True(t, ok)
			assert.Equal(t, toast.ID, toastID)

			duration, ok := notif.Metadata["duration"].(int64)
			require.True(t, ok)
			assert.Equal(t, toast.Duration.Milliseconds(), duration)

			action, ok := notif.Metadata["action"].(*ToastAction)
			require.True(t, ok)
			assert.Same(t, toast.Action, action)

			require.NotNil(t, notif.ExpiresAt, "should set expiry for toasts")
			assert.WithinDuration(t, time.Now().Add(toastNotificationTTL), *notif.ExpiresAt, 10*time.Second)
		})
	}
}

func TestToast_ToNotification_WithoutOptionalFields(t *testing.T) {
	t.Parallel()

	toast := NewToast("minimal toast", ToastTypeInfo)
	notif := toast.ToNotification()

	assert.Empty(t, notif.Component, "component should be empty when not set")

	_, durationExists := notif.Metadata["duration"]
	assert.False(t, durationExists, "should not include zero duration in metadata")

	_, actionExists := notif.Metadata["action"]
	assert.False(t, actionExists, "should not include nil action in metadata")
}
