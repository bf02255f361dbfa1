package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTestSettings() *Settings {
	return &Settings{
		Main: MainSettings{Name: "Sidekick"},
		WebServer: WebServerSettings{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    "8080",
		},
		Notification: NotificationSettings{
			MaxNotifications: 1000,
			CleanupInterval:  5 * time.Minute,
			Toast: ToastSettings{
				MaxVisible:      3,
				DefaultDuration: 5 * time.Second,
				DedupWindow:     2 * time.Second,
			},
		},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(s *Settings) {},
			wantErr: false,
		},
		{
			name:    "negative max notifications",
			mutate:  func(s *Settings) { s.Notification.MaxNotifications = -1 },
			wantErr: true,
		},
		{
			name:    "zero visible toasts",
			mutate:  func(s *Settings) { s.Notification.Toast.MaxVisible = 0 },
			wantErr: true,
		},
		{
			name: "enabled server without port",
			mutate: func(s *Settings) {
				s.WebServer.Enabled = true
				s.WebServer.Port = ""
			},
			wantErr: true,
		},
		{
			name: "disabled server without port is fine",
			mutate: func(s *Settings) {
				s.WebServer.Enabled = false
				s.WebServer.Port = ""
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			settings := defaultTestSettings()
			tt.mutate(settings)

			err := ValidateSettings(settings)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	settings := defaultTestSettings()
	path := t.TempDir() + "/config/config.yaml"

	require.NoError(t, SaveSettings(settings, path))
	assert.FileExists(t, path)
}

func TestSetSettingsOverridesSingleton(t *testing.T) {
	settings := defaultTestSettings()
	settings.Main.Name = "test-instance"
	SetSettings(settings)

	got := Setting()
	require.NotNil(t, got)
	assert.Equal(t, "test-instance", got.Main.Name)
}
