// Package notify implements a command for sending test notifications.
package notify

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkarvala/sidekick-go/internal/conf"
	"github.com/mkarvala/sidekick-go/internal/notification"
)

// Command returns a cobra command that sends a test notification or toast
// through the notification service.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		typ       string
		prio      string
		title     string
		message   string
		component string
		asToast   bool
		duration  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test notification or toast",
		Long: `Send a test notification through the notification service.

Examples:
  # Basic notification
  sidekick notify --type=info --priority=low --title="Test" --message="Hello"

  # Toast that auto-dismisses after three seconds
  sidekick notify --toast --type=success --message="Saved" --duration=3s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serviceConfig := notification.DefaultServiceConfig()
			serviceConfig.Debug = settings.Main.Debug
			notification.Initialize(serviceConfig)
			service := notification.GetService()
			defer service.Stop()

			if asToast {
				return sendToast(service, typ, message, component, duration)
			}
			return sendNotification(service, typ, prio, title, message, component)
		},
	}

	cmd.Flags().StringVar(&typ, "type", "info", "Notification type (error, warning, info, system) or toast type (success, error, warning, info)")
	cmd.Flags().StringVar(&prio, "priority", "low", "Notification priority (critical, high, medium, low)")
	cmd.Flags().StringVar(&title, "title", "Test Notification", "Notification title")
	cmd.Flags().StringVar(&message, "message", "Hello from the sidekick CLI", "Notification or toast message")
	cmd.Flags().StringVar(&component, "component", "cli", "Component the notification is attributed to")
	cmd.Flags().BoolVar(&asToast, "toast", false, "Send a toast instead of a notification")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Toast auto-dismiss duration, 0 uses the store default")

	return cmd
}

func sendToast(service *notification.Service, typ, message, component string, duration time.Duration) error {
	toast := notification.NewToast(message, notification.ToastType(typ)).
		WithComponent(component).
		WithDuration(duration)

	if err := service.SendToast(toast); err != nil {
		return fmt.Errorf("failed to send toast: %w", err)
	}

	fmt.Printf("Toast sent: id=%s type=%s message=%q\n", toast.ID, toast.Type, toast.Message)
	return nil
}

func sendNotification(service *notification.Service, typ, prio, title, message, component string) error {
	var ntype notification.Type
	switch typ {
	case "error":
		ntype = notification.TypeError
	case "warning":
		ntype = notification.TypeWarning
	case "info":
		ntype = notification.TypeInfo
	case "system":
		ntype = notification.TypeSystem
	default:
		return fmt.Errorf("invalid type: %s", typ)
	}

	var nprio notification.Priority
	switch prio {
	case "critical":
		nprio = notification.PriorityCritical
	case "high":
		nprio = notification.PriorityHigh
	case "medium":
		nprio = notification.PriorityMedium
	case "low":
		nprio = notification.PriorityLow
	default:
		return fmt.Errorf("invalid priority: %s", prio)
	}

	notif, err := service.CreateWithComponent(ntype, nprio, title, message, component)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	fmt.Printf("Notification sent: id=%s type=%s priority=%s title=%q\n",
		notif.ID, notif.Type, notif.Priority, notif.Title)
	return nil
}
