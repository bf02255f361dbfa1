package notification

// Package-level convenience helpers. All are safe to call before
// Initialize: they silently do nothing when the service is absent, so
// callers never need nil checks around incidental notifications.

// NotifyError creates an error notification from err.
func NotifyError(err error) {
	service := GetService()
	if service == nil {
		return
	}
	_, _ = service.CreateErrorNotification(err)
}

// NotifySystemAlert creates a system alert notification.
func NotifySystemAlert(priority Priority, title, message string) {
	service := GetService()
	if service == nil {
		return
	}
	_, _ = service.CreateWithComponent(TypeSystem, priority, title, message, "system")
}

// NotifyInfo creates a low-priority informational notification.
func NotifyInfo(title, message string) {
	service := GetService()
	if service == nil {
		return
	}
	_, _ = service.Create(TypeInfo, PriorityLow, title, message)
}

// NotifyToast raises a toast through the global service.
func NotifyToast(message string, toastType ToastType, component string) {
	service := GetService()
	if service == nil {
		return
	}
	_ = service.SendToast(NewToast(message, toastType).WithComponent(component))
}

// NotifyStreamFault reports a fatal stream error through the global
// service. See Service.ReportStreamFault.
func NotifyStreamFault(err error) {
	service := GetService()
	if service == nil {
		return
	}
	service.ReportStreamFault(err)
}
