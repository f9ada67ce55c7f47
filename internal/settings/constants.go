package settings

// DB setting keys and defaults.
const (
	// WheelEnabledKey switches spinning on or off for every session.
	WheelEnabledKey = "WHEEL_ENABLED"
	// DefaultWheelEnabled keeps the wheel open until an operator closes it.
	DefaultWheelEnabled = true
	// WebhookEventsRetentionDaysKey controls how long webhook audit rows are kept.
	WebhookEventsRetentionDaysKey = "WEBHOOK_EVENTS_RETENTION_DAYS"
	// DefaultWebhookEventsRetentionDays is the fallback retention; zero disables cleanup.
	DefaultWebhookEventsRetentionDays = 30
)

// KnownKeys lists the settings the admin console may write.
var KnownKeys = []string{WheelEnabledKey, WebhookEventsRetentionDaysKey}

// IsKnownKey reports whether key is a writable setting.
func IsKnownKey(key string) bool {
	for _, k := range KnownKeys {
		if k == key {
			return true
		}
	}
	return false
}
