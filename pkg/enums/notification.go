package enums

import "fmt"

// NotificationType groups in-app notifications for filtering on the client.
type NotificationType string

const (
	NotificationTypeOrder   NotificationType = "order"
	NotificationTypePayment NotificationType = "payment"
	NotificationTypeStock   NotificationType = "stock"
	NotificationTypeBudget  NotificationType = "budget"
	NotificationTypeAccount NotificationType = "account"
	NotificationTypeSystem  NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrder,
	NotificationTypePayment,
	NotificationTypeStock,
	NotificationTypeBudget,
	NotificationTypeAccount,
	NotificationTypeSystem,
}

// String implements fmt.Stringer.
func (v NotificationType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known NotificationType.
func (v NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
