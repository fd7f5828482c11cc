package domain

import "time"

// NotificationType classifies inbox entries.
type NotificationType string

const (
	NotificationNewPackage      NotificationType = "new-package"
	NotificationVersionUpdate   NotificationType = "version-update"
	NotificationComponentUpdate NotificationType = "component-update"
	NotificationGeneral         NotificationType = "general"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationNewPackage, NotificationVersionUpdate, NotificationComponentUpdate, NotificationGeneral:
		return true
	}
	return false
}

// Notification is a durable inbox entry owned by exactly one recipient.
type Notification struct {
	ID               string           `json:"_id"`
	RecipientID      string           `json:"recipient"`
	Type             NotificationType `json:"type"`
	Title            string           `json:"title"`
	Message          string           `json:"message"`
	RelatedPackageID string           `json:"relatedPackage,omitempty"`
	Read             bool             `json:"read"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// PackageRef is the populated package name shown next to a notification.
type PackageRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// NotificationView is a notification with its related package resolved.
type NotificationView struct {
	Notification
	RelatedPackage *PackageRef `json:"relatedPackage,omitempty"`
}

// RealtimeNotification is the payload pushed to connected sessions.
type RealtimeNotification struct {
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	RelatedPackage string           `json:"relatedPackage,omitempty"`
}
