package model

import "time"

// NotificationType is the severity shown to readers.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

// Notification is a feed entry emitted after a mutation.
type Notification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Link      string           `json:"link,omitempty"`
	Type      NotificationType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
}
