package model

import "time"

// DeliveryStatus tracks the push of a completed audit to its destination.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// DeliveryAttempt is the authoritative delivery record for an audit+contact
// pair. Repeated sends after failure increment RetryCount; a second send
// after success is a no-op.
type DeliveryAttempt struct {
	ID         string         `json:"id"`
	AuditID    string         `json:"audit_id"`
	Contact    string         `json:"contact"`
	Status     DeliveryStatus `json:"status"`
	MessageID  string         `json:"message_id,omitempty"`
	RetryCount int            `json:"retry_count"`
	LastError  string         `json:"last_error,omitempty"`
	SentAt     *time.Time     `json:"sent_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
