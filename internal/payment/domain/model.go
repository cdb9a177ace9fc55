package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord is one processed provider event. The (provider,
// provider_event_id) pair is unique so redeliveries are detected.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	TenantID        string         `json:"tenant_id" gorm:"type:varchar(64);index"`
	Provider        string         `json:"provider" gorm:"type:varchar(32);not null;uniqueIndex:ux_payment_events_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_payment_events_provider_event"`
	EventType       string         `json:"event_type" gorm:"type:varchar(64);not null"`
	InvoiceID       *snowflake.ID  `json:"invoice_id,omitempty" gorm:"index"`
	Outcome         string         `json:"outcome" gorm:"type:varchar(32);not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

const (
	ProviderStripe = "stripe"

	EventTypePaymentSucceeded = "payment_succeeded"
)

// Outcome values stored on EventRecord.
const (
	OutcomeReceived  = "received"
	OutcomeApplied   = "applied"
	OutcomeUnmatched = "unmatched"
	OutcomeRejected  = "rejected"
)

// EventResult is what processing an event resolved to.
type EventResult struct {
	TenantID  string
	InvoiceID *snowflake.ID
	Outcome   string
}

// PaymentEvent is the canonical payment event parsed by adapters.
type PaymentEvent struct {
	Provider        string
	ProviderEventID string
	ProviderType    string
	Type            string
	InvoiceID       string
	OccurredAt      time.Time
	RawPayload      []byte
}
