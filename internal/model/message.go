package model

import (
	"strings"
	"time"
)

// SenderRole identifies who authored a message.
type SenderRole string

const (
	SenderCustomer SenderRole = "customer"
	SenderStaff    SenderRole = "staff"
	SenderAgent    SenderRole = "automated_agent"
)

// FromCustomer reports whether the role is the remote party.
func (r SenderRole) FromCustomer() bool {
	return r == SenderCustomer
}

// DeliveryStatus tracks the lifecycle of an outgoing message. The
// progression is monotonic except for failed, which is terminal and
// retryable by the operator.
type DeliveryStatus string

const (
	StatusComposing DeliveryStatus = "composing"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
	StatusFailed    DeliveryStatus = "failed"
)

// AttachmentKind is the coarse attachment category.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment references an already-uploaded file carried by a message.
type Attachment struct {
	URI  string         `json:"uri"`
	Kind AttachmentKind `json:"kind"`
	Size int64          `json:"size"`
}

// TempIDPrefix marks locally generated ids for messages that have not
// been confirmed by the backend yet.
const TempIDPrefix = "tmp_"

// Message is a single conversation entry.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Sender         SenderRole     `json:"sender"`
	Content        string         `json:"content"`
	Timestamp      time.Time      `json:"timestamp"`
	Status         DeliveryStatus `json:"status,omitempty"`
	Attachment     *Attachment    `json:"attachment,omitempty"`
}

// IsTemp reports whether the message carries a locally generated id.
func (m Message) IsTemp() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// SendReceipt is the direct response of the send endpoint. It is not
// authoritative; the push echo finalizes the message.
type SendReceipt struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}
