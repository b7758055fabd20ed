package model

import (
	"time"
)

// PushEventType represents the type of push event.
type PushEventType string

const (
	PushNewMessage      PushEventType = "new_message"
	PushNewConversation PushEventType = "new_conversation"
	PushTyping          PushEventType = "typing"
)

// PushEvent is one incremental notification from the push channel.
// TenantID may be empty on legacy unscoped payloads.
type PushEvent struct {
	Type           PushEventType `json:"type"`
	TenantID       string        `json:"tenant_id,omitempty"`
	ConversationID string        `json:"conversation_id"`

	MessageID  string      `json:"message_id,omitempty"`
	Sender     SenderRole  `json:"sender,omitempty"`
	Content    string      `json:"content,omitempty"`
	Timestamp  time.Time   `json:"timestamp,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`

	// Populated on new_conversation payloads.
	Channel      string `json:"channel,omitempty"`
	CustomerID   string `json:"customer_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}

// Message materializes the event's message payload.
func (e PushEvent) Message() Message {
	return Message{
		ID:             e.MessageID,
		ConversationID: e.ConversationID,
		Sender:         e.Sender,
		Content:        e.Content,
		Timestamp:      e.Timestamp,
		Status:         StatusDelivered,
		Attachment:     e.Attachment,
	}
}
