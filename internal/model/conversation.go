// Package model defines data structures for the support inbox.
package model

import (
	"time"
)

// Channel is the messaging channel a conversation arrived on.
type Channel string

const (
	ChannelFacebook Channel = "facebook"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
	ChannelUnknown  Channel = "unknown"
)

// ParseChannel maps a payload channel string to a Channel.
func ParseChannel(s string) Channel {
	switch Channel(s) {
	case ChannelFacebook, ChannelWhatsApp, ChannelTelegram:
		return Channel(s)
	default:
		return ChannelUnknown
	}
}

// Conversation is one customer thread. Messages are lazily populated;
// the preview fields summarize the latest message independently of
// whether the history has been loaded.
type Conversation struct {
	ID           string  `json:"id"`
	TenantID     string  `json:"tenant_id"`
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	Channel      Channel `json:"channel"`

	Messages []Message `json:"messages,omitempty"`

	PreviewText         string    `json:"preview_text"`
	PreviewTime         time.Time `json:"preview_time"`
	PreviewFromCustomer bool      `json:"preview_from_customer"`

	UnreadCount int `json:"unread_count"`
	// UnreadUpdatedAt backs the freshest-wins comparison between the
	// server's unread counter and the locally adjusted one.
	UnreadUpdatedAt time.Time `json:"-"`

	AwaitingReply bool `json:"awaiting_reply"`
	Selected      bool `json:"selected"`

	// TypingUntil is non-zero while the customer's typing indicator is
	// live; the engine clears it on a timer.
	TypingUntil time.Time `json:"typing_until,omitempty"`

	// Provisional marks an entry synthesized from a push event before
	// the background detail fetch has filled it in.
	Provisional bool `json:"-"`

	// HistoryPages counts the backend history pages loaded so far;
	// HistoryHasMore mirrors the fill of the last one. They realign the
	// history cursor when the conversation is re-selected with its
	// messages still cached.
	HistoryPages   int  `json:"-"`
	HistoryHasMore bool `json:"-"`
}

// LatestMessage returns the newest loaded message, if any.
func (c *Conversation) LatestMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// ConversationSnapshot is one entry of a paginated conversation-list
// fetch. It never carries message history.
type ConversationSnapshot struct {
	ID                  string    `json:"id"`
	TenantID            string    `json:"tenant_id,omitempty"`
	CustomerID          string    `json:"customer_id"`
	CustomerName        string    `json:"customer_name"`
	Channel             string    `json:"channel"`
	PreviewText         string    `json:"preview_text"`
	PreviewTime         time.Time `json:"preview_time"`
	PreviewFromCustomer bool      `json:"preview_from_customer"`
	UnreadCount         int       `json:"unread_count"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Conversation materializes a snapshot entry as a store conversation.
func (s ConversationSnapshot) Conversation() *Conversation {
	return &Conversation{
		ID:                  s.ID,
		TenantID:            s.TenantID,
		CustomerID:          s.CustomerID,
		CustomerName:        s.CustomerName,
		Channel:             ParseChannel(s.Channel),
		PreviewText:         s.PreviewText,
		PreviewTime:         s.PreviewTime,
		PreviewFromCustomer: s.PreviewFromCustomer,
		UnreadCount:         s.UnreadCount,
		UnreadUpdatedAt:     s.UpdatedAt,
		AwaitingReply:       s.PreviewFromCustomer,
	}
}

// Pagination is the paging envelope returned by list endpoints.
type Pagination struct {
	Total       int  `json:"total"`
	HasNextPage bool `json:"has_next_page"`
}

// ConversationPage is one page of the conversation list.
type ConversationPage struct {
	Items      []ConversationSnapshot `json:"items"`
	Pagination Pagination             `json:"pagination"`
}

// ConversationDetail is a full single-conversation fetch, used to fill
// in a provisionally synthesized entry.
type ConversationDetail struct {
	ConversationSnapshot
	Messages []Message `json:"messages"`
}
